// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package relayer drives the timelocked recovery path of a gateway: it waits
// out the challenge period of a pending claim and then executes it, retrying
// transient failures with exponential backoff.
package relayer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/gateway/payload"
	"github.com/luxfi/gateway/utils"
)

const defaultRetryTimeout = 30 * time.Second

var ErrNoPendingClaim = errors.New("no pending recovery claim")

// Recoverable is the slice of the gateway surface the executor drives
type Recoverable interface {
	RecoveryDeadline(remoteChainID ids.ID, recoverer ids.NodeID, payloadHash ids.ID) (time.Time, bool)
	ExecuteRecovery(ctx context.Context, remoteChainID ids.ID, recoverer ids.NodeID, rawMessage []byte) error
}

// Executor waits for recovery claims to mature and executes them
type Executor struct {
	log          log.Logger
	gateway      Recoverable
	retryTimeout time.Duration
}

// NewExecutor creates an Executor. retryTimeout bounds the retry window of
// one execution attempt; zero selects a default.
func NewExecutor(gateway Recoverable, logger log.Logger, retryTimeout time.Duration) *Executor {
	if retryTimeout <= 0 {
		retryTimeout = defaultRetryTimeout
	}
	return &Executor{
		log:          logger,
		gateway:      gateway,
		retryTimeout: retryTimeout,
	}
}

// Execute blocks until the claim for rawMessage's payload hash matures, then
// executes it. Returns early if the context is canceled or the claim
// disappears, e.g. because a guardian disputed it.
func (e *Executor) Execute(
	ctx context.Context,
	remoteChainID ids.ID,
	recoverer ids.NodeID,
	rawMessage []byte,
) error {
	p, err := payload.Parse(rawMessage)
	if err != nil {
		return fmt.Errorf("failed to decode recovery payload: %w", err)
	}
	msg, ok := p.(*payload.Message)
	if !ok {
		return fmt.Errorf("%w: payload is not a full message", payload.ErrInvalidPayload)
	}
	hash := msg.PayloadHash()

	deadline, ok := e.gateway.RecoveryDeadline(remoteChainID, recoverer, hash)
	if !ok {
		return fmt.Errorf("%w: recoverer %s, hash %s", ErrNoPendingClaim, recoverer, hash)
	}

	if wait := time.Until(deadline); wait > 0 {
		e.log.Info(
			"waiting for challenge period",
			log.Stringer("remoteChainID", remoteChainID),
			log.Stringer("recoverer", recoverer),
			log.Stringer("payloadHash", hash),
			log.Duration("wait", wait),
		)
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return utils.WithRetriesTimeout(e.log, func() error {
		err := e.gateway.ExecuteRecovery(ctx, remoteChainID, recoverer, rawMessage)
		if err == nil {
			return nil
		}
		// A disputed or already executed claim will never succeed
		if _, pending := e.gateway.RecoveryDeadline(remoteChainID, recoverer, hash); !pending {
			return backoff.Permanent(fmt.Errorf("%w: recoverer %s, hash %s", ErrNoPendingClaim, recoverer, hash))
		}
		return err
	}, e.retryTimeout)
}
