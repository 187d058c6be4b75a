// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/gateway/payload"
)

var (
	ErrNotGuardian             = errors.New("caller is not a guardian")
	ErrRecoveryPending         = errors.New("recovery already initiated")
	ErrRecoveryNotInitiated    = errors.New("recovery not initiated")
	ErrChallengePeriodNotEnded = errors.New("challenge period not ended")
	ErrRecoveryNotMessage      = errors.New("recovery payload must be a full message")
)

// recoveryKey identifies one recovery claim: "count recoverer's confirmation
// for payloadHash on chainID".
type recoveryKey struct {
	chainID     ids.ID
	recoverer   ids.NodeID
	payloadHash ids.ID
}

// recoveryClaim is a pending, timelocked recovery. It exists from
// InitiateRecovery until it is disputed or executed.
type recoveryClaim struct {
	reporter ids.NodeID
	deadline time.Time
}

// InitiateRecovery opens a timelocked claim that recoverer's confirmation
// for payloadHash is missing and should be counted once the challenge period
// elapses undisputed. The reporter must be a configured adapter of the
// remote chain, as must the recoverer being vouched for. Initiating does not
// touch confirmation state.
func (g *Gateway) InitiateRecovery(
	ctx context.Context,
	remoteChainID ids.ID,
	reporter ids.NodeID,
	recoverer ids.NodeID,
	payloadHash ids.ID,
) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pauser.Paused() {
		return ErrPaused
	}
	adapterSet, ok := g.adapters[remoteChainID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChain, remoteChainID)
	}
	if !adapterSet.Contains(reporter) {
		return fmt.Errorf("%w: reporter %s", ErrUnknownAdapter, reporter)
	}
	if !adapterSet.Contains(recoverer) {
		return fmt.Errorf("%w: recoverer %s", ErrUnknownAdapter, recoverer)
	}

	key := recoveryKey{chainID: remoteChainID, recoverer: recoverer, payloadHash: payloadHash}
	if _, exists := g.recoveries[key]; exists {
		return fmt.Errorf("%w: recoverer %s, hash %s", ErrRecoveryPending, recoverer, payloadHash)
	}

	deadline := g.now().Add(g.challengePeriod)
	g.recoveries[key] = &recoveryClaim{
		reporter: reporter,
		deadline: deadline,
	}
	g.metrics.recoveriesInitiated.Inc()
	g.log.Info(
		"initiated recovery",
		log.Stringer("remoteChainID", remoteChainID),
		log.Stringer("reporter", reporter),
		log.Stringer("recoverer", recoverer),
		log.Stringer("payloadHash", payloadHash),
		log.Time("deadline", deadline),
	)
	g.emit(ctx, Event{
		Type:        EventRecoveryInitiated,
		ChainID:     remoteChainID,
		AdapterID:   recoverer,
		PayloadHash: payloadHash,
		Deadline:    deadline,
	})
	return nil
}

// DisputeRecovery cancels a pending recovery claim. Only a guardian may
// dispute, at any point before the claim is executed; the challenge period
// does not have to be running. A disputed tuple may be re-initiated later.
func (g *Gateway) DisputeRecovery(
	ctx context.Context,
	remoteChainID ids.ID,
	guardian ids.NodeID,
	reporter ids.NodeID,
	recoverer ids.NodeID,
	payloadHash ids.ID,
) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pauser.Paused() {
		return ErrPaused
	}
	if !g.guardians.Contains(guardian) {
		return fmt.Errorf("%w: %s", ErrNotGuardian, guardian)
	}

	key := recoveryKey{chainID: remoteChainID, recoverer: recoverer, payloadHash: payloadHash}
	claim, exists := g.recoveries[key]
	if !exists || claim.reporter != reporter {
		return fmt.Errorf("%w: recoverer %s, hash %s", ErrRecoveryNotInitiated, recoverer, payloadHash)
	}

	delete(g.recoveries, key)
	g.metrics.recoveriesDisputed.Inc()
	g.log.Info(
		"disputed recovery",
		log.Stringer("remoteChainID", remoteChainID),
		log.Stringer("guardian", guardian),
		log.Stringer("recoverer", recoverer),
		log.Stringer("payloadHash", payloadHash),
	)
	g.emit(ctx, Event{
		Type:        EventRecoveryDisputed,
		ChainID:     remoteChainID,
		AdapterID:   recoverer,
		PayloadHash: payloadHash,
	})
	return nil
}

// ExecuteRecovery consumes a pending claim whose challenge period has
// elapsed and counts one confirmation for the recoverer, exactly as if the
// recoverer had delivered directly. Callable by anyone: the claim plus the
// elapsed timelock is the authorization. rawMessage must be the full message
// envelope whose body hashes to the claimed payload hash.
func (g *Gateway) ExecuteRecovery(
	ctx context.Context,
	remoteChainID ids.ID,
	recoverer ids.NodeID,
	rawMessage []byte,
) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pauser.Paused() {
		return ErrPaused
	}
	adapterSet, ok := g.adapters[remoteChainID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChain, remoteChainID)
	}

	p, err := payload.Parse(rawMessage)
	if err != nil {
		return fmt.Errorf("failed to decode recovery payload: %w", err)
	}
	msg, ok := p.(*payload.Message)
	if !ok {
		return ErrRecoveryNotMessage
	}
	hash := msg.PayloadHash()

	key := recoveryKey{chainID: remoteChainID, recoverer: recoverer, payloadHash: hash}
	claim, exists := g.recoveries[key]
	if !exists {
		return fmt.Errorf("%w: recoverer %s, hash %s", ErrRecoveryNotInitiated, recoverer, hash)
	}
	if g.now().Before(claim.deadline) {
		return fmt.Errorf("%w: deadline %s", ErrChallengePeriodNotEnded, claim.deadline)
	}

	// The message body is only attached when recovering the primary's slot;
	// a secondary's recovered confirmation counts like the proof it failed
	// to deliver.
	var body []byte
	if adapterSet.IsPrimary(recoverer) {
		body = msg.Body
	}
	if err := g.confirm(ctx, remoteChainID, adapterSet.Len(), recoverer, hash, body); err != nil {
		return err
	}

	delete(g.recoveries, key)
	g.metrics.recoveriesExecuted.Inc()
	g.log.Info(
		"executed recovery",
		log.Stringer("remoteChainID", remoteChainID),
		log.Stringer("recoverer", recoverer),
		log.Stringer("payloadHash", hash),
	)
	g.emit(ctx, Event{
		Type:        EventRecoveryExecuted,
		ChainID:     remoteChainID,
		AdapterID:   recoverer,
		PayloadHash: hash,
	})
	return nil
}

// RecoveryDeadline returns the challenge period expiry of a pending claim,
// or ok=false when no claim is pending for the tuple.
func (g *Gateway) RecoveryDeadline(remoteChainID ids.ID, recoverer ids.NodeID, payloadHash ids.ID) (deadline time.Time, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	claim, exists := g.recoveries[recoveryKey{chainID: remoteChainID, recoverer: recoverer, payloadHash: payloadHash}]
	if !exists {
		return time.Time{}, false
	}
	return claim.deadline, true
}
