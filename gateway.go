// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package gateway implements a multi-adapter cross-chain message gateway.
//
// Outbound messages fan out over every adapter configured for the remote
// chain: the primary adapter carries the full message, every secondary
// carries a hash proof of the same bytes. Inbound, the gateway accumulates
// confirmations per payload hash and releases a message to the handler
// exactly once, after every configured adapter has confirmed it. A
// timelocked, guardian-disputable recovery path substitutes for the
// confirmation of an adapter that never delivers.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/gateway/cache"
	"github.com/luxfi/gateway/payload"
)

const (
	// DefaultChallengePeriod is the delay between initiating a recovery and
	// being allowed to execute it, during which a guardian may dispute.
	DefaultChallengePeriod = 7 * 24 * time.Hour

	// quoteTTL bounds the staleness of cached fee quotes
	quoteTTL = 10 * time.Second

	// dispatchedRecordSize bounds the record of recently dispatched hashes
	dispatchedRecordSize = 4096
)

var (
	ErrPaused              = errors.New("gateway paused")
	ErrUnknownChain        = errors.New("unknown remote chain")
	ErrUnknownAdapter      = errors.New("adapter not configured for chain")
	ErrExpectedFullMessage = errors.New("primary adapter must deliver full messages")
	ErrExpectedProof       = errors.New("secondary adapter must deliver proofs")
	ErrUnexpectedBatch     = errors.New("batch payloads must be split by the adapter")
	ErrDispatchInProgress  = errors.New("message dispatch already in progress")
)

// confirmationKey identifies one in-flight inbound message
type confirmationKey struct {
	chainID     ids.ID
	payloadHash ids.ID
}

// inboundConfirmation tracks which adapters have confirmed a payload hash.
// quorum is the adapter set size at record creation; reconfiguring the set
// does not retroactively change it.
type inboundConfirmation struct {
	confirmed set.Set[ids.NodeID]
	quorum    int
	message   []byte
}

// Config configures a Gateway
type Config struct {
	// Handler consumes messages once they reach quorum. Required.
	Handler Handler

	// Pauser is the external pause flag. Defaults to NeverPaused.
	Pauser Pauser

	// Guardians are the identities allowed to dispute pending recoveries.
	Guardians set.Set[ids.NodeID]

	// ChallengePeriod overrides DefaultChallengePeriod when positive.
	ChallengePeriod time.Duration

	// Registerer receives the gateway metrics. Defaults to a private
	// registry.
	Registerer prometheus.Registerer
}

// Gateway tracks inbound confirmation state, recovery claims, and outbound
// batches, each partitioned by remote chain. Entrypoints are serialized and
// all-or-nothing: a failed call leaves gateway state unchanged.
type Gateway struct {
	log             log.Logger
	handler         Handler
	pauser          Pauser
	guardians       set.Set[ids.NodeID]
	challengePeriod time.Duration
	metrics         *gatewayMetrics

	// now is the clock used for recovery deadlines, injectable in tests
	now func() time.Time

	mu            sync.Mutex
	adapters      map[ids.ID]*AdapterSet
	confirmations map[confirmationKey]*inboundConfirmation
	dispatching   set.Set[confirmationKey]
	recoveries    map[recoveryKey]*recoveryClaim
	acceptors     map[string]Acceptor

	batching bool
	queued   map[ids.ID][][]byte
	order    []ids.ID
	escrow   *uint256.Int

	quotes     *cache.TTLCache[quoteKey, *uint256.Int]
	dispatched *cache.FIFO[confirmationKey, time.Time]
}

// New creates a Gateway
func New(cfg Config, logger log.Logger) (*Gateway, error) {
	if cfg.Handler == nil {
		return nil, errors.New("handler is required")
	}
	if cfg.Pauser == nil {
		cfg.Pauser = NeverPaused{}
	}
	if cfg.ChallengePeriod <= 0 {
		cfg.ChallengePeriod = DefaultChallengePeriod
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.NewRegistry()
	}

	return &Gateway{
		log:             logger,
		handler:         cfg.Handler,
		pauser:          cfg.Pauser,
		guardians:       cfg.Guardians,
		challengePeriod: cfg.ChallengePeriod,
		metrics:         newGatewayMetrics(cfg.Registerer),
		now:             time.Now,
		adapters:        make(map[ids.ID]*AdapterSet),
		confirmations:   make(map[confirmationKey]*inboundConfirmation),
		dispatching:     set.NewSet[confirmationKey](4),
		recoveries:      make(map[recoveryKey]*recoveryClaim),
		acceptors:       make(map[string]Acceptor),
		queued:          make(map[ids.ID][][]byte),
		quotes:          cache.NewTTLCache[quoteKey, *uint256.Int](quoteTTL),
		dispatched:      cache.NewFIFO[confirmationKey, time.Time](dispatchedRecordSize),
	}, nil
}

// SetAdapters configures the ordered adapter set for a remote chain. The
// change applies to confirmation records created afterwards; records already
// accumulating keep the quorum they were created under.
func (g *Gateway) SetAdapters(remoteChainID ids.ID, adapters []Adapter) error {
	adapterSet, err := NewAdapterSet(adapters)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.adapters[remoteChainID] = adapterSet
	g.log.Info(
		"configured adapter set",
		log.Stringer("remoteChainID", remoteChainID),
		log.Int("adapters", adapterSet.Len()),
		log.Stringer("primary", adapterSet.Primary().ID()),
	)
	g.emit(context.Background(), Event{
		Type:    EventAdaptersSet,
		ChainID: remoteChainID,
		Quorum:  adapterSet.Len(),
	})
	return nil
}

// Handle is the inbound delivery entrypoint, called by an adapter with
// either a full message or a proof. Delivery is idempotent per adapter and
// order-independent across adapters; the decoded message is dispatched to
// the handler exactly once, after quorum. The handler is invoked with the
// gateway lock released, so it may call back into the gateway, e.g. to send
// replies; a delivery racing an in-flight dispatch of the same payload fails
// with ErrDispatchInProgress.
func (g *Gateway) Handle(ctx context.Context, remoteChainID ids.ID, fromAdapter ids.NodeID, rawPayload []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pauser.Paused() {
		return ErrPaused
	}
	adapterSet, ok := g.adapters[remoteChainID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChain, remoteChainID)
	}
	if !adapterSet.Contains(fromAdapter) {
		return fmt.Errorf("%w: %s", ErrUnknownAdapter, fromAdapter)
	}

	p, err := payload.Parse(rawPayload)
	if err != nil {
		return fmt.Errorf("failed to decode inbound payload: %w", err)
	}

	switch p := p.(type) {
	case *payload.Message:
		if !adapterSet.IsPrimary(fromAdapter) {
			return fmt.Errorf("%w: %s", ErrExpectedProof, fromAdapter)
		}
		return g.confirm(ctx, remoteChainID, adapterSet.Len(), fromAdapter, p.PayloadHash(), p.Body)
	case *payload.Proof:
		if adapterSet.IsPrimary(fromAdapter) {
			return fmt.Errorf("%w: %s", ErrExpectedFullMessage, fromAdapter)
		}
		return g.confirm(ctx, remoteChainID, adapterSet.Len(), fromAdapter, p.Hash, nil)
	default:
		return ErrUnexpectedBatch
	}
}

// confirm counts one adapter confirmation for (remoteChainID, hash) and
// dispatches the message when the record reaches its quorum with a known
// body. The handler runs before any state is committed, so a handler error
// aborts the call cleanly. It runs with g.mu released, so the handler may
// call back into the gateway, e.g. to send replies; the dispatching mark
// keeps a concurrent delivery of the same payload out while it does.
//
// Callers must hold g.mu.
func (g *Gateway) confirm(
	ctx context.Context,
	remoteChainID ids.ID,
	quorum int,
	fromAdapter ids.NodeID,
	hash ids.ID,
	body []byte,
) error {
	key := confirmationKey{chainID: remoteChainID, payloadHash: hash}
	if g.dispatching.Contains(key) {
		return fmt.Errorf("%w: %s", ErrDispatchInProgress, hash)
	}

	rec, exists := g.confirmations[key]
	if !exists {
		if _, seen := g.dispatched.Get(key); seen {
			g.metrics.duplicateDeliveries.Inc()
			g.log.Debug(
				"delivery for an already dispatched message",
				log.Stringer("remoteChainID", remoteChainID),
				log.Stringer("payloadHash", hash),
				log.Stringer("adapter", fromAdapter),
			)
			g.emit(ctx, Event{
				Type:        EventDuplicateDelivery,
				ChainID:     remoteChainID,
				AdapterID:   fromAdapter,
				PayloadHash: hash,
			})
		}
		rec = &inboundConfirmation{
			confirmed: set.NewSet[ids.NodeID](quorum),
			quorum:    quorum,
		}
	}

	increment := !rec.confirmed.Contains(fromAdapter)
	if !increment && (body == nil || rec.message != nil) {
		// Redundant delivery from the same adapter. Not an error.
		g.metrics.duplicateDeliveries.Inc()
		g.emit(ctx, Event{
			Type:          EventDuplicateDelivery,
			ChainID:       remoteChainID,
			AdapterID:     fromAdapter,
			PayloadHash:   hash,
			Confirmations: rec.confirmed.Len(),
			Quorum:        rec.quorum,
		})
		return nil
	}

	count := rec.confirmed.Len()
	if increment {
		count++
	}
	message := rec.message
	if message == nil {
		message = body
	}

	if count >= rec.quorum && message != nil {
		g.dispatching.Add(key)
		g.mu.Unlock()
		handlerErr := g.handler.HandleMessage(ctx, remoteChainID, message)
		g.mu.Lock()
		g.dispatching.Remove(key)
		if handlerErr != nil {
			return fmt.Errorf("handler rejected message: %w", handlerErr)
		}
		if exists {
			delete(g.confirmations, key)
			g.metrics.pendingConfirmations.Dec()
		}
		g.dispatched.Put(key, g.now())
		if increment {
			g.metrics.confirmations.Inc()
			g.emit(ctx, Event{
				Type:          EventConfirmed,
				ChainID:       remoteChainID,
				AdapterID:     fromAdapter,
				PayloadHash:   hash,
				Confirmations: count,
				Quorum:        rec.quorum,
			})
		}
		g.metrics.dispatches.Inc()
		g.log.Info(
			"dispatched message",
			log.Stringer("remoteChainID", remoteChainID),
			log.Stringer("payloadHash", hash),
			log.Int("confirmations", count),
		)
		g.emit(ctx, Event{
			Type:          EventDispatched,
			ChainID:       remoteChainID,
			PayloadHash:   hash,
			Confirmations: count,
			Quorum:        rec.quorum,
		})
		return nil
	}

	if increment {
		rec.confirmed.Add(fromAdapter)
	}
	if rec.message == nil && body != nil {
		rec.message = body
	}
	if !exists {
		g.confirmations[key] = rec
		g.metrics.pendingConfirmations.Inc()
	}
	if increment {
		g.metrics.confirmations.Inc()
		g.log.Debug(
			"counted confirmation",
			log.Stringer("remoteChainID", remoteChainID),
			log.Stringer("payloadHash", hash),
			log.Stringer("adapter", fromAdapter),
			log.Int("confirmations", count),
			log.Int("quorum", rec.quorum),
		)
		g.emit(ctx, Event{
			Type:          EventConfirmed,
			ChainID:       remoteChainID,
			AdapterID:     fromAdapter,
			PayloadHash:   hash,
			Confirmations: count,
			Quorum:        rec.quorum,
		})
	}
	return nil
}

// Confirmations returns the confirmation count and quorum for a pending
// payload hash, or ok=false once the message has been dispatched (or was
// never seen).
func (g *Gateway) Confirmations(remoteChainID ids.ID, payloadHash ids.ID) (confirmations int, quorum int, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec, exists := g.confirmations[confirmationKey{chainID: remoteChainID, payloadHash: payloadHash}]
	if !exists {
		return 0, 0, false
	}
	return rec.confirmed.Len(), rec.quorum, true
}
