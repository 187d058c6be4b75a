// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

// EventType identifies a gateway state transition
type EventType uint8

const (
	EventConfirmed EventType = iota
	EventDispatched
	EventDuplicateDelivery
	EventAdaptersSet
	EventBatchSent
	EventRecoveryInitiated
	EventRecoveryDisputed
	EventRecoveryExecuted
)

func (t EventType) String() string {
	switch t {
	case EventConfirmed:
		return "confirmed"
	case EventDispatched:
		return "dispatched"
	case EventDuplicateDelivery:
		return "duplicate_delivery"
	case EventAdaptersSet:
		return "adapters_set"
	case EventBatchSent:
		return "batch_sent"
	case EventRecoveryInitiated:
		return "recovery_initiated"
	case EventRecoveryDisputed:
		return "recovery_disputed"
	case EventRecoveryExecuted:
		return "recovery_executed"
	default:
		return "unknown"
	}
}

// Event is a structured record of one gateway state transition. The stream of
// events is sufficient for an off-chain monitor to reconstruct quorum state
// per payload hash and to detect stalled or disputed messages.
type Event struct {
	Type        EventType
	ChainID     ids.ID
	AdapterID   ids.NodeID
	PayloadHash ids.ID

	// Confirmations and Quorum describe the confirmation record after the
	// transition, when one exists.
	Confirmations int
	Quorum        int

	// Deadline is the challenge period expiry for recovery events.
	Deadline time.Time

	Timestamp time.Time
}

// Acceptor is implemented by monitors of gateway state transitions
type Acceptor interface {
	Accept(ctx context.Context, event Event) error
}

// RegisterAcceptor subscribes an acceptor to every future state transition
// under a unique name.
func (g *Gateway) RegisterAcceptor(name string, acceptor Acceptor) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.acceptors[name]; ok {
		return fmt.Errorf("acceptor %q already registered", name)
	}
	g.acceptors[name] = acceptor
	return nil
}

// DeregisterAcceptor removes a previously registered acceptor
func (g *Gateway) DeregisterAcceptor(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.acceptors[name]; !ok {
		return fmt.Errorf("acceptor %q not registered", name)
	}
	delete(g.acceptors, name)
	return nil
}

// emit delivers an event to every registered acceptor. Acceptor errors are
// logged, not propagated: events describe transitions that have already
// committed.
//
// Callers must hold g.mu.
func (g *Gateway) emit(ctx context.Context, event Event) {
	event.Timestamp = g.now()
	for name, acceptor := range g.acceptors {
		if err := acceptor.Accept(ctx, event); err != nil {
			g.log.Warn(
				"acceptor rejected event",
				log.String("acceptor", name),
				log.String("event", event.Type.String()),
				log.Err(err),
			)
		}
	}
}
