// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package messages

import (
	"context"
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

// BusinessHandler consumes decoded business messages. An error from any
// method aborts the gateway call that carried the message, leaving it
// undelivered.
type BusinessHandler interface {
	HandleNotifyPool(ctx context.Context, sourceChainID ids.ID, msg *NotifyPool) error
	HandleNotifyPrice(ctx context.Context, sourceChainID ids.ID, msg *NotifyPrice) error
	HandleFulfilledDeposit(ctx context.Context, sourceChainID ids.ID, msg *FulfilledDeposit) error
	HandleFulfilledRedeem(ctx context.Context, sourceChainID ids.ID, msg *FulfilledRedeem) error
}

// Dispatcher decodes inbound gateway message bodies and routes them to a
// BusinessHandler. It implements the gateway's Handler interface.
type Dispatcher struct {
	log     log.Logger
	handler BusinessHandler
}

// NewDispatcher creates a Dispatcher routing to handler
func NewDispatcher(handler BusinessHandler, logger log.Logger) *Dispatcher {
	return &Dispatcher{
		log:     logger,
		handler: handler,
	}
}

// HandleMessage decodes body and routes it by message type
func (d *Dispatcher) HandleMessage(ctx context.Context, sourceChainID ids.ID, body []byte) error {
	msg, err := Parse(body)
	if err != nil {
		return fmt.Errorf("failed to decode business message: %w", err)
	}

	d.log.Debug(
		"routing business message",
		log.Stringer("sourceChainID", sourceChainID),
		log.String("type", fmt.Sprintf("%T", msg)),
	)

	switch msg := msg.(type) {
	case *NotifyPool:
		return d.handler.HandleNotifyPool(ctx, sourceChainID, msg)
	case *NotifyPrice:
		return d.handler.HandleNotifyPrice(ctx, sourceChainID, msg)
	case *FulfilledDeposit:
		return d.handler.HandleFulfilledDeposit(ctx, sourceChainID, msg)
	case *FulfilledRedeem:
		return d.handler.HandleFulfilledRedeem(ctx, sourceChainID, msg)
	default:
		return fmt.Errorf("%w: unroutable message type %T", ErrInvalidMessage, msg)
	}
}
