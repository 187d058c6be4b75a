// Copyright (C) 2025, Lux Industries, Inc.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/gateway"
	"github.com/luxfi/gateway/messages"
	"github.com/luxfi/gateway/payload"
)

// loopbackAdapter delivers sends directly into the destination gateway's
// Handle, splitting batches into individual envelopes the way a real relay
// network does.
type loopbackAdapter struct {
	id            ids.NodeID
	sourceChainID ids.ID
	destination   *gateway.Gateway
	fee           *uint256.Int
}

func (a *loopbackAdapter) ID() ids.NodeID { return a.id }

func (a *loopbackAdapter) Send(ctx context.Context, _ ids.ID, raw []byte) error {
	p, err := payload.Parse(raw)
	if err != nil {
		return err
	}
	if batch, ok := p.(*payload.Batch); ok {
		for _, entry := range batch.Entries {
			if err := a.destination.Handle(ctx, a.sourceChainID, a.id, entry); err != nil {
				return err
			}
		}
		return nil
	}
	return a.destination.Handle(ctx, a.sourceChainID, a.id, raw)
}

func (a *loopbackAdapter) Estimate(context.Context, ids.ID, []byte) (*uint256.Int, error) {
	return new(uint256.Int).Set(a.fee), nil
}

// printingHandler logs every business message the spoke gateway releases
type printingHandler struct{}

func (printingHandler) HandleNotifyPool(_ context.Context, sourceChainID ids.ID, msg *messages.NotifyPool) error {
	fmt.Printf("pool %d created (announced by chain %s)\n", msg.PoolID, sourceChainID)
	return nil
}

func (printingHandler) HandleNotifyPrice(_ context.Context, _ ids.ID, msg *messages.NotifyPrice) error {
	fmt.Printf("pool %d share class %s priced at %s\n", msg.PoolID, msg.ShareClassID, msg.Price)
	return nil
}

func (printingHandler) HandleFulfilledDeposit(_ context.Context, _ ids.ID, msg *messages.FulfilledDeposit) error {
	fmt.Printf("pool %d deposit fulfilled: %s assets for %s shares\n", msg.PoolID, msg.AssetAmount, msg.ShareAmount)
	return nil
}

func (printingHandler) HandleFulfilledRedeem(_ context.Context, _ ids.ID, msg *messages.FulfilledRedeem) error {
	fmt.Printf("pool %d redeem fulfilled: %s shares for %s assets\n", msg.PoolID, msg.ShareAmount, msg.AssetAmount)
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()
	logger := log.NewNoOpLogger()

	hubChainID := ids.GenerateTestID()
	spokeChainID := ids.GenerateTestID()

	// The spoke gateway routes released messages to the business handler
	spoke, err := gateway.New(gateway.Config{
		Handler: messages.NewDispatcher(printingHandler{}, logger),
	}, logger)
	if err != nil {
		return err
	}

	// The hub only sends in this example
	hub, err := gateway.New(gateway.Config{
		Handler: messages.NewDispatcher(printingHandler{}, logger),
	}, logger)
	if err != nil {
		return err
	}

	// Two relay routes from the hub to the spoke: the first carries full
	// messages, the second carries proofs
	primary := &loopbackAdapter{
		id:            ids.GenerateTestNodeID(),
		sourceChainID: hubChainID,
		destination:   spoke,
		fee:           uint256.NewInt(10),
	}
	secondary := &loopbackAdapter{
		id:            ids.GenerateTestNodeID(),
		sourceChainID: hubChainID,
		destination:   spoke,
		fee:           uint256.NewInt(5),
	}

	if err := hub.SetAdapters(spokeChainID, []gateway.Adapter{primary, secondary}); err != nil {
		return err
	}
	// The spoke accepts deliveries from the same routes
	if err := spoke.SetAdapters(hubChainID, []gateway.Adapter{primary, secondary}); err != nil {
		return err
	}

	quote, err := hub.QuoteSend(ctx, spokeChainID, mustNotifyPool(1).Bytes())
	if err != nil {
		return err
	}
	fmt.Printf("sending one message costs %s\n", quote)

	// A single send fans out immediately and dispatches on the spoke once
	// both adapters have delivered
	refund, err := hub.Send(ctx, spokeChainID, mustNotifyPool(1).Bytes(), uint256.NewInt(100))
	if err != nil {
		return err
	}
	fmt.Printf("refund after send: %s\n", refund)

	// Batched sends share one flush
	if err := hub.StartBatching(); err != nil {
		return err
	}
	price, err := messages.NewNotifyPrice(1, ids.GenerateTestID(), uint256.NewInt(1_050_000), 1_700_000_000)
	if err != nil {
		return err
	}
	if _, err := hub.Send(ctx, spokeChainID, price.Bytes(), uint256.NewInt(20)); err != nil {
		return err
	}
	deposit, err := messages.NewFulfilledDeposit(1, price.ShareClassID, ids.GenerateTestID(), uint256.NewInt(1000), uint256.NewInt(950))
	if err != nil {
		return err
	}
	if _, err := hub.Send(ctx, spokeChainID, deposit.Bytes(), nil); err != nil {
		return err
	}
	surplus, err := hub.EndBatching(ctx, nil)
	if err != nil {
		return err
	}
	fmt.Printf("surplus after batch: %s\n", surplus)
	return nil
}

func mustNotifyPool(poolID uint64) *messages.NotifyPool {
	msg, err := messages.NewNotifyPool(poolID)
	if err != nil {
		panic(err)
	}
	return msg
}
