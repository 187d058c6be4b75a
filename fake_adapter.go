// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"context"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
)

// FakeAdapter is a test implementation of Adapter that records every send
// and charges a flat fee per transmission.
type FakeAdapter struct {
	id  ids.NodeID
	fee *uint256.Int

	// SendErr, when set, is returned by Send
	SendErr error

	// EstimateErr, when set, is returned by Estimate
	EstimateErr error

	mu    sync.Mutex
	sends []FakeSend
}

// FakeSend records one Send call
type FakeSend struct {
	DestinationChainID ids.ID
	Payload            []byte
}

// NewFakeAdapter creates a fake adapter with the given identity and flat fee
func NewFakeAdapter(id ids.NodeID, fee uint64) *FakeAdapter {
	return &FakeAdapter{
		id:  id,
		fee: uint256.NewInt(fee),
	}
}

func (a *FakeAdapter) ID() ids.NodeID {
	return a.id
}

func (a *FakeAdapter) Send(_ context.Context, destinationChainID ids.ID, payload []byte) error {
	if a.SendErr != nil {
		return a.SendErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	raw := make([]byte, len(payload))
	copy(raw, payload)
	a.sends = append(a.sends, FakeSend{
		DestinationChainID: destinationChainID,
		Payload:            raw,
	})
	return nil
}

func (a *FakeAdapter) Estimate(context.Context, ids.ID, []byte) (*uint256.Int, error) {
	if a.EstimateErr != nil {
		return nil, a.EstimateErr
	}
	return new(uint256.Int).Set(a.fee), nil
}

// Sends returns the recorded Send calls
func (a *FakeAdapter) Sends() []FakeSend {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]FakeSend, len(a.sends))
	copy(out, a.sends)
	return out
}
