// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/luxfi/math/set"
)

var (
	ErrNoAdapters       = errors.New("no adapters configured")
	ErrDuplicateAdapter = errors.New("duplicate adapter")
)

// Adapter is one relay channel toward a remote chain. An adapter transmits
// opaque payload bytes on behalf of the local gateway and, on the remote
// chain, delivers payloads into that gateway's Handle entrypoint under its
// own identity. Transport mechanics are entirely the adapter's concern.
type Adapter interface {
	// ID returns the adapter's identity, checked against the configured
	// adapter set of the destination chain.
	ID() ids.NodeID

	// Send transmits payload toward the destination chain.
	Send(ctx context.Context, destinationChainID ids.ID, payload []byte) error

	// Estimate returns the fee the adapter charges to relay payload to the
	// destination chain.
	Estimate(ctx context.Context, destinationChainID ids.ID, payload []byte) (*uint256.Int, error)
}

// AdapterSet is the ordered, deduplicated set of adapters configured for one
// remote chain. The adapter at index 0 is the primary and transmits full
// messages; every other adapter transmits proofs. The same set must be
// configured symmetrically on both ends of a channel or quorum can never be
// reached.
type AdapterSet struct {
	ordered []Adapter
	members set.Set[ids.NodeID]
}

// NewAdapterSet creates an adapter set from an ordered adapter list
func NewAdapterSet(adapters []Adapter) (*AdapterSet, error) {
	if len(adapters) == 0 {
		return nil, ErrNoAdapters
	}

	members := set.NewSet[ids.NodeID](len(adapters))
	ordered := make([]Adapter, len(adapters))
	for i, adapter := range adapters {
		id := adapter.ID()
		if members.Contains(id) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAdapter, id)
		}
		members.Add(id)
		ordered[i] = adapter
	}

	return &AdapterSet{
		ordered: ordered,
		members: members,
	}, nil
}

// Len returns the number of configured adapters. This is also the quorum
// required to accept an inbound message.
func (s *AdapterSet) Len() int {
	return len(s.ordered)
}

// Primary returns the adapter responsible for full message bodies
func (s *AdapterSet) Primary() Adapter {
	return s.ordered[0]
}

// Adapters returns the ordered adapter list
func (s *AdapterSet) Adapters() []Adapter {
	out := make([]Adapter, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Contains reports whether id is a member of the set
func (s *AdapterSet) Contains(id ids.NodeID) bool {
	return s.members.Contains(id)
}

// IsPrimary reports whether id is the primary adapter
func (s *AdapterSet) IsPrimary(id ids.NodeID) bool {
	return s.ordered[0].ID() == id
}
