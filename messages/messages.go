// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package messages defines the typed business messages carried as gateway
// message bodies, and a dispatcher that decodes inbound bodies and routes
// them to a business handler.
package messages

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/rlp"
	"github.com/luxfi/ids"
)

// Message type IDs
const (
	// NotifyPoolID tags a pool creation notification
	NotifyPoolID uint32 = 0

	// NotifyPriceID tags a share price update
	NotifyPriceID uint32 = 1

	// FulfilledDepositID tags a fulfilled deposit request
	FulfilledDepositID uint32 = 2

	// FulfilledRedeemID tags a fulfilled redeem request
	FulfilledRedeemID uint32 = 3
)

var (
	// ErrInvalidMessage is returned when a message body is malformed
	ErrInvalidMessage = errors.New("invalid message")
)

// Message is a typed business message encodable as a gateway message body
type Message interface {
	// Bytes returns the canonical byte representation of the message
	Bytes() []byte

	// Verify verifies the message
	Verify() error
}

// envelope is the outer body frame: a type tag and the RLP of the inner type
type envelope struct {
	Kind uint32
	Data []byte
}

func wrap(kind uint32, v interface{}) []byte {
	data, _ := rlp.EncodeToBytes(v)
	b, _ := rlp.EncodeToBytes(&envelope{Kind: kind, Data: data})
	return b
}

// NotifyPool announces the creation of a pool to a remote chain
type NotifyPool struct {
	PoolID uint64
}

// NewNotifyPool creates a pool creation notification
func NewNotifyPool(poolID uint64) (*NotifyPool, error) {
	m := &NotifyPool{PoolID: poolID}
	if err := m.Verify(); err != nil {
		return nil, err
	}
	return m, nil
}

// Verify verifies the message
func (m *NotifyPool) Verify() error {
	if m.PoolID == 0 {
		return fmt.Errorf("%w: zero pool id", ErrInvalidMessage)
	}
	return nil
}

// Bytes returns the canonical byte representation of the message
func (m *NotifyPool) Bytes() []byte {
	return wrap(NotifyPoolID, m)
}

// NotifyPrice publishes the price per share of a pool's share class, priced
// at ComputedAt (unix seconds).
type NotifyPrice struct {
	PoolID       uint64
	ShareClassID ids.ID
	Price        *uint256.Int
	ComputedAt   uint64
}

// NewNotifyPrice creates a share price update
func NewNotifyPrice(poolID uint64, shareClassID ids.ID, price *uint256.Int, computedAt uint64) (*NotifyPrice, error) {
	m := &NotifyPrice{
		PoolID:       poolID,
		ShareClassID: shareClassID,
		Price:        price,
		ComputedAt:   computedAt,
	}
	if err := m.Verify(); err != nil {
		return nil, err
	}
	return m, nil
}

// Verify verifies the message
func (m *NotifyPrice) Verify() error {
	switch {
	case m.PoolID == 0:
		return fmt.Errorf("%w: zero pool id", ErrInvalidMessage)
	case m.ShareClassID == ids.Empty:
		return fmt.Errorf("%w: empty share class id", ErrInvalidMessage)
	case m.Price == nil:
		return fmt.Errorf("%w: nil price", ErrInvalidMessage)
	case m.ComputedAt == 0:
		return fmt.Errorf("%w: zero price timestamp", ErrInvalidMessage)
	}
	return nil
}

// Bytes returns the canonical byte representation of the message
func (m *NotifyPrice) Bytes() []byte {
	return wrap(NotifyPriceID, m)
}

// FulfilledDeposit reports that an investor's deposit request was fulfilled:
// AssetAmount was consumed and ShareAmount issued in return.
type FulfilledDeposit struct {
	PoolID       uint64
	ShareClassID ids.ID
	Investor     ids.ID
	AssetAmount  *uint256.Int
	ShareAmount  *uint256.Int
}

// NewFulfilledDeposit creates a fulfilled deposit report
func NewFulfilledDeposit(
	poolID uint64,
	shareClassID ids.ID,
	investor ids.ID,
	assetAmount *uint256.Int,
	shareAmount *uint256.Int,
) (*FulfilledDeposit, error) {
	m := &FulfilledDeposit{
		PoolID:       poolID,
		ShareClassID: shareClassID,
		Investor:     investor,
		AssetAmount:  assetAmount,
		ShareAmount:  shareAmount,
	}
	if err := m.Verify(); err != nil {
		return nil, err
	}
	return m, nil
}

// Verify verifies the message
func (m *FulfilledDeposit) Verify() error {
	switch {
	case m.PoolID == 0:
		return fmt.Errorf("%w: zero pool id", ErrInvalidMessage)
	case m.ShareClassID == ids.Empty:
		return fmt.Errorf("%w: empty share class id", ErrInvalidMessage)
	case m.Investor == ids.Empty:
		return fmt.Errorf("%w: empty investor", ErrInvalidMessage)
	case m.AssetAmount == nil || m.ShareAmount == nil:
		return fmt.Errorf("%w: nil amount", ErrInvalidMessage)
	}
	return nil
}

// Bytes returns the canonical byte representation of the message
func (m *FulfilledDeposit) Bytes() []byte {
	return wrap(FulfilledDepositID, m)
}

// FulfilledRedeem reports that an investor's redeem request was fulfilled:
// ShareAmount was burned and AssetAmount paid out in return.
type FulfilledRedeem struct {
	PoolID       uint64
	ShareClassID ids.ID
	Investor     ids.ID
	AssetAmount  *uint256.Int
	ShareAmount  *uint256.Int
}

// NewFulfilledRedeem creates a fulfilled redeem report
func NewFulfilledRedeem(
	poolID uint64,
	shareClassID ids.ID,
	investor ids.ID,
	assetAmount *uint256.Int,
	shareAmount *uint256.Int,
) (*FulfilledRedeem, error) {
	m := &FulfilledRedeem{
		PoolID:       poolID,
		ShareClassID: shareClassID,
		Investor:     investor,
		AssetAmount:  assetAmount,
		ShareAmount:  shareAmount,
	}
	if err := m.Verify(); err != nil {
		return nil, err
	}
	return m, nil
}

// Verify verifies the message
func (m *FulfilledRedeem) Verify() error {
	switch {
	case m.PoolID == 0:
		return fmt.Errorf("%w: zero pool id", ErrInvalidMessage)
	case m.ShareClassID == ids.Empty:
		return fmt.Errorf("%w: empty share class id", ErrInvalidMessage)
	case m.Investor == ids.Empty:
		return fmt.Errorf("%w: empty investor", ErrInvalidMessage)
	case m.AssetAmount == nil || m.ShareAmount == nil:
		return fmt.Errorf("%w: nil amount", ErrInvalidMessage)
	}
	return nil
}

// Bytes returns the canonical byte representation of the message
func (m *FulfilledRedeem) Bytes() []byte {
	return wrap(FulfilledRedeemID, m)
}

// Parse parses a typed message from a gateway message body
func Parse(b []byte) (Message, error) {
	var outer envelope
	if err := rlp.DecodeBytes(b, &outer); err != nil {
		return nil, fmt.Errorf("%w: failed to decode envelope: %s", ErrInvalidMessage, err)
	}

	var m Message
	switch outer.Kind {
	case NotifyPoolID:
		m = &NotifyPool{}
	case NotifyPriceID:
		m = &NotifyPrice{}
	case FulfilledDepositID:
		m = &FulfilledDeposit{}
	case FulfilledRedeemID:
		m = &FulfilledRedeem{}
	default:
		return nil, fmt.Errorf("%w: unknown message type %d", ErrInvalidMessage, outer.Kind)
	}

	if err := rlp.DecodeBytes(outer.Data, m); err != nil {
		return nil, fmt.Errorf("%w: failed to decode message type %d: %s", ErrInvalidMessage, outer.Kind, err)
	}
	if err := m.Verify(); err != nil {
		return nil, err
	}
	return m, nil
}
