// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/gateway/payload"
)

func TestSendFansOut(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	body := []byte("outbound")

	refund, err := env.gateway.Send(ctx, env.chainID, body, uint256.NewInt(100))
	require.NoError(t, err)

	// Three adapters at a flat fee of 10 each
	require.Equal(t, uint256.NewInt(70), refund)

	msg, err := payload.NewMessage(body)
	require.NoError(t, err)
	proof := payload.ProofOf(msg)

	for i, adapter := range env.adapters {
		sends := adapter.Sends()
		require.Len(t, sends, 1)
		require.Equal(t, env.chainID, sends[0].DestinationChainID)

		want := proof.Bytes()
		if i == 0 {
			want = msg.Bytes()
		}
		require.Equal(t, want, sends[0].Payload)
	}
}

func TestSendInsufficientFundsTransmitsNothing(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()

	_, err := env.gateway.Send(ctx, env.chainID, []byte("underfunded"), uint256.NewInt(29))
	require.ErrorIs(t, err, ErrInsufficientFunds)

	for _, adapter := range env.adapters {
		require.Empty(t, adapter.Sends())
	}
}

func TestSendValidation(t *testing.T) {
	env := newTestEnv(t, 1)
	ctx := context.Background()

	_, err := env.gateway.Send(ctx, ids.GenerateTestID(), []byte("x"), uint256.NewInt(100))
	require.ErrorIs(t, err, ErrUnknownChain)

	_, err = env.gateway.Send(ctx, env.chainID, nil, uint256.NewInt(100))
	require.ErrorIs(t, err, payload.ErrInvalidPayload)

	env.pauser.paused = true
	_, err = env.gateway.Send(ctx, env.chainID, []byte("x"), uint256.NewInt(100))
	require.ErrorIs(t, err, ErrPaused)
}

func TestSendEstimateFailureAborts(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()
	estimateErr := errors.New("relay offline")
	env.adapters[1].EstimateErr = estimateErr

	_, err := env.gateway.Send(ctx, env.chainID, []byte("x"), uint256.NewInt(100))
	require.ErrorIs(t, err, estimateErr)
	require.Empty(t, env.adapters[0].Sends())
}

func TestBatchingFlushesPerChain(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()

	// A second destination chain with its own adapter pair
	otherChainID := ids.GenerateTestID()
	otherAdapters := []*FakeAdapter{
		NewFakeAdapter(ids.GenerateTestNodeID(), 5),
		NewFakeAdapter(ids.GenerateTestNodeID(), 5),
	}
	require.NoError(t, env.gateway.SetAdapters(otherChainID, []Adapter{otherAdapters[0], otherAdapters[1]}))

	require.NoError(t, env.gateway.StartBatching())

	first := []byte("first")
	second := []byte("second")
	third := []byte("for the other chain")

	refund, err := env.gateway.Send(ctx, env.chainID, first, uint256.NewInt(15))
	require.NoError(t, err)
	require.True(t, refund.IsZero())

	_, err = env.gateway.Send(ctx, env.chainID, second, nil)
	require.NoError(t, err)
	_, err = env.gateway.Send(ctx, otherChainID, third, uint256.NewInt(10))
	require.NoError(t, err)

	// Nothing is transmitted while the window is open
	require.Empty(t, env.adapters[0].Sends())
	require.Empty(t, otherAdapters[0].Sends())

	// Fees: 2 adapters x 10 for env.chainID, 2 adapters x 5 for the other
	// chain. Escrow holds 25, so 30 total leaves a surplus of 5.
	surplus, err := env.gateway.EndBatching(ctx, uint256.NewInt(5))
	require.NoError(t, err)
	require.True(t, surplus.IsZero())

	// env.chainID's primary got one batch with both messages
	sends := env.adapters[0].Sends()
	require.Len(t, sends, 1)
	batch := requireBatch(t, sends[0].Payload)
	require.Len(t, batch, 2)
	require.Equal(t, first, batch[0].(*payload.Message).Body)
	require.Equal(t, second, batch[1].(*payload.Message).Body)

	// env.chainID's secondary got the matching proof batch
	sends = env.adapters[1].Sends()
	require.Len(t, sends, 1)
	batch = requireBatch(t, sends[0].Payload)
	require.Len(t, batch, 2)
	require.Equal(t, payload.Hash(first), batch[0].(*payload.Proof).Hash)
	require.Equal(t, payload.Hash(second), batch[1].(*payload.Proof).Hash)

	// The single-message chain got a bare message, not a batch
	sends = otherAdapters[0].Sends()
	require.Len(t, sends, 1)
	p, err := payload.Parse(sends[0].Payload)
	require.NoError(t, err)
	require.Equal(t, third, p.(*payload.Message).Body)

	// The window is closed
	_, err = env.gateway.EndBatching(ctx, nil)
	require.ErrorIs(t, err, ErrNotBatching)
}

func TestBatchingSurplusRefund(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()

	require.NoError(t, env.gateway.StartBatching())
	_, err := env.gateway.Send(ctx, env.chainID, []byte("x"), uint256.NewInt(12))
	require.NoError(t, err)

	// Escrow 12 + funds 18 against a 20 fee leaves 10
	surplus, err := env.gateway.EndBatching(ctx, uint256.NewInt(18))
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(10), surplus)
}

func TestEndBatchingShortfallDiscardsBatches(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()

	require.NoError(t, env.gateway.StartBatching())
	_, err := env.gateway.Send(ctx, env.chainID, []byte("x"), uint256.NewInt(7))
	require.NoError(t, err)

	// 7 escrowed + 3 supplied < 20 required
	available, err := env.gateway.EndBatching(ctx, uint256.NewInt(3))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, uint256.NewInt(10), available)

	for _, adapter := range env.adapters {
		require.Empty(t, adapter.Sends())
	}

	// The shortfall closed the window and discarded the queue: a fresh
	// window starts empty
	require.NoError(t, env.gateway.StartBatching())
	surplus, err := env.gateway.EndBatching(ctx, uint256.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(1), surplus)
	require.Empty(t, env.adapters[0].Sends())
}

func TestEndBatchingSendFailureKeepsQueue(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()
	sendErr := errors.New("relay rejected")

	require.NoError(t, env.gateway.StartBatching())
	_, err := env.gateway.Send(ctx, env.chainID, []byte("retried"), uint256.NewInt(20))
	require.NoError(t, err)

	env.adapters[1].SendErr = sendErr
	_, err = env.gateway.EndBatching(ctx, nil)
	require.ErrorIs(t, err, sendErr)

	// The primary transmitted before the failure; nothing recalls those
	// bytes
	require.Len(t, env.adapters[0].Sends(), 1)

	// The batch survives for a retry, which re-transmits through every
	// adapter; the destination absorbs the repeat via idempotent
	// confirmation
	env.adapters[1].SendErr = nil
	surplus, err := env.gateway.EndBatching(ctx, nil)
	require.NoError(t, err)
	require.True(t, surplus.IsZero())
	require.Len(t, env.adapters[0].Sends(), 2)
	require.Len(t, env.adapters[1].Sends(), 1)
}

func TestStartBatchingTwice(t *testing.T) {
	env := newTestEnv(t, 1)

	require.NoError(t, env.gateway.StartBatching())
	require.ErrorIs(t, env.gateway.StartBatching(), ErrAlreadyBatching)
}

func TestQuoteSend(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	body := []byte("quoted")

	quote, err := env.gateway.QuoteSend(ctx, env.chainID, body)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(30), quote)

	// Quotes are served from cache while fresh: a transient estimate
	// failure is not visible
	env.adapters[0].EstimateErr = errors.New("flaky")
	quote, err = env.gateway.QuoteSend(ctx, env.chainID, body)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(30), quote)

	_, err = env.gateway.QuoteSend(ctx, ids.GenerateTestID(), body)
	require.ErrorIs(t, err, ErrUnknownChain)

	_, err = env.gateway.QuoteSend(ctx, env.chainID, nil)
	require.ErrorIs(t, err, payload.ErrInvalidPayload)
}

func requireBatch(t *testing.T, raw []byte) []payload.Payload {
	t.Helper()

	p, err := payload.Parse(raw)
	require.NoError(t, err)
	batch, ok := p.(*payload.Batch)
	require.True(t, ok)
	payloads, err := batch.Payloads()
	require.NoError(t, err)
	return payloads
}
