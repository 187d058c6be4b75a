// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/gateway/payload"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds for adapter fees")
	ErrAlreadyBatching   = errors.New("batching already in progress")
	ErrNotBatching       = errors.New("batching not in progress")
)

// quoteKey identifies a cached fee quote
type quoteKey struct {
	chainID     ids.ID
	payloadHash ids.ID
}

// plannedSend is one adapter transmission of a prepared flush
type plannedSend struct {
	adapter Adapter
	raw     []byte
}

// planSends prepares the fan-out of bodies to every adapter of the set: the
// primary carries the full messages, every secondary carries the proofs, one
// hash per message. The returned fee is the sum of each adapter's estimate
// for the payload it will actually transmit.
func planSends(
	ctx context.Context,
	adapterSet *AdapterSet,
	destinationChainID ids.ID,
	bodies [][]byte,
) ([]plannedSend, *uint256.Int, error) {
	messages := make([]payload.Payload, len(bodies))
	proofs := make([]payload.Payload, len(bodies))
	for i, body := range bodies {
		msg, err := payload.NewMessage(body)
		if err != nil {
			return nil, nil, err
		}
		messages[i] = msg
		proofs[i] = payload.ProofOf(msg)
	}

	messageRaw := messages[0].Bytes()
	proofRaw := proofs[0].Bytes()
	if len(bodies) > 1 {
		messageBatch, err := payload.NewBatch(messages...)
		if err != nil {
			return nil, nil, err
		}
		proofBatch, err := payload.NewBatch(proofs...)
		if err != nil {
			return nil, nil, err
		}
		messageRaw = messageBatch.Bytes()
		proofRaw = proofBatch.Bytes()
	}

	adapters := adapterSet.Adapters()
	planned := make([]plannedSend, len(adapters))
	required := uint256.NewInt(0)
	for i, adapter := range adapters {
		raw := proofRaw
		if i == 0 {
			raw = messageRaw
		}
		cost, err := adapter.Estimate(ctx, destinationChainID, raw)
		if err != nil {
			return nil, nil, fmt.Errorf("adapter %s failed to estimate: %w", adapter.ID(), err)
		}
		required = required.Add(required, cost)
		planned[i] = plannedSend{adapter: adapter, raw: raw}
	}
	return planned, required, nil
}

// Send transmits a message body to a remote chain, funded by funds. Outside
// a batching window the fan-out happens immediately and the unspent portion
// of funds is returned; a shortfall aborts with nothing transmitted. Inside
// a batching window the message is queued and funds (which may be nil) are
// added to the batch escrow settled by EndBatching.
func (g *Gateway) Send(
	ctx context.Context,
	destinationChainID ids.ID,
	body []byte,
	funds *uint256.Int,
) (*uint256.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pauser.Paused() {
		return nil, ErrPaused
	}
	adapterSet, ok := g.adapters[destinationChainID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChain, destinationChainID)
	}
	if _, err := payload.NewMessage(body); err != nil {
		return nil, err
	}

	if g.batching {
		if _, queued := g.queued[destinationChainID]; !queued {
			g.order = append(g.order, destinationChainID)
		}
		g.queued[destinationChainID] = append(g.queued[destinationChainID], body)
		if funds != nil {
			g.escrow = g.escrow.Add(g.escrow, funds)
		}
		return uint256.NewInt(0), nil
	}

	if funds == nil {
		funds = uint256.NewInt(0)
	}
	required, err := g.flush(ctx, adapterSet, destinationChainID, [][]byte{body}, funds)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Sub(funds, required), nil
}

// StartBatching opens a batching window: subsequent Sends queue their
// messages per destination chain instead of transmitting, amortizing the
// per-adapter relay overhead of one top-level operation across all of them.
func (g *Gateway) StartBatching() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.batching {
		return ErrAlreadyBatching
	}
	g.batching = true
	g.escrow = uint256.NewInt(0)
	return nil
}

// EndBatching flushes every queued batch, paying each adapter's fee out of
// the accumulated escrow plus funds (which may be nil) and returning the
// surplus. A fee shortfall transmits nothing, discards the queued batches,
// and returns the entire escrow alongside ErrInsufficientFunds. An adapter
// send failure leaves the batches queued so the flush can be retried; no
// gateway state is committed, but envelopes already handed to earlier
// adapters are not recalled, so a retry re-transmits them. The destination
// gateway absorbs the repeats through per-adapter idempotent confirmation.
func (g *Gateway) EndBatching(ctx context.Context, funds *uint256.Int) (*uint256.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pauser.Paused() {
		return nil, ErrPaused
	}
	if !g.batching {
		return nil, ErrNotBatching
	}

	available := new(uint256.Int).Set(g.escrow)
	if funds != nil {
		available = available.Add(available, funds)
	}

	type chainPlan struct {
		chainID ids.ID
		planned []plannedSend
		bodies  int
	}
	plans := make([]chainPlan, 0, len(g.order))
	required := uint256.NewInt(0)
	for _, chainID := range g.order {
		adapterSet, ok := g.adapters[chainID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownChain, chainID)
		}
		planned, cost, err := planSends(ctx, adapterSet, chainID, g.queued[chainID])
		if err != nil {
			return nil, err
		}
		required = required.Add(required, cost)
		plans = append(plans, chainPlan{chainID: chainID, planned: planned, bodies: len(g.queued[chainID])})
	}

	if available.Lt(required) {
		g.resetBatch()
		return available, fmt.Errorf("%w: required %s, available %s", ErrInsufficientFunds, required, available)
	}

	for _, plan := range plans {
		if err := g.sendPlanned(ctx, plan.chainID, plan.planned); err != nil {
			return nil, err
		}
		g.metrics.outboundBatches.Inc()
		g.metrics.outboundMessages.Add(float64(plan.bodies))
		g.logBatchSent(ctx, plan.chainID, g.queued[plan.chainID])
	}

	g.resetBatch()
	return new(uint256.Int).Sub(available, required), nil
}

// flush performs a single-chain fan-out outside a batching window and
// returns the fee it consumed.
func (g *Gateway) flush(
	ctx context.Context,
	adapterSet *AdapterSet,
	destinationChainID ids.ID,
	bodies [][]byte,
	funds *uint256.Int,
) (*uint256.Int, error) {
	planned, required, err := planSends(ctx, adapterSet, destinationChainID, bodies)
	if err != nil {
		return nil, err
	}
	if funds.Lt(required) {
		return nil, fmt.Errorf("%w: required %s, available %s", ErrInsufficientFunds, required, funds)
	}
	if err := g.sendPlanned(ctx, destinationChainID, planned); err != nil {
		return nil, err
	}
	g.metrics.outboundBatches.Inc()
	g.metrics.outboundMessages.Add(float64(len(bodies)))
	g.logBatchSent(ctx, destinationChainID, bodies)
	return required, nil
}

func (g *Gateway) sendPlanned(ctx context.Context, destinationChainID ids.ID, planned []plannedSend) error {
	for _, send := range planned {
		if err := send.adapter.Send(ctx, destinationChainID, send.raw); err != nil {
			return fmt.Errorf("adapter %s failed to send: %w", send.adapter.ID(), err)
		}
	}
	return nil
}

func (g *Gateway) logBatchSent(ctx context.Context, destinationChainID ids.ID, bodies [][]byte) {
	for _, body := range bodies {
		hash := payload.Hash(body)
		g.log.Info(
			"sent message",
			log.Stringer("destinationChainID", destinationChainID),
			log.Stringer("payloadHash", hash),
		)
		g.emit(ctx, Event{
			Type:        EventBatchSent,
			ChainID:     destinationChainID,
			PayloadHash: hash,
		})
	}
}

func (g *Gateway) resetBatch() {
	g.batching = false
	g.queued = make(map[ids.ID][][]byte)
	g.order = nil
	g.escrow = nil
}

// QuoteSend returns the fee required to Send body to the destination chain
// right now: the sum of every configured adapter's estimate. Quotes are
// served from a short-lived cache; the flush itself always re-estimates, so
// a stale quote can never underfund a send silently.
func (g *Gateway) QuoteSend(ctx context.Context, destinationChainID ids.ID, body []byte) (*uint256.Int, error) {
	if _, err := payload.NewMessage(body); err != nil {
		return nil, err
	}

	g.mu.Lock()
	adapterSet, ok := g.adapters[destinationChainID]
	g.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChain, destinationChainID)
	}

	key := quoteKey{chainID: destinationChainID, payloadHash: payload.Hash(body)}
	return g.quotes.Get(key, func(quoteKey) (*uint256.Int, error) {
		_, required, err := planSends(ctx, adapterSet, destinationChainID, [][]byte{body})
		return required, err
	}, false)
}
