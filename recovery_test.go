// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/gateway/payload"
)

// setClock pins the gateway clock to a controllable instant
func setClock(g *Gateway, start time.Time) *time.Time {
	current := start
	g.now = func() time.Time { return current }
	return &current
}

func TestRecoveryLifecycle(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	clock := setClock(env.gateway, time.Unix(1_700_000_000, 0))

	body := []byte("stuck message")
	raws := env.deliveries(t, body)
	hash := payload.Hash(body)

	// Two of three adapters delivered; the third went dark
	require.NoError(t, env.gateway.Handle(ctx, env.chainID, env.adapters[0].ID(), raws[0]))
	require.NoError(t, env.gateway.Handle(ctx, env.chainID, env.adapters[1].ID(), raws[1]))
	require.Empty(t, env.handler.messages())

	reporter := env.adapters[0].ID()
	recoverer := env.adapters[2].ID()
	msg, err := payload.NewMessage(body)
	require.NoError(t, err)

	require.NoError(t, env.gateway.InitiateRecovery(ctx, env.chainID, reporter, recoverer, hash))

	deadline, ok := env.gateway.RecoveryDeadline(env.chainID, recoverer, hash)
	require.True(t, ok)
	require.Equal(t, clock.Add(DefaultChallengePeriod), deadline)

	// Executing during the challenge period fails
	err = env.gateway.ExecuteRecovery(ctx, env.chainID, recoverer, msg.Bytes())
	require.ErrorIs(t, err, ErrChallengePeriodNotEnded)
	require.Empty(t, env.handler.messages())

	// Undisputed past the deadline, execution counts the missing
	// confirmation and dispatches
	*clock = clock.Add(DefaultChallengePeriod)
	require.NoError(t, env.gateway.ExecuteRecovery(ctx, env.chainID, recoverer, msg.Bytes()))

	received := env.handler.messages()
	require.Len(t, received, 1)
	require.Equal(t, body, received[0].body)

	// The claim was consumed
	_, ok = env.gateway.RecoveryDeadline(env.chainID, recoverer, hash)
	require.False(t, ok)
	err = env.gateway.ExecuteRecovery(ctx, env.chainID, recoverer, msg.Bytes())
	require.ErrorIs(t, err, ErrRecoveryNotInitiated)
}

func TestRecoveryDisputeCancelsClaim(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()
	clock := setClock(env.gateway, time.Unix(1_700_000_000, 0))

	body := []byte("disputed")
	hash := payload.Hash(body)
	reporter := env.adapters[0].ID()
	recoverer := env.adapters[1].ID()
	msg, err := payload.NewMessage(body)
	require.NoError(t, err)

	require.NoError(t, env.gateway.InitiateRecovery(ctx, env.chainID, reporter, recoverer, hash))

	// Only guardians may dispute
	err = env.gateway.DisputeRecovery(ctx, env.chainID, ids.GenerateTestNodeID(), reporter, recoverer, hash)
	require.ErrorIs(t, err, ErrNotGuardian)

	// The dispute must name the claim's reporter
	err = env.gateway.DisputeRecovery(ctx, env.chainID, env.guardian, ids.GenerateTestNodeID(), recoverer, hash)
	require.ErrorIs(t, err, ErrRecoveryNotInitiated)

	require.NoError(t, env.gateway.DisputeRecovery(ctx, env.chainID, env.guardian, reporter, recoverer, hash))

	// A disputed claim cannot be executed, even past the old deadline
	*clock = clock.Add(2 * DefaultChallengePeriod)
	err = env.gateway.ExecuteRecovery(ctx, env.chainID, recoverer, msg.Bytes())
	require.ErrorIs(t, err, ErrRecoveryNotInitiated)

	// The tuple may be re-initiated after a dispute
	require.NoError(t, env.gateway.InitiateRecovery(ctx, env.chainID, reporter, recoverer, hash))
}

func TestRecoveryCompletesQuorum(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	clock := setClock(env.gateway, time.Unix(1_700_000_000, 0))

	body := []byte("recovered secondary")
	raws := env.deliveries(t, body)
	hash := payload.Hash(body)
	recoverer := env.adapters[2].ID()
	msg, err := payload.NewMessage(body)
	require.NoError(t, err)

	// Recovery executes before the primary has delivered: the recovered
	// secondary confirmation counts, but there is no body to dispatch yet
	require.NoError(t, env.gateway.Handle(ctx, env.chainID, env.adapters[1].ID(), raws[1]))
	require.NoError(t, env.gateway.InitiateRecovery(ctx, env.chainID, env.adapters[0].ID(), recoverer, hash))
	*clock = clock.Add(DefaultChallengePeriod)
	require.NoError(t, env.gateway.ExecuteRecovery(ctx, env.chainID, recoverer, msg.Bytes()))
	require.Empty(t, env.handler.messages())

	confirmations, quorum, ok := env.gateway.Confirmations(env.chainID, hash)
	require.True(t, ok)
	require.Equal(t, 2, confirmations)
	require.Equal(t, 3, quorum)

	// The primary's delivery completes the quorum
	require.NoError(t, env.gateway.Handle(ctx, env.chainID, env.adapters[0].ID(), raws[0]))
	received := env.handler.messages()
	require.Len(t, received, 1)
	require.Equal(t, body, received[0].body)
}

func TestRecoveryOfPrimaryAttachesBody(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()
	clock := setClock(env.gateway, time.Unix(1_700_000_000, 0))

	body := []byte("primary went dark")
	raws := env.deliveries(t, body)
	hash := payload.Hash(body)
	primary := env.adapters[0].ID()
	msg, err := payload.NewMessage(body)
	require.NoError(t, err)

	require.NoError(t, env.gateway.Handle(ctx, env.chainID, env.adapters[1].ID(), raws[1]))
	require.NoError(t, env.gateway.InitiateRecovery(ctx, env.chainID, env.adapters[1].ID(), primary, hash))
	*clock = clock.Add(DefaultChallengePeriod)

	// Recovering the primary's slot supplies the message body, completing
	// both the quorum and the dispatchable payload
	require.NoError(t, env.gateway.ExecuteRecovery(ctx, env.chainID, primary, msg.Bytes()))
	received := env.handler.messages()
	require.Len(t, received, 1)
	require.Equal(t, body, received[0].body)
}

func TestInitiateRecoveryValidation(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()

	body := []byte("validated")
	hash := payload.Hash(body)
	reporter := env.adapters[0].ID()
	recoverer := env.adapters[1].ID()

	err := env.gateway.InitiateRecovery(ctx, ids.GenerateTestID(), reporter, recoverer, hash)
	require.ErrorIs(t, err, ErrUnknownChain)

	err = env.gateway.InitiateRecovery(ctx, env.chainID, ids.GenerateTestNodeID(), recoverer, hash)
	require.ErrorIs(t, err, ErrUnknownAdapter)

	err = env.gateway.InitiateRecovery(ctx, env.chainID, reporter, ids.GenerateTestNodeID(), hash)
	require.ErrorIs(t, err, ErrUnknownAdapter)

	require.NoError(t, env.gateway.InitiateRecovery(ctx, env.chainID, reporter, recoverer, hash))
	err = env.gateway.InitiateRecovery(ctx, env.chainID, reporter, recoverer, hash)
	require.ErrorIs(t, err, ErrRecoveryPending)

	env.pauser.paused = true
	err = env.gateway.InitiateRecovery(ctx, env.chainID, reporter, recoverer, payload.Hash([]byte("other")))
	require.ErrorIs(t, err, ErrPaused)
}

func TestExecuteRecoveryValidation(t *testing.T) {
	env := newTestEnv(t, 2)
	ctx := context.Background()
	clock := setClock(env.gateway, time.Unix(1_700_000_000, 0))

	body := []byte("execute checks")
	hash := payload.Hash(body)
	recoverer := env.adapters[1].ID()
	msg, err := payload.NewMessage(body)
	require.NoError(t, err)

	// No claim pending
	err = env.gateway.ExecuteRecovery(ctx, env.chainID, recoverer, msg.Bytes())
	require.ErrorIs(t, err, ErrRecoveryNotInitiated)

	require.NoError(t, env.gateway.InitiateRecovery(ctx, env.chainID, env.adapters[0].ID(), recoverer, hash))
	*clock = clock.Add(DefaultChallengePeriod)

	// A proof is not enough to execute with
	err = env.gateway.ExecuteRecovery(ctx, env.chainID, recoverer, payload.ProofOf(msg).Bytes())
	require.ErrorIs(t, err, ErrRecoveryNotMessage)

	err = env.gateway.ExecuteRecovery(ctx, env.chainID, recoverer, []byte{0x01})
	require.ErrorIs(t, err, payload.ErrInvalidPayload)

	// A message with a different body does not match the claim
	other, err := payload.NewMessage([]byte("different body"))
	require.NoError(t, err)
	err = env.gateway.ExecuteRecovery(ctx, env.chainID, recoverer, other.Bytes())
	require.ErrorIs(t, err, ErrRecoveryNotInitiated)

	env.pauser.paused = true
	err = env.gateway.ExecuteRecovery(ctx, env.chainID, recoverer, msg.Bytes())
	require.ErrorIs(t, err, ErrPaused)
}
