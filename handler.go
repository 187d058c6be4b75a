// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"context"

	"github.com/luxfi/ids"
)

// Handler consumes messages that have reached quorum. The gateway never
// invokes a handler with an unconfirmed message, and a handler error aborts
// the delivering call with gateway state unchanged. The handler runs outside
// the gateway lock and may call back into the gateway, e.g. to send a reply.
type Handler interface {
	// HandleMessage processes the body of a fully confirmed message from
	// sourceChainID.
	HandleMessage(ctx context.Context, sourceChainID ids.ID, message []byte) error
}

// Pauser exposes the global pause flag owned by the external guardian/root
// authority. While paused, every gateway entrypoint rejects its call.
type Pauser interface {
	Paused() bool
}

// NeverPaused is a Pauser that never pauses, for deployments without a
// guardian pause switch.
type NeverPaused struct{}

func (NeverPaused) Paused() bool { return false }
