// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package utils provides small helpers shared across the gateway packages.
package utils

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/luxfi/log"
)

// WithRetriesTimeout uses an exponential backoff to run the operation until
// it succeeds or the timeout limit has been reached.
func WithRetriesTimeout(
	logger log.Logger,
	operation backoff.Operation,
	timeout time.Duration,
) error {
	expBackOff := backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(timeout),
	)
	notify := func(err error, duration time.Duration) {
		logger.Warn("operation failed, retrying...", log.Err(err), log.Duration("backoff", duration))
	}
	return backoff.RetryNotify(operation, expBackOff, notify)
}
