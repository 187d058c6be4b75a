// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

type gatewayMetrics struct {
	confirmations        prometheus.Counter
	dispatches           prometheus.Counter
	duplicateDeliveries  prometheus.Counter
	pendingConfirmations prometheus.Gauge
	recoveriesInitiated  prometheus.Counter
	recoveriesDisputed   prometheus.Counter
	recoveriesExecuted   prometheus.Counter
	outboundMessages     prometheus.Counter
	outboundBatches      prometheus.Counter
}

func newGatewayMetrics(registerer prometheus.Registerer) *gatewayMetrics {
	m := gatewayMetrics{
		confirmations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_confirmations",
				Help: "Number of adapter confirmations counted",
			},
		),
		dispatches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_dispatches",
				Help: "Number of messages dispatched to the handler after quorum",
			},
		),
		duplicateDeliveries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_duplicate_deliveries",
				Help: "Number of redundant deliveries ignored (same adapter, same payload)",
			},
		),
		pendingConfirmations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gateway_pending_confirmations",
				Help: "Number of payload hashes below quorum",
			},
		),
		recoveriesInitiated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_recoveries_initiated",
				Help: "Number of recovery claims opened",
			},
		),
		recoveriesDisputed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_recoveries_disputed",
				Help: "Number of recovery claims cancelled by a guardian",
			},
		),
		recoveriesExecuted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_recoveries_executed",
				Help: "Number of recovery claims executed after the challenge period",
			},
		),
		outboundMessages: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_outbound_messages",
				Help: "Number of messages sent to remote chains",
			},
		),
		outboundBatches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_outbound_batches",
				Help: "Number of outbound batch flushes",
			},
		),
	}
	registerer.MustRegister(m.confirmations)
	registerer.MustRegister(m.dispatches)
	registerer.MustRegister(m.duplicateDeliveries)
	registerer.MustRegister(m.pendingConfirmations)
	registerer.MustRegister(m.recoveriesInitiated)
	registerer.MustRegister(m.recoveriesDisputed)
	registerer.MustRegister(m.recoveriesExecuted)
	registerer.MustRegister(m.outboundMessages)
	registerer.MustRegister(m.outboundBatches)

	return &m
}
