// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package crosschain

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsSubsystem = "crosschain"

// Metrics holds the Prometheus metrics of a notifier
type Metrics struct {
	Sent       *prometheus.CounterVec
	Failed     *prometheus.CounterVec
	Received   *prometheus.CounterVec
	Duplicates prometheus.Counter
	Rejected   *prometheus.CounterVec
}

// NewMetrics creates notifier metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Sent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: metricsSubsystem,
				Name:      "deltas_sent_total",
				Help:      "Total number of liquidity deltas handed to the transport",
			},
			[]string{"chain"},
		),
		Failed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: metricsSubsystem,
				Name:      "deltas_failed_total",
				Help:      "Total number of liquidity deltas the transport failed to send",
			},
			[]string{"chain"},
		),
		Received: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: metricsSubsystem,
				Name:      "deltas_received_total",
				Help:      "Total number of remote liquidity deltas accepted",
			},
			[]string{"chain"},
		),
		Duplicates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: metricsSubsystem,
				Name:      "deltas_duplicate_total",
				Help:      "Total number of remote liquidity deltas already seen",
			},
		),
		Rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: metricsSubsystem,
				Name:      "deltas_rejected_total",
				Help:      "Total number of remote liquidity deltas rejected",
			},
			[]string{"reason"},
		),
	}

	err := errors.Join(
		reg.Register(m.Sent),
		reg.Register(m.Failed),
		reg.Register(m.Received),
		reg.Register(m.Duplicates),
		reg.Register(m.Rejected),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}
