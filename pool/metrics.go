// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsSubsystem = "pool"

// Metrics holds the Prometheus metrics of a pool
type Metrics struct {
	// Operation metrics
	Operations *prometheus.CounterVec
	Rollbacks  *prometheus.CounterVec

	// Swap metrics
	SwapsTotal *prometheus.CounterVec
	SwapFee    prometheus.Histogram

	// Liquidity metrics
	Reserves    *prometheus.GaugeVec
	TotalShares prometheus.Gauge

	// Security metrics
	ReentrancyRejections prometheus.Counter
	HookVetoes           *prometheus.CounterVec
}

// NewMetrics creates pool metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: metricsSubsystem,
				Name:      "operations_total",
				Help:      "Total number of committed pool operations",
			},
			[]string{"op"},
		),
		Rollbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: metricsSubsystem,
				Name:      "rollbacks_total",
				Help:      "Total number of pool operations reverted after a failure",
			},
			[]string{"op"},
		),
		SwapsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: metricsSubsystem,
				Name:      "swaps_total",
				Help:      "Total number of swaps executed",
			},
			[]string{"direction"},
		),
		SwapFee: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: metricsSubsystem,
				Name:      "swap_fee",
				Help:      "Fee applied to swaps in parts per million",
				Buckets:   []float64{100, 500, 1000, 3000, 5000, 10000, 30000, 100000},
			},
		),
		Reserves: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: metricsSubsystem,
				Name:      "reserves",
				Help:      "Current pool reserves",
			},
			[]string{"asset"},
		),
		TotalShares: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: metricsSubsystem,
				Name:      "total_shares",
				Help:      "Outstanding liquidity shares",
			},
		),
		ReentrancyRejections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: metricsSubsystem,
				Name:      "reentrancy_rejections_total",
				Help:      "Total number of nested calls rejected by the reentrancy guard",
			},
		),
		HookVetoes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: metricsSubsystem,
				Name:      "hook_vetoes_total",
				Help:      "Total number of operations aborted by a hook",
			},
			[]string{"point"},
		),
	}

	err := errors.Join(
		reg.Register(m.Operations),
		reg.Register(m.Rollbacks),
		reg.Register(m.SwapsTotal),
		reg.Register(m.SwapFee),
		reg.Register(m.Reserves),
		reg.Register(m.TotalShares),
		reg.Register(m.ReentrancyRejections),
		reg.Register(m.HookVetoes),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}
