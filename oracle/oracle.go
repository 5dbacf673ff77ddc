// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"math/big"
	"sync"
	"time"
)

// Default oracle parameters
const (
	DefaultCapacity  = 64
	DefaultWindow    = 30 * time.Minute
	DefaultMinPeriod = time.Minute
)

// Oracle keeps one observation buffer per pool.
type Oracle struct {
	mu      sync.RWMutex
	buffers map[[32]byte]*Buffer

	capacity  int
	window    time.Duration
	minPeriod time.Duration
}

// New creates an oracle whose buffers share the given parameters.
func New(capacity int, window, minPeriod time.Duration) (*Oracle, error) {
	// validate once so per-pool buffer creation cannot fail
	if _, err := NewBuffer(capacity, window, minPeriod); err != nil {
		return nil, err
	}
	return &Oracle{
		buffers:   make(map[[32]byte]*Buffer),
		capacity:  capacity,
		window:    window,
		minPeriod: minPeriod,
	}, nil
}

// Record adds an observation for pool, creating its buffer on first use.
func (o *Oracle) Record(pool [32]byte, price *big.Int, ts time.Time) error {
	return o.buffer(pool).Record(price, ts)
}

// Consult returns the observation of pool nearest to now-secondsAgo.
func (o *Oracle) Consult(pool [32]byte, now time.Time, secondsAgo time.Duration) (*big.Int, error) {
	b, ok := o.Buffer(pool)
	if !ok {
		if secondsAgo < o.minPeriod || secondsAgo > o.window {
			return nil, ErrOutOfWindow
		}
		return nil, ErrNoObservations
	}
	return b.Consult(now, secondsAgo)
}

// Average returns the time-weighted average price of pool over the lookback.
func (o *Oracle) Average(pool [32]byte, now time.Time, secondsAgo time.Duration) (*big.Int, error) {
	b, ok := o.Buffer(pool)
	if !ok {
		if secondsAgo < o.minPeriod || secondsAgo > o.window {
			return nil, ErrOutOfWindow
		}
		return nil, ErrNoObservations
	}
	return b.Average(now, secondsAgo)
}

// Buffer returns the observation buffer of pool, if any.
func (o *Oracle) Buffer(pool [32]byte) (*Buffer, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	b, ok := o.buffers[pool]
	return b, ok
}

// MinPeriod returns the shortest lookback the oracle answers.
func (o *Oracle) MinPeriod() time.Duration {
	return o.minPeriod
}

func (o *Oracle) buffer(pool [32]byte) *Buffer {
	o.mu.Lock()
	defer o.mu.Unlock()

	b, ok := o.buffers[pool]
	if !ok {
		b, _ = NewBuffer(o.capacity, o.window, o.minPeriod)
		o.buffers[pool] = b
	}
	return b
}
