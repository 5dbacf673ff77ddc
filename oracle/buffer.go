// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package oracle provides fixed-capacity TWAP observation buffers for pools.
package oracle

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/holiman/uint256"
)

var (
	// ErrNoObservations indicates no price observations are available.
	ErrNoObservations = errors.New("no price observations available")

	// ErrOutOfWindow indicates a lookback outside [minPeriod, window].
	ErrOutOfWindow = errors.New("lookback outside oracle window")

	// ErrStale indicates no observation exists at or before the target time.
	ErrStale = errors.New("no observation old enough for lookback")

	// ErrInvalidWindow indicates an invalid window or minimum period.
	ErrInvalidWindow = errors.New("oracle window must be positive and cover the minimum period")

	// ErrInvalidCapacity indicates a non-positive buffer capacity.
	ErrInvalidCapacity = errors.New("oracle capacity must be positive")

	// ErrInvalidPrice indicates a nil or non-positive price.
	ErrInvalidPrice = errors.New("price must be positive")

	// ErrOutOfOrder indicates an observation older than the latest one.
	ErrOutOfOrder = errors.New("observation older than latest")

	// PrecisionFactor for price calculations (1e18).
	PrecisionFactor = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// Observation is a single price observation at a specific time.
type Observation struct {
	Price     *big.Int  // Price scaled by PrecisionFactor
	Timestamp time.Time // When the price was observed
}

// Buffer is a fixed-capacity circular buffer of observations. Once full, each
// new observation overwrites the oldest.
type Buffer struct {
	mu sync.RWMutex

	slots []Observation
	head  int // next slot to write
	size  int

	window    time.Duration
	minPeriod time.Duration
}

// NewBuffer creates a buffer holding at most capacity observations, answering
// lookbacks in [minPeriod, window].
func NewBuffer(capacity int, window, minPeriod time.Duration) (*Buffer, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if window <= 0 || minPeriod < 0 || minPeriod > window {
		return nil, ErrInvalidWindow
	}
	return &Buffer{
		slots:     make([]Observation, capacity),
		window:    window,
		minPeriod: minPeriod,
	}, nil
}

// Record adds an observation. An observation at the same timestamp as the
// latest one replaces it.
func (b *Buffer) Record(price *big.Int, ts time.Time) error {
	if price == nil || price.Sign() <= 0 {
		return ErrInvalidPrice
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	obs := Observation{Price: new(big.Int).Set(price), Timestamp: ts}
	if b.size > 0 {
		latest := b.at(b.size - 1)
		switch {
		case ts.Before(latest.Timestamp):
			return ErrOutOfOrder
		case ts.Equal(latest.Timestamp):
			b.slots[b.index(b.size-1)] = obs
			return nil
		}
	}

	b.slots[b.head] = obs
	b.head = (b.head + 1) % len(b.slots)
	if b.size < len(b.slots) {
		b.size++
	}
	return nil
}

// Len returns the number of stored observations.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Latest returns the most recent observation.
func (b *Buffer) Latest() (Observation, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return Observation{}, ErrNoObservations
	}
	return b.at(b.size - 1).copy(), nil
}

// Consult returns the price of the observation nearest to now-secondsAgo.
// At least one observation must exist at or before that target.
func (b *Buffer) Consult(now time.Time, secondsAgo time.Duration) (*big.Int, error) {
	if err := b.checkLookback(secondsAgo); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	target := now.Add(-secondsAgo)
	if err := b.checkCoverage(target); err != nil {
		return nil, err
	}

	var (
		best     Observation
		bestDist time.Duration = -1
	)
	for i := 0; i < b.size; i++ {
		obs := b.at(i)
		if obs.Timestamp.After(now) {
			break
		}
		dist := absDuration(obs.Timestamp.Sub(target))
		if bestDist < 0 || dist < bestDist {
			best, bestDist = obs, dist
		}
	}
	return new(big.Int).Set(best.Price), nil
}

// Average returns the time-weighted average price over [now-secondsAgo, now].
// Each observation is weighted by how long it stayed the latest one.
func (b *Buffer) Average(now time.Time, secondsAgo time.Duration) (*big.Int, error) {
	if err := b.checkLookback(secondsAgo); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	start := now.Add(-secondsAgo)
	if err := b.checkCoverage(start); err != nil {
		return nil, err
	}

	weighted := new(big.Int)
	var total int64

	for i := 0; i < b.size; i++ {
		obs := b.at(i)
		if obs.Timestamp.After(now) {
			break
		}
		from := obs.Timestamp
		if from.Before(start) {
			from = start
		}
		to := now
		if i+1 < b.size {
			if next := b.at(i + 1).Timestamp; next.Before(now) {
				to = next
			}
		}
		secs := int64(to.Sub(from).Seconds())
		if secs <= 0 {
			continue
		}
		weighted.Add(weighted, new(big.Int).Mul(obs.Price, big.NewInt(secs)))
		total += secs
	}

	if total == 0 {
		// Zero-length interval: the observation in effect at now.
		return b.priceAt(now), nil
	}
	return weighted.Div(weighted, big.NewInt(total)), nil
}

// priceAt returns the latest price at or before now. Must be called with
// lock held and at least one such observation present.
func (b *Buffer) priceAt(now time.Time) *big.Int {
	var price *big.Int
	for i := 0; i < b.size; i++ {
		obs := b.at(i)
		if obs.Timestamp.After(now) {
			break
		}
		price = obs.Price
	}
	return new(big.Int).Set(price)
}

func (b *Buffer) checkLookback(secondsAgo time.Duration) error {
	if secondsAgo < b.minPeriod || secondsAgo > b.window {
		return ErrOutOfWindow
	}
	return nil
}

// checkCoverage must be called with lock held.
func (b *Buffer) checkCoverage(target time.Time) error {
	if b.size == 0 {
		return ErrNoObservations
	}
	if b.at(0).Timestamp.After(target) {
		return ErrStale
	}
	return nil
}

// at returns the i-th oldest observation. Must be called with lock held.
func (b *Buffer) at(i int) Observation {
	return b.slots[b.index(i)]
}

func (b *Buffer) index(i int) int {
	start := b.head - b.size
	if start < 0 {
		start += len(b.slots)
	}
	return (start + i) % len(b.slots)
}

func (o Observation) copy() Observation {
	return Observation{Price: new(big.Int).Set(o.Price), Timestamp: o.Timestamp}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// SpotPrice returns reserveB per unit of reserveA scaled by PrecisionFactor,
// or nil when reserveA is zero.
func SpotPrice(reserveA, reserveB *uint256.Int) *big.Int {
	if reserveA == nil || reserveA.IsZero() {
		return nil
	}
	price, overflow := new(uint256.Int).MulDivOverflow(reserveB, precision, reserveA)
	if overflow {
		return nil
	}
	return price.ToBig()
}

var precision = uint256.MustFromBig(PrecisionFactor)
