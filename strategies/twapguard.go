// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package strategies

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/lxpool/hooks"
	"github.com/luxfi/lxpool/oracle"
)

// BasisPoints is the denominator of TWAPGuardConfig.MaxDeviation.
const BasisPoints = 10_000

var (
	ErrPriceDeviation   = errors.New("spot price deviates from TWAP")
	ErrPriceUnavailable = errors.New("no TWAP price available")
)

var _ Strategy = (*TWAPGuard)(nil)

// TWAPGuardConfig configures a TWAPGuard.
type TWAPGuardConfig struct {
	// Lookback is the age of the reference price.
	Lookback time.Duration

	// MaxDeviation is the largest accepted distance between spot and
	// reference price, in basis points of the reference.
	MaxDeviation uint32

	// RequireHistory rejects swaps while no reference price exists yet.
	RequireHistory bool
}

// TWAPGuard records the pool price after every swap and liquidity change and
// rejects swaps that start from a spot price too far from the time-weighted
// reference.
type TWAPGuard struct {
	hooks.BaseHook

	oracle *oracle.Oracle
	cfg    TWAPGuardConfig
	now    func() time.Time
	log    log.Logger
}

// NewTWAPGuard creates a TWAP guard on top of o.
func NewTWAPGuard(o *oracle.Oracle, cfg TWAPGuardConfig, now func() time.Time, logger log.Logger) (*TWAPGuard, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: oracle", ErrMissingDependency)
	}
	if cfg.Lookback < o.MinPeriod() {
		return nil, fmt.Errorf("%w: lookback %s below minimum period %s", oracle.ErrOutOfWindow, cfg.Lookback, o.MinPeriod())
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &TWAPGuard{
		oracle: o,
		cfg:    cfg,
		now:    now,
		log:    logger,
	}, nil
}

func (*TWAPGuard) Kind() Kind { return KindTWAPGuard }

func (*TWAPGuard) Permissions() hooks.Permissions {
	return hooks.Permissions{
		AfterModifyLiquidity: true,
		BeforeSwap:           true,
		AfterSwap:            true,
	}
}

// BeforeSwap checks the current spot price against the TWAP reference.
func (g *TWAPGuard) BeforeSwap(_ context.Context, call *hooks.Call) (hooks.Outcome, error) {
	pass := hooks.Pass(hooks.BeforeSwap)

	spot := oracle.SpotPrice(call.Pool.ReserveA, call.Pool.ReserveB)
	if spot == nil {
		return pass, nil
	}

	ref, err := g.oracle.Average(call.Pool.ID, g.now(), g.cfg.Lookback)
	switch {
	case err == nil:
	case errors.Is(err, oracle.ErrNoObservations), errors.Is(err, oracle.ErrStale):
		if g.cfg.RequireHistory {
			return hooks.Outcome{}, fmt.Errorf("%w: %w", ErrPriceUnavailable, err)
		}
		return pass, nil
	default:
		return hooks.Outcome{}, err
	}

	if exceedsDeviation(spot, ref, g.cfg.MaxDeviation) {
		g.log.Debug("swap rejected by TWAP guard",
			log.String("pool", common.Hash(call.Pool.ID).Hex()),
			log.Stringer("spot", spot),
			log.Stringer("twap", ref),
		)
		return hooks.Outcome{}, fmt.Errorf("%w: spot %s, twap %s", ErrPriceDeviation, spot, ref)
	}
	return pass, nil
}

func (g *TWAPGuard) AfterSwap(ctx context.Context, call *hooks.Call) (hooks.Outcome, error) {
	if err := g.record(ctx, call.Pool); err != nil {
		return hooks.Outcome{}, err
	}
	return hooks.Pass(hooks.AfterSwap), nil
}

func (g *TWAPGuard) AfterModifyLiquidity(ctx context.Context, call *hooks.Call) (hooks.Outcome, error) {
	if err := g.record(ctx, call.Pool); err != nil {
		return hooks.Outcome{}, err
	}
	return hooks.Pass(hooks.AfterModifyLiquidity), nil
}

// record checks that the spot price of the committed state can be observed
// now and stores it when the operation commits. A drained pool has no price.
func (g *TWAPGuard) record(ctx context.Context, state hooks.PoolState) error {
	price := oracle.SpotPrice(state.ReserveA, state.ReserveB)
	if price == nil || price.Sign() == 0 {
		return nil
	}
	ts := g.now()
	if b, ok := g.oracle.Buffer(state.ID); ok {
		if latest, err := b.Latest(); err == nil && ts.Before(latest.Timestamp) {
			return oracle.ErrOutOfOrder
		}
	}

	hooks.OnCommit(ctx, func() {
		if err := g.oracle.Record(state.ID, price, ts); err != nil {
			g.log.Warn("failed to record price observation",
				log.String("pool", common.Hash(state.ID).Hex()),
				log.Err(err),
			)
		}
	})
	return nil
}

// exceedsDeviation reports whether |spot-ref|*BasisPoints > ref*maxBps.
func exceedsDeviation(spot, ref *big.Int, maxBps uint32) bool {
	if ref.Sign() == 0 {
		return false
	}
	diff := new(big.Int).Sub(spot, ref)
	diff.Abs(diff).Mul(diff, big.NewInt(BasisPoints))
	limit := new(big.Int).Mul(ref, big.NewInt(int64(maxBps)))
	return diff.Cmp(limit) > 0
}
