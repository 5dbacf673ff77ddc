// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/luxfi/lxpool/hooks"
)

// =========================================================================
// Bootstrap Tests
// =========================================================================

func TestBootstrapTooSmall(t *testing.T) {
	require := require.New(t)
	env := newInitializedEnv(t, Config{}, Fee030)

	_, err := env.pool.BootstrapLiquidity(context.Background(), alice, u(1000), u(1000), nil)
	require.ErrorIs(err, ErrBootstrapTooSmall)

	require.True(env.pool.TotalShares().IsZero())
	env.requireReserves(t, 0, 0)
	require.Equal(u(startingBalance), env.bank.BalanceOf(assetA, alice))
}

func TestBootstrap(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newInitializedEnv(t, Config{}, Fee030)

	_, err := env.pool.BootstrapLiquidity(ctx, alice, u(0), u(10_000), nil)
	require.ErrorIs(err, ErrZeroAmount)

	shares, err := env.pool.BootstrapLiquidity(ctx, alice, u(10_000), u(10_000), nil)
	require.NoError(err)
	require.Equal(u(9000), shares)

	require.Equal(u(9000), env.pool.BalanceOf(alice))
	require.Equal(u(MinLiquidityLock), env.pool.BalanceOf(BurnAddress))
	require.Equal(u(10_000), env.pool.TotalShares())
	env.requireReserves(t, 10_000, 10_000)

	require.Equal(u(startingBalance-10_000), env.bank.BalanceOf(assetA, alice))
	require.Equal(u(10_000), env.bank.BalanceOf(assetB, poolAddr))

	_, err = env.pool.BootstrapLiquidity(ctx, bob, u(10_000), u(10_000), nil)
	require.ErrorIs(err, ErrAlreadyBootstrapped)

	mints := env.events.Filter(EventMint)
	require.Len(mints, 1)
	require.Equal(u(10_000), mints[0].Shares)
}

func TestBootstrapInsufficientBalanceRollsBack(t *testing.T) {
	require := require.New(t)
	env := newInitializedEnv(t, Config{}, Fee030)

	_, err := env.pool.BootstrapLiquidity(context.Background(), alice, u(startingBalance+1), u(10_000), nil)
	require.ErrorIs(err, ErrInsufficientBalance)

	require.True(env.pool.TotalShares().IsZero())
	require.True(env.pool.BalanceOf(BurnAddress).IsZero())
	env.requireReserves(t, 0, 0)
	require.Equal(float64(1), testutil.ToFloat64(env.metrics.Rollbacks.WithLabelValues("bootstrap")))
	require.Empty(env.events.Filter(EventMint))
}

// =========================================================================
// Add Liquidity Tests
// =========================================================================

func TestAddLiquidityRequiresBootstrap(t *testing.T) {
	require := require.New(t)
	env := newInitializedEnv(t, Config{}, Fee030)

	_, err := env.pool.AddLiquidity(context.Background(), alice, alice, u(100), u(100), nil)
	require.ErrorIs(err, ErrBootstrapRequired)
}

func TestAddLiquidityRefundsRemainder(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newFundedEnv(t, Config{}, Fee030, 10_000, 10_000)

	res, err := env.pool.AddLiquidity(ctx, bob, bob, u(2000), u(5000), nil)
	require.NoError(err)
	require.Equal(u(2000), res.Shares)
	require.Equal(u(2000), res.AmountA)
	require.Equal(u(2000), res.AmountB)
	require.True(res.RefundA.IsZero())
	require.Equal(u(3000), res.RefundB)

	env.requireReserves(t, 12_000, 12_000)
	require.Equal(u(2000), env.pool.BalanceOf(bob))
	require.Equal(u(startingBalance-2000), env.bank.BalanceOf(assetA, bob))
	require.Equal(u(startingBalance-2000), env.bank.BalanceOf(assetB, bob))
	require.Equal(u(12_000), env.bank.BalanceOf(assetB, poolAddr))
}

func TestAddLiquidityRatioRule(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newFundedEnv(t, Config{}, Fee030, 10_000, 40_000)

	// aD*rB > bD*rA, so B is the limiting side
	res, err := env.pool.AddLiquidity(ctx, bob, bob, u(1000), u(2000), nil)
	require.NoError(err)
	require.Equal(u(500), res.AmountA)
	require.Equal(u(2000), res.AmountB)
	require.Equal(u(500), res.RefundA)

	// 20000 total shares: min(500*20000/10000, 2000*20000/40000)
	require.Equal(u(1000), res.Shares)

	_, err = env.pool.AddLiquidity(ctx, bob, bob, u(1), u(1), nil)
	require.ErrorIs(err, ErrZeroActualAmounts)
}

// =========================================================================
// Remove Liquidity Tests
// =========================================================================

func TestRemoveLiquidityInsufficientShares(t *testing.T) {
	require := require.New(t)
	env := newFundedEnv(t, Config{}, Fee030, 10_000, 10_000)

	_, _, err := env.pool.RemoveLiquidity(context.Background(), alice, u(9001), alice, nil)
	require.ErrorIs(err, ErrInsufficientShares)

	env.requireReserves(t, 10_000, 10_000)
	require.Equal(u(10_000), env.pool.TotalShares())
	require.Equal(u(9000), env.pool.BalanceOf(alice))
}

func TestRemoveLiquidity(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newFundedEnv(t, Config{}, Fee030, 10_000, 20_000)
	p := env.pool

	_, _, err := p.RemoveLiquidity(ctx, alice, u(0), alice, nil)
	require.ErrorIs(err, ErrZeroAmount)

	// total 14142 shares over (10000, 20000)
	a, b, err := p.RemoveLiquidity(ctx, alice, u(1414), bob, nil)
	require.NoError(err)
	require.Equal(u(999), a)
	require.Equal(u(1999), b)
	require.Equal(u(startingBalance+999), env.bank.BalanceOf(assetA, bob))

	_, _, err = p.RemoveLiquidity(ctx, alice, u(1), alice, nil)
	require.ErrorIs(err, ErrDegenerateBurn)

	require.Equal(p.TotalShares(), p.ledger.sum())
	require.Len(env.events.Filter(EventBurn), 1)
}

func TestRemoveLiquidityFrom(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newFundedEnv(t, Config{}, Fee030, 10_000, 10_000)
	p := env.pool

	_, _, err := p.RemoveLiquidityFrom(ctx, bob, alice, u(1000), bob, nil)
	require.ErrorIs(err, ErrInsufficientAllowance)

	require.NoError(p.Approve(ctx, alice, bob, u(1500)))
	a, b, err := p.RemoveLiquidityFrom(ctx, bob, alice, u(1000), bob, nil)
	require.NoError(err)
	require.Equal(u(1000), a)
	require.Equal(u(1000), b)
	require.Equal(u(500), p.Allowance(alice, bob))
	require.Equal(u(8000), p.BalanceOf(alice))
	require.True(p.BalanceOf(bob).IsZero())
}

func TestLockedSharesCannotMove(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newFundedEnv(t, Config{}, Fee030, 10_000, 10_000)
	p := env.pool
	lock := u(MinLiquidityLock)

	_, _, err := p.RemoveLiquidity(ctx, BurnAddress, lock, bob, nil)
	require.ErrorIs(err, ErrLockedShares)

	require.NoError(p.Approve(ctx, BurnAddress, bob, lock))
	_, _, err = p.RemoveLiquidityFrom(ctx, bob, BurnAddress, lock, bob, nil)
	require.ErrorIs(err, ErrLockedShares)
	require.ErrorIs(p.Transfer(ctx, BurnAddress, bob, lock), ErrLockedShares)
	require.ErrorIs(p.TransferFrom(ctx, bob, BurnAddress, bob, lock), ErrLockedShares)

	// every other holder can exit; the lock keeps the pool funded
	_, _, err = p.RemoveLiquidity(ctx, alice, p.BalanceOf(alice), alice, nil)
	require.NoError(err)
	require.Equal(lock, p.BalanceOf(BurnAddress))
	require.Equal(lock, p.TotalShares())
	env.requireReserves(t, 1000, 1000)
	require.Equal(u(startingBalance), env.bank.BalanceOf(assetA, bob))
}

func TestLiquidityRoundTrip(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	env := newFundedEnv(t, Config{}, Fee030, 1_000_000, 1_000_000)

	res, err := env.pool.AddLiquidity(ctx, bob, bob, u(50_000), u(50_000), nil)
	require.NoError(err)

	a, b, err := env.pool.RemoveLiquidity(ctx, bob, res.Shares, bob, nil)
	require.NoError(err)
	require.Equal(u(50_000), a)
	require.Equal(u(50_000), b)
	require.Equal(u(startingBalance), env.bank.BalanceOf(assetA, bob))
	env.requireReserves(t, 1_000_000, 1_000_000)
}

func TestAfterModifyVetoRollsBack(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	hook := &funcHook{}
	env := newFundedEnv(t, Config{
		Handle: hooks.Encode(hookBase, hooks.FlagAfterModifyLiquidity),
		Hook:   hook,
	}, Fee030, 10_000, 10_000)

	veto := errors.New("liquidity frozen")
	var seen *hooks.Call
	hook.afterModify = func(_ context.Context, call *hooks.Call) (hooks.Outcome, error) {
		seen = call
		return hooks.Outcome{}, veto
	}

	_, err := env.pool.AddLiquidity(ctx, bob, bob, u(1000), u(1000), nil)
	require.ErrorIs(err, veto)

	// the hook saw the committed state before the rollback
	require.Equal(u(11_000), seen.Pool.ReserveA)
	require.Equal(int64(1000), seen.Liquidity.ShareDelta.Int64())

	env.requireReserves(t, 10_000, 10_000)
	require.True(env.pool.BalanceOf(bob).IsZero())
	require.Equal(u(startingBalance), env.bank.BalanceOf(assetA, bob))
	require.Equal(float64(1), testutil.ToFloat64(env.metrics.HookVetoes.WithLabelValues("afterModifyLiquidity")))
}

func TestLedgerSumMatchesTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ctx := context.Background()
		bank := NewMemBank()

		p, err := New(Config{Address: poolAddr}, WithBank(bank))
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if err := p.Initialize(ctx, alice, assetA, assetB, Fee030, nil); err != nil {
			t.Fatalf("initialize: %v", err)
		}
		bank.Mint(assetA, alice, u(1<<62))
		bank.Mint(assetB, alice, u(1<<62))
		bank.Mint(assetA, bob, u(1<<62))
		bank.Mint(assetB, bob, u(1<<62))

		a := rapid.Uint64Range(2000, 1<<40).Draw(t, "bootstrapA")
		b := rapid.Uint64Range(2000, 1<<40).Draw(t, "bootstrapB")
		if _, err := p.BootstrapLiquidity(ctx, alice, u(a), u(b), nil); err != nil {
			t.Fatalf("bootstrap: %v", err)
		}

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			who := alice
			if rapid.Bool().Draw(t, "bob") {
				who = bob
			}
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				x := rapid.Uint64Range(1, 1<<40).Draw(t, "addA")
				y := rapid.Uint64Range(1, 1<<40).Draw(t, "addB")
				_, _ = p.AddLiquidity(ctx, who, who, u(x), u(y), nil)
			case 1:
				bal := p.BalanceOf(who)
				if bal.IsZero() {
					continue
				}
				s := rapid.Uint64Range(1, bal.Uint64()).Draw(t, "shares")
				_, _, _ = p.RemoveLiquidity(ctx, who, u(s), who, nil)
			case 2:
				amt := rapid.Uint64Range(1, 1<<40).Draw(t, "swapIn")
				_, _ = p.Swap(ctx, who, assetA, u(amt), who, nil, nil)
			}

			if !p.TotalShares().Eq(p.ledger.sum()) {
				t.Fatalf("ledger sum %s != total %s", p.ledger.sum(), p.TotalShares())
			}
			ra, rb := p.Reserves()
			if ra.IsZero() != p.TotalShares().IsZero() || rb.IsZero() != p.TotalShares().IsZero() {
				t.Fatalf("reserves (%s, %s) inconsistent with supply %s", ra, rb, p.TotalShares())
			}
		}
	})
}
