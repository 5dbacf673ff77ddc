// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hooks

import (
	"context"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// PoolState is the view of a pool handed to a hook. For before points it is
// the state prior to the operation, for after points the committed state.
type PoolState struct {
	ID          [32]byte
	Address     common.Address
	AssetA      common.Address
	AssetB      common.Address
	FeeTier     uint32
	ReserveA    *uint256.Int
	ReserveB    *uint256.Int
	TotalShares *uint256.Int
}

// SwapParams contains parameters for a swap
type SwapParams struct {
	AToB         bool // true = asset A in, asset B out
	AmountIn     *uint256.Int
	MinAmountOut *uint256.Int
	Recipient    common.Address
}

// ModifyLiquidityParams contains parameters for adding or removing liquidity
type ModifyLiquidityParams struct {
	ShareDelta *big.Int // Positive = mint, Negative = burn
	AmountA    *uint256.Int
	AmountB    *uint256.Int
	Recipient  common.Address
}

// DonateParams contains parameters for a donation
type DonateParams struct {
	AmountA *uint256.Int
	AmountB *uint256.Int
}

// BalanceDelta represents the net token changes of an operation from the
// pool's point of view.
// Positive = paid into the pool, Negative = paid out of the pool
type BalanceDelta struct {
	AmountA *big.Int
	AmountB *big.Int
}

// NewBalanceDelta creates a new balance delta
func NewBalanceDelta(amountA, amountB *big.Int) BalanceDelta {
	return BalanceDelta{
		AmountA: new(big.Int).Set(amountA),
		AmountB: new(big.Int).Set(amountB),
	}
}

// ZeroBalanceDelta returns a zero balance delta
func ZeroBalanceDelta() BalanceDelta {
	return BalanceDelta{
		AmountA: big.NewInt(0),
		AmountB: big.NewInt(0),
	}
}

// Add combines two balance deltas
func (bd BalanceDelta) Add(other BalanceDelta) BalanceDelta {
	return BalanceDelta{
		AmountA: new(big.Int).Add(bd.AmountA, other.AmountA),
		AmountB: new(big.Int).Add(bd.AmountB, other.AmountB),
	}
}

// Negate inverts the balance delta signs
func (bd BalanceDelta) Negate() BalanceDelta {
	return BalanceDelta{
		AmountA: new(big.Int).Neg(bd.AmountA),
		AmountB: new(big.Int).Neg(bd.AmountB),
	}
}

// IsZero returns true if both amounts are zero
func (bd BalanceDelta) IsZero() bool {
	return bd.AmountA.Sign() == 0 && bd.AmountB.Sign() == 0
}

// Call is the context passed to every hook callback. Exactly one of
// Liquidity, Swap and Donate is set for the modify-liquidity, swap and donate
// points; Delta is set for after points only.
type Call struct {
	Point     Point
	Sender    common.Address
	Pool      PoolState
	Liquidity *ModifyLiquidityParams
	Swap      *SwapParams
	Donate    *DonateParams
	Delta     *BalanceDelta
	HookData  []byte
}

// Outcome is a hook's answer for one callback.
type Outcome struct {
	Selector Selector

	// Fee overrides the pool fee tier for the current swap. Only honored
	// for beforeSwap.
	Fee         uint32
	OverrideFee bool
}

// Pass returns the pass-through outcome for p.
func Pass(p Point) Outcome {
	return Outcome{Selector: p.Selector()}
}

// WithFee returns a beforeSwap outcome overriding the swap fee.
func WithFee(fee uint32) Outcome {
	return Outcome{Selector: SigBeforeSwap, Fee: fee, OverrideFee: true}
}

// Hook is implemented by pool extensions. A callback returning an error
// aborts the enclosing pool operation.
type Hook interface {
	BeforeInitialize(ctx context.Context, call *Call) (Outcome, error)
	AfterInitialize(ctx context.Context, call *Call) (Outcome, error)
	BeforeModifyLiquidity(ctx context.Context, call *Call) (Outcome, error)
	AfterModifyLiquidity(ctx context.Context, call *Call) (Outcome, error)
	BeforeSwap(ctx context.Context, call *Call) (Outcome, error)
	AfterSwap(ctx context.Context, call *Call) (Outcome, error)
	BeforeDonate(ctx context.Context, call *Call) (Outcome, error)
	AfterDonate(ctx context.Context, call *Call) (Outcome, error)
}

// Declarer is implemented by hooks that state their own capabilities. The
// registry checks the declaration against the handle they are registered under.
type Declarer interface {
	Permissions() Permissions
}

// BaseHook passes every point through unmodified. Embed it and override the
// callbacks a hook actually implements.
type BaseHook struct{}

var _ Hook = BaseHook{}

func (BaseHook) BeforeInitialize(context.Context, *Call) (Outcome, error) {
	return Pass(BeforeInitialize), nil
}

func (BaseHook) AfterInitialize(context.Context, *Call) (Outcome, error) {
	return Pass(AfterInitialize), nil
}

func (BaseHook) BeforeModifyLiquidity(context.Context, *Call) (Outcome, error) {
	return Pass(BeforeModifyLiquidity), nil
}

func (BaseHook) AfterModifyLiquidity(context.Context, *Call) (Outcome, error) {
	return Pass(AfterModifyLiquidity), nil
}

func (BaseHook) BeforeSwap(context.Context, *Call) (Outcome, error) {
	return Pass(BeforeSwap), nil
}

func (BaseHook) AfterSwap(context.Context, *Call) (Outcome, error) {
	return Pass(AfterSwap), nil
}

func (BaseHook) BeforeDonate(context.Context, *Call) (Outcome, error) {
	return Pass(BeforeDonate), nil
}

func (BaseHook) AfterDonate(context.Context, *Call) (Outcome, error) {
	return Pass(AfterDonate), nil
}
