// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Pool constants
const (
	// MinLiquidityLock is permanently locked to BurnAddress on bootstrap.
	MinLiquidityLock = 1000

	// FeeDenominator is the unit of fee tiers: 3000 is 0.3%.
	FeeDenominator = 1_000_000

	// MaxFeeTier is the highest fee a pool or a hook override may charge.
	MaxFeeTier = 100_000
)

// Common fee tiers
const (
	Fee001 uint32 = 100    // 0.01%
	Fee005 uint32 = 500    // 0.05%
	Fee030 uint32 = 3000   // 0.30%
	Fee100 uint32 = 10000  // 1.00%
	FeeMax uint32 = 100000 // 10.00%
)

var (
	minLiquidityLock = uint256.NewInt(MinLiquidityLock)
	feeDenominator   = uint256.NewInt(FeeDenominator)
)

// GetAmountOut returns the constant-product output for amountIn with the fee
// taken on input.
func GetAmountOut(amountIn, reserveIn, reserveOut *uint256.Int, fee uint32) (*uint256.Int, error) {
	if fee > MaxFeeTier {
		return nil, ErrInvalidFee
	}
	if amountIn.IsZero() {
		return nil, ErrZeroAmount
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrNoLiquidity
	}

	inAfterFee, overflow := new(uint256.Int).MulDivOverflow(
		amountIn, uint256.NewInt(FeeDenominator-uint64(fee)), feeDenominator)
	if overflow {
		return nil, ErrOverflow
	}

	denominator, overflow := new(uint256.Int).AddOverflow(reserveIn, inAfterFee)
	if overflow {
		return nil, ErrOverflow
	}

	out, overflow := new(uint256.Int).MulDivOverflow(reserveOut, inAfterFee, denominator)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// bootstrapShares returns floor(sqrt(a*b)).
func bootstrapShares(a, b *uint256.Int) (*uint256.Int, error) {
	product, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, ErrOverflow
	}
	return new(uint256.Int).Sqrt(product), nil
}

// mulDiv returns floor(x*y/d) with a 512-bit intermediate.
func mulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// ratioLimited applies the add-liquidity ratio rule and returns the amounts
// actually used.
func ratioLimited(aDesired, bDesired, reserveA, reserveB *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	lhs := new(big.Int).Mul(aDesired.ToBig(), reserveB.ToBig())
	rhs := new(big.Int).Mul(bDesired.ToBig(), reserveA.ToBig())

	if lhs.Cmp(rhs) <= 0 {
		bUsed, err := mulDiv(aDesired, reserveB, reserveA)
		if err != nil {
			return nil, nil, err
		}
		return aDesired.Clone(), bUsed, nil
	}

	aUsed, err := mulDiv(bDesired, reserveA, reserveB)
	if err != nil {
		return nil, nil, err
	}
	return aUsed, bDesired.Clone(), nil
}

func minU256(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return x
	}
	return y
}
