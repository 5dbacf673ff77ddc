// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"context"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/lxpool/hooks"
)

// SwapResult reports the outcome of a swap.
type SwapResult struct {
	AmountOut *uint256.Int
	Fee       uint32 // fee applied, after any hook override
	AToB      bool
}

// =========================================================================
// Swap
// =========================================================================

// Swap trades amountIn of tokenIn for the other asset. The before-swap hook
// may veto the trade or override the fee for it.
func (p *Pool) Swap(
	ctx context.Context,
	sender common.Address,
	tokenIn common.Address,
	amountIn *uint256.Int,
	recipient common.Address,
	minAmountOut *uint256.Int,
	hookData []byte,
) (SwapResult, error) {
	var result SwapResult
	err := p.execute(ctx, "swap", func(ctx context.Context, op *operation) error {
		if !p.Initialized() {
			return ErrNotInitialized
		}
		key := p.Key()

		var aToB bool
		switch tokenIn {
		case key.AssetA:
			aToB = true
		case key.AssetB:
			aToB = false
		default:
			return fmt.Errorf("%w: %s", ErrInvalidInputAsset, tokenIn.Hex())
		}
		if amountIn.IsZero() {
			return ErrZeroAmount
		}
		if recipient == (common.Address{}) {
			return ErrZeroIdentity
		}
		if p.TotalShares().IsZero() {
			return ErrNoLiquidity
		}
		if minAmountOut == nil {
			minAmountOut = new(uint256.Int)
		}

		call := p.newCall(sender, hookData)
		call.Swap = &hooks.SwapParams{
			AToB:         aToB,
			AmountIn:     amountIn.Clone(),
			MinAmountOut: minAmountOut.Clone(),
			Recipient:    recipient,
		}
		outcome, err := p.dispatch(ctx, hooks.BeforeSwap, call)
		if err != nil {
			return err
		}

		fee := key.FeeTier
		if outcome.OverrideFee {
			if outcome.Fee > MaxFeeTier {
				return fmt.Errorf("%w: hook override %d > %d", ErrInvalidFee, outcome.Fee, MaxFeeTier)
			}
			fee = outcome.Fee
		}

		reserveA, reserveB := p.Reserves()
		reserveIn, reserveOut := reserveA, reserveB
		if !aToB {
			reserveIn, reserveOut = reserveB, reserveA
		}

		amountOut, err := GetAmountOut(amountIn, reserveIn, reserveOut, fee)
		if err != nil {
			return err
		}
		if amountOut.IsZero() || amountOut.Lt(minAmountOut) {
			return fmt.Errorf("%w: got %s, want at least %s", ErrInsufficientOutput, amountOut, minAmountOut)
		}

		// Effects
		newIn, overflow := new(uint256.Int).AddOverflow(reserveIn, amountIn)
		if overflow {
			return ErrOverflow
		}
		newOut := new(uint256.Int).Sub(reserveOut, amountOut)
		_ = p.mutate(func() error {
			if aToB {
				p.setReserves(newIn, newOut, &op.journal)
			} else {
				p.setReserves(newOut, newIn, &op.journal)
			}
			return nil
		})

		// Interactions
		tokenOut := key.AssetB
		if !aToB {
			tokenOut = key.AssetA
		}
		if err := p.transfer(ctx, tokenIn, sender, p.address, amountIn); err != nil {
			return err
		}
		if err := p.transfer(ctx, tokenOut, p.address, recipient, amountOut); err != nil {
			return err
		}

		in, out := amountIn.ToBig(), new(big.Int).Neg(amountOut.ToBig())
		delta := hooks.NewBalanceDelta(in, out)
		if !aToB {
			delta = hooks.NewBalanceDelta(out, in)
		}
		after := p.newCall(sender, hookData)
		after.Swap = call.Swap
		after.Delta = &delta
		if _, err := p.dispatch(ctx, hooks.AfterSwap, after); err != nil {
			return err
		}

		op.emit(Event{
			Kind:      EventSwap,
			Pool:      key.ID(),
			From:      sender,
			To:        recipient,
			AToB:      aToB,
			AmountIn:  amountIn.Clone(),
			AmountOut: amountOut.Clone(),
			Fee:       fee,
		})
		if p.metrics != nil {
			direction := "a_to_b"
			if !aToB {
				direction = "b_to_a"
			}
			p.metrics.SwapsTotal.WithLabelValues(direction).Inc()
			p.metrics.SwapFee.Observe(float64(fee))
		}
		p.log.Debug("swap executed",
			log.String("pool", p.address.Hex()),
			log.Bool("aToB", aToB),
			log.Stringer("amountIn", amountIn),
			log.Stringer("amountOut", amountOut),
			log.Uint32("fee", fee),
		)

		result = SwapResult{AmountOut: amountOut, Fee: fee, AToB: aToB}
		return nil
	})
	return result, err
}

// Quote returns the output and fee of a swap at the pool's fee tier, ignoring
// any hook override.
func (p *Pool) Quote(tokenIn common.Address, amountIn *uint256.Int) (*uint256.Int, uint32, error) {
	if !p.Initialized() {
		return nil, 0, ErrNotInitialized
	}
	key := p.Key()
	reserveA, reserveB := p.Reserves()

	var out *uint256.Int
	var err error
	switch tokenIn {
	case key.AssetA:
		out, err = GetAmountOut(amountIn, reserveA, reserveB, key.FeeTier)
	case key.AssetB:
		out, err = GetAmountOut(amountIn, reserveB, reserveA, key.FeeTier)
	default:
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidInputAsset, tokenIn.Hex())
	}
	if err != nil {
		return nil, 0, err
	}
	return out, key.FeeTier, nil
}

// =========================================================================
// Donate
// =========================================================================

// Donate adds assets to the reserves of a funded pool without minting shares.
func (p *Pool) Donate(
	ctx context.Context,
	sender common.Address,
	amountA, amountB *uint256.Int,
	hookData []byte,
) error {
	return p.execute(ctx, "donate", func(ctx context.Context, op *operation) error {
		if !p.Initialized() {
			return ErrNotInitialized
		}
		if amountA.IsZero() && amountB.IsZero() {
			return ErrZeroAmount
		}
		if p.TotalShares().IsZero() {
			return ErrNoLiquidity
		}

		call := p.newCall(sender, hookData)
		call.Donate = &hooks.DonateParams{AmountA: amountA.Clone(), AmountB: amountB.Clone()}
		if _, err := p.dispatch(ctx, hooks.BeforeDonate, call); err != nil {
			return err
		}

		// Effects
		err := p.mutate(func() error {
			newA, overflowA := new(uint256.Int).AddOverflow(p.reserveA, amountA)
			newB, overflowB := new(uint256.Int).AddOverflow(p.reserveB, amountB)
			if overflowA || overflowB {
				return ErrOverflow
			}
			p.setReserves(newA, newB, &op.journal)
			return nil
		})
		if err != nil {
			return err
		}

		// Interactions
		if err := p.pull(ctx, sender, amountA, amountB); err != nil {
			return err
		}

		delta := hooks.NewBalanceDelta(amountA.ToBig(), amountB.ToBig())
		after := p.newCall(sender, hookData)
		after.Donate = call.Donate
		after.Delta = &delta
		if _, err := p.dispatch(ctx, hooks.AfterDonate, after); err != nil {
			return err
		}

		op.emit(Event{Kind: EventDonate, Pool: p.ID(), From: sender,
			AmountA: amountA.Clone(), AmountB: amountB.Clone()})
		return nil
	})
}
