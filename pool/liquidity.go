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

// AddResult reports the outcome of AddLiquidity.
type AddResult struct {
	Shares  *uint256.Int
	AmountA *uint256.Int // used
	AmountB *uint256.Int // used
	RefundA *uint256.Int // pulled but not used, returned to the sender
	RefundB *uint256.Int
}

// =========================================================================
// Bootstrap
// =========================================================================

// BootstrapLiquidity funds an empty pool. It mints floor(sqrt(a*b)) shares,
// locks MinLiquidityLock of them to BurnAddress and credits the rest to
// sender.
func (p *Pool) BootstrapLiquidity(
	ctx context.Context,
	sender common.Address,
	amountA, amountB *uint256.Int,
	hookData []byte,
) (*uint256.Int, error) {
	var minted *uint256.Int
	err := p.execute(ctx, "bootstrap", func(ctx context.Context, op *operation) error {
		if !p.Initialized() {
			return ErrNotInitialized
		}
		if !p.TotalShares().IsZero() {
			return ErrAlreadyBootstrapped
		}
		if amountA.IsZero() || amountB.IsZero() {
			return ErrZeroAmount
		}

		shares, err := bootstrapShares(amountA, amountB)
		if err != nil {
			return err
		}
		if !shares.Gt(minLiquidityLock) {
			return fmt.Errorf("%w: %s shares, need more than %d", ErrBootstrapTooSmall, shares, MinLiquidityLock)
		}
		credited := new(uint256.Int).Sub(shares, minLiquidityLock)

		call := p.newCall(sender, hookData)
		call.Liquidity = &hooks.ModifyLiquidityParams{
			ShareDelta: shares.ToBig(),
			AmountA:    amountA.Clone(),
			AmountB:    amountB.Clone(),
			Recipient:  sender,
		}
		if _, err := p.dispatch(ctx, hooks.BeforeModifyLiquidity, call); err != nil {
			return err
		}

		// Effects
		err = p.mutate(func() error {
			if err := p.ledger.mint(BurnAddress, minLiquidityLock, &op.journal); err != nil {
				return err
			}
			if err := p.ledger.mint(sender, credited, &op.journal); err != nil {
				return err
			}
			p.setReserves(amountA.Clone(), amountB.Clone(), &op.journal)
			return nil
		})
		if err != nil {
			return err
		}

		// Interactions
		if err := p.pull(ctx, sender, amountA, amountB); err != nil {
			return err
		}

		if err := p.afterModify(ctx, sender, hookData, call.Liquidity, amountA.ToBig(), amountB.ToBig()); err != nil {
			return err
		}

		id := p.ID()
		op.emit(Event{Kind: EventTransfer, Pool: id, To: BurnAddress, Shares: minLiquidityLock.Clone()})
		op.emit(Event{Kind: EventTransfer, Pool: id, To: sender, Shares: credited.Clone()})
		op.emit(Event{Kind: EventMint, Pool: id, From: sender, To: sender,
			AmountA: amountA.Clone(), AmountB: amountB.Clone(), Shares: shares.Clone()})

		p.log.Info("pool bootstrapped",
			log.String("pool", p.address.Hex()),
			log.Stringer("shares", shares),
			log.Stringer("amountA", amountA),
			log.Stringer("amountB", amountB),
		)
		minted = credited
		return nil
	})
	if err != nil {
		return nil, err
	}
	return minted, nil
}

// =========================================================================
// Add Liquidity
// =========================================================================

// AddLiquidity deposits into a funded pool at the current reserve ratio. The
// desired amounts are pulled from sender and the part the ratio does not use
// is refunded within the same operation.
func (p *Pool) AddLiquidity(
	ctx context.Context,
	sender, recipient common.Address,
	amountADesired, amountBDesired *uint256.Int,
	hookData []byte,
) (AddResult, error) {
	var result AddResult
	err := p.execute(ctx, "add", func(ctx context.Context, op *operation) error {
		if !p.Initialized() {
			return ErrNotInitialized
		}
		if recipient == (common.Address{}) {
			return ErrZeroIdentity
		}
		total := p.TotalShares()
		if total.IsZero() {
			return ErrBootstrapRequired
		}
		if amountADesired.IsZero() || amountBDesired.IsZero() {
			return ErrZeroAmount
		}

		reserveA, reserveB := p.Reserves()
		aUsed, bUsed, err := ratioLimited(amountADesired, amountBDesired, reserveA, reserveB)
		if err != nil {
			return err
		}
		if aUsed.IsZero() || bUsed.IsZero() {
			return ErrZeroActualAmounts
		}

		sharesA, err := mulDiv(aUsed, total, reserveA)
		if err != nil {
			return err
		}
		sharesB, err := mulDiv(bUsed, total, reserveB)
		if err != nil {
			return err
		}
		shares := minU256(sharesA, sharesB)
		if shares.IsZero() {
			return ErrZeroActualAmounts
		}

		call := p.newCall(sender, hookData)
		call.Liquidity = &hooks.ModifyLiquidityParams{
			ShareDelta: shares.ToBig(),
			AmountA:    aUsed.Clone(),
			AmountB:    bUsed.Clone(),
			Recipient:  recipient,
		}
		if _, err := p.dispatch(ctx, hooks.BeforeModifyLiquidity, call); err != nil {
			return err
		}

		// Effects
		err = p.mutate(func() error {
			newA, overflowA := new(uint256.Int).AddOverflow(p.reserveA, aUsed)
			newB, overflowB := new(uint256.Int).AddOverflow(p.reserveB, bUsed)
			if overflowA || overflowB {
				return ErrOverflow
			}
			if err := p.ledger.mint(recipient, shares, &op.journal); err != nil {
				return err
			}
			p.setReserves(newA, newB, &op.journal)
			return nil
		})
		if err != nil {
			return err
		}

		// Interactions
		refundA := new(uint256.Int).Sub(amountADesired, aUsed)
		refundB := new(uint256.Int).Sub(amountBDesired, bUsed)
		if err := p.pull(ctx, sender, amountADesired, amountBDesired); err != nil {
			return err
		}
		if err := p.pay(ctx, sender, refundA, refundB); err != nil {
			return err
		}

		if err := p.afterModify(ctx, sender, hookData, call.Liquidity, aUsed.ToBig(), bUsed.ToBig()); err != nil {
			return err
		}

		id := p.ID()
		op.emit(Event{Kind: EventTransfer, Pool: id, To: recipient, Shares: shares.Clone()})
		op.emit(Event{Kind: EventMint, Pool: id, From: sender, To: recipient,
			AmountA: aUsed.Clone(), AmountB: bUsed.Clone(), Shares: shares.Clone()})

		p.log.Debug("liquidity added",
			log.String("pool", p.address.Hex()),
			log.Stringer("shares", shares),
			log.Stringer("refundA", refundA),
			log.Stringer("refundB", refundB),
		)
		result = AddResult{
			Shares:  shares,
			AmountA: aUsed,
			AmountB: bUsed,
			RefundA: refundA,
			RefundB: refundB,
		}
		return nil
	})
	return result, err
}

// =========================================================================
// Remove Liquidity
// =========================================================================

// RemoveLiquidity burns shares of owner and pays the proportional reserves
// to recipient.
func (p *Pool) RemoveLiquidity(
	ctx context.Context,
	owner common.Address,
	shares *uint256.Int,
	recipient common.Address,
	hookData []byte,
) (*uint256.Int, *uint256.Int, error) {
	return p.removeLiquidity(ctx, owner, owner, shares, recipient, hookData)
}

// RemoveLiquidityFrom burns shares of owner on behalf of spender, consuming
// spender's allowance.
func (p *Pool) RemoveLiquidityFrom(
	ctx context.Context,
	spender, owner common.Address,
	shares *uint256.Int,
	recipient common.Address,
	hookData []byte,
) (*uint256.Int, *uint256.Int, error) {
	return p.removeLiquidity(ctx, spender, owner, shares, recipient, hookData)
}

func (p *Pool) removeLiquidity(
	ctx context.Context,
	caller, owner common.Address,
	shares *uint256.Int,
	recipient common.Address,
	hookData []byte,
) (*uint256.Int, *uint256.Int, error) {
	var amountA, amountB *uint256.Int
	delegated := caller != owner

	err := p.execute(ctx, "remove", func(ctx context.Context, op *operation) error {
		if !p.Initialized() {
			return ErrNotInitialized
		}
		if recipient == (common.Address{}) {
			return ErrZeroIdentity
		}
		if shares.IsZero() {
			return ErrZeroAmount
		}
		if owner == BurnAddress {
			return ErrLockedShares
		}
		if bal := p.BalanceOf(owner); bal.Lt(shares) {
			return fmt.Errorf("%w: %s holds %s, burning %s", ErrInsufficientShares, owner.Hex(), bal, shares)
		}
		if delegated {
			if allowed := p.Allowance(owner, caller); allowed.Lt(shares) {
				return fmt.Errorf("%w: %s may burn %s of %s, needs %s",
					ErrInsufficientAllowance, caller.Hex(), allowed, owner.Hex(), shares)
			}
		}

		total := p.TotalShares()
		reserveA, reserveB := p.Reserves()
		outA, err := mulDiv(shares, reserveA, total)
		if err != nil {
			return err
		}
		outB, err := mulDiv(shares, reserveB, total)
		if err != nil {
			return err
		}
		if outA.IsZero() || outB.IsZero() {
			return ErrDegenerateBurn
		}

		call := p.newCall(caller, hookData)
		call.Liquidity = &hooks.ModifyLiquidityParams{
			ShareDelta: new(big.Int).Neg(shares.ToBig()),
			AmountA:    outA.Clone(),
			AmountB:    outB.Clone(),
			Recipient:  recipient,
		}
		if _, err := p.dispatch(ctx, hooks.BeforeModifyLiquidity, call); err != nil {
			return err
		}

		// Effects
		err = p.mutate(func() error {
			if delegated {
				if err := p.ledger.spendAllowance(owner, caller, shares, &op.journal); err != nil {
					return err
				}
			}
			if err := p.ledger.burn(owner, shares, &op.journal); err != nil {
				return err
			}
			p.setReserves(
				new(uint256.Int).Sub(p.reserveA, outA),
				new(uint256.Int).Sub(p.reserveB, outB),
				&op.journal,
			)
			return nil
		})
		if err != nil {
			return err
		}

		// Interactions
		if err := p.pay(ctx, recipient, outA, outB); err != nil {
			return err
		}

		negA := new(big.Int).Neg(outA.ToBig())
		negB := new(big.Int).Neg(outB.ToBig())
		if err := p.afterModify(ctx, caller, hookData, call.Liquidity, negA, negB); err != nil {
			return err
		}

		id := p.ID()
		op.emit(Event{Kind: EventTransfer, Pool: id, From: owner, Shares: shares.Clone()})
		op.emit(Event{Kind: EventBurn, Pool: id, From: owner, To: recipient,
			AmountA: outA.Clone(), AmountB: outB.Clone(), Shares: shares.Clone()})

		if delegated {
			p.log.Warn("delegated liquidity removal",
				log.String("pool", p.address.Hex()),
				log.String("spender", caller.Hex()),
				log.String("owner", owner.Hex()),
				log.Stringer("shares", shares),
			)
		} else {
			p.log.Debug("liquidity removed",
				log.String("pool", p.address.Hex()),
				log.Stringer("shares", shares),
			)
		}
		amountA, amountB = outA, outB
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amountA, amountB, nil
}

// =========================================================================
// Helpers
// =========================================================================

func (p *Pool) afterModify(
	ctx context.Context,
	sender common.Address,
	hookData []byte,
	params *hooks.ModifyLiquidityParams,
	deltaA, deltaB *big.Int,
) error {
	delta := hooks.NewBalanceDelta(deltaA, deltaB)
	call := p.newCall(sender, hookData)
	call.Liquidity = params
	call.Delta = &delta
	_, err := p.dispatch(ctx, hooks.AfterModifyLiquidity, call)
	return err
}

// pull moves amounts of both assets from sender into the pool.
func (p *Pool) pull(ctx context.Context, sender common.Address, amountA, amountB *uint256.Int) error {
	key := p.Key()
	if !amountA.IsZero() {
		if err := p.transfer(ctx, key.AssetA, sender, p.address, amountA); err != nil {
			return err
		}
	}
	if !amountB.IsZero() {
		if err := p.transfer(ctx, key.AssetB, sender, p.address, amountB); err != nil {
			return err
		}
	}
	return nil
}

// pay moves amounts of both assets from the pool to recipient.
func (p *Pool) pay(ctx context.Context, recipient common.Address, amountA, amountB *uint256.Int) error {
	key := p.Key()
	if !amountA.IsZero() {
		if err := p.transfer(ctx, key.AssetA, p.address, recipient, amountA); err != nil {
			return err
		}
	}
	if !amountB.IsZero() {
		if err := p.transfer(ctx, key.AssetB, p.address, recipient, amountB); err != nil {
			return err
		}
	}
	return nil
}
