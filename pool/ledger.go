// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// BurnAddress holds the locked minimum liquidity. Shares sent here can never
// be withdrawn.
var BurnAddress = common.HexToAddress("0x000000000000000000000000000000000000dEaD")

// ShareLedger is the fungible share token of a pool: balances, allowances and
// total supply. The sum of all balances always equals the total supply.
//
// ShareLedger is not safe for concurrent use; the owning pool serializes access.
type ShareLedger struct {
	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]map[common.Address]*uint256.Int
	total      *uint256.Int
}

// NewShareLedger creates an empty share ledger.
func NewShareLedger() *ShareLedger {
	return &ShareLedger{
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]*uint256.Int),
		total:      new(uint256.Int),
	}
}

// TotalSupply returns the number of outstanding shares.
func (l *ShareLedger) TotalSupply() *uint256.Int {
	return l.total.Clone()
}

// BalanceOf returns the shares held by owner.
func (l *ShareLedger) BalanceOf(owner common.Address) *uint256.Int {
	if bal, ok := l.balances[owner]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

// Allowance returns the shares spender may move on behalf of owner.
func (l *ShareLedger) Allowance(owner, spender common.Address) *uint256.Int {
	if a, ok := l.allowances[owner][spender]; ok {
		return a.Clone()
	}
	return new(uint256.Int)
}

func (l *ShareLedger) mint(to common.Address, amount *uint256.Int, j *journal) error {
	total, overflow := new(uint256.Int).AddOverflow(l.total, amount)
	if overflow {
		return ErrOverflow
	}
	l.setBalance(to, new(uint256.Int).Add(l.BalanceOf(to), amount), j)
	l.setTotal(total, j)
	return nil
}

func (l *ShareLedger) burn(from common.Address, amount *uint256.Int, j *journal) error {
	if from == BurnAddress {
		return ErrLockedShares
	}
	bal := l.BalanceOf(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, burning %s", ErrInsufficientShares, from.Hex(), bal, amount)
	}
	l.setBalance(from, new(uint256.Int).Sub(bal, amount), j)
	l.setTotal(new(uint256.Int).Sub(l.total, amount), j)
	return nil
}

func (l *ShareLedger) transfer(from, to common.Address, amount *uint256.Int, j *journal) error {
	if from == BurnAddress {
		return ErrLockedShares
	}
	bal := l.BalanceOf(from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s, sending %s", ErrInsufficientShares, from.Hex(), bal, amount)
	}
	if from == to {
		return nil
	}
	l.setBalance(from, new(uint256.Int).Sub(bal, amount), j)
	l.setBalance(to, new(uint256.Int).Add(l.BalanceOf(to), amount), j)
	return nil
}

func (l *ShareLedger) approve(owner, spender common.Address, amount *uint256.Int, j *journal) {
	prev, had := l.allowances[owner][spender]
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[common.Address]*uint256.Int)
	}
	l.allowances[owner][spender] = amount.Clone()

	if j != nil {
		j.append(func() {
			if had {
				l.allowances[owner][spender] = prev
			} else {
				delete(l.allowances[owner], spender)
			}
		})
	}
}

func (l *ShareLedger) spendAllowance(owner, spender common.Address, amount *uint256.Int, j *journal) error {
	if owner == BurnAddress {
		return ErrLockedShares
	}
	allowed := l.Allowance(owner, spender)
	if allowed.Lt(amount) {
		return fmt.Errorf("%w: %s may spend %s of %s, needs %s",
			ErrInsufficientAllowance, spender.Hex(), allowed, owner.Hex(), amount)
	}
	l.approve(owner, spender, new(uint256.Int).Sub(allowed, amount), j)
	return nil
}

func (l *ShareLedger) setBalance(owner common.Address, v *uint256.Int, j *journal) {
	prev, had := l.balances[owner]
	if v.IsZero() {
		delete(l.balances, owner)
	} else {
		l.balances[owner] = v
	}

	if j != nil {
		j.append(func() {
			if had {
				l.balances[owner] = prev
			} else {
				delete(l.balances, owner)
			}
		})
	}
}

func (l *ShareLedger) setTotal(v *uint256.Int, j *journal) {
	prev := l.total
	l.total = v
	if j != nil {
		j.append(func() { l.total = prev })
	}
}

// sum returns the sum of all balances.
func (l *ShareLedger) sum() *uint256.Int {
	s := new(uint256.Int)
	for _, bal := range l.balances {
		s.Add(s, bal)
	}
	return s
}
