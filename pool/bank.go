// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Bank moves assets between accounts. A pool pulls deposits from callers into
// its own address and pays withdrawals and swap output from it.
//
// Snapshot and RevertToSnapshot follow StateDB semantics: reverting undoes
// every transfer made after the snapshot was taken. A bank is expected to be
// scoped to one executing transaction at a time.
type Bank interface {
	Transfer(ctx context.Context, asset, from, to common.Address, amount *uint256.Int) error
	BalanceOf(asset, account common.Address) *uint256.Int
	Snapshot() int
	RevertToSnapshot(id int)
}

type balanceKey struct {
	asset   common.Address
	account common.Address
}

type balanceChange struct {
	key  balanceKey
	prev *uint256.Int
}

// MemBank is an in-memory Bank. Its snapshots cover every transfer it has
// seen, so a MemBank serves a single pool.
type MemBank struct {
	mu sync.Mutex

	owner common.Address

	balances map[balanceKey]*uint256.Int
	changes  []balanceChange
}

var _ Bank = (*MemBank)(nil)

// NewMemBank creates an empty in-memory bank.
func NewMemBank() *MemBank {
	return &MemBank{
		balances: make(map[balanceKey]*uint256.Int),
	}
}

// Mint credits amount of asset to account.
func (b *MemBank) Mint(asset, account common.Address, amount *uint256.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := balanceKey{asset, account}
	b.set(k, new(uint256.Int).Add(b.get(k), amount))
}

// Transfer moves amount of asset from one account to another.
func (b *MemBank) Transfer(_ context.Context, asset, from, to common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fromKey, toKey := balanceKey{asset, from}, balanceKey{asset, to}
	fromBal := b.get(fromKey)
	if fromBal.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s of %s, needs %s",
			ErrInsufficientBalance, from.Hex(), fromBal, asset.Hex(), amount)
	}
	if from == to {
		return nil
	}
	b.set(fromKey, new(uint256.Int).Sub(fromBal, amount))
	b.set(toKey, new(uint256.Int).Add(b.get(toKey), amount))
	return nil
}

// BalanceOf returns the balance of account in asset.
func (b *MemBank) BalanceOf(asset, account common.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.get(balanceKey{asset, account}).Clone()
}

// Snapshot returns an identifier for the current state.
func (b *MemBank) Snapshot() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.changes)
}

// RevertToSnapshot undoes every change made after snapshot id.
func (b *MemBank) RevertToSnapshot(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := len(b.changes) - 1; i >= id; i-- {
		c := b.changes[i]
		if c.prev == nil {
			delete(b.balances, c.key)
		} else {
			b.balances[c.key] = c.prev
		}
	}
	b.changes = b.changes[:id]
}

// bind claims b for the pool at addr.
func (b *MemBank) bind(addr common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.owner != (common.Address{}) && b.owner != addr {
		return fmt.Errorf("%w: bound to %s", ErrBankShared, b.owner.Hex())
	}
	b.owner = addr
	return nil
}

func (b *MemBank) get(k balanceKey) *uint256.Int {
	if bal, ok := b.balances[k]; ok {
		return bal
	}
	return new(uint256.Int)
}

// set must be called with lock held.
func (b *MemBank) set(k balanceKey, v *uint256.Int) {
	b.changes = append(b.changes, balanceChange{key: k, prev: b.balances[k]})
	b.balances[k] = v
}
