// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pool implements a hooked two-asset constant-product pool: reserves,
// the share ledger, liquidity provision and withdrawal, swaps and donations.
//
// Every mutating operation runs under a per-pool guard and is atomic: a hook
// veto, a bank failure or a violated invariant reverts the share ledger, the
// reserves and the bank to their state before the call.
package pool

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/lxpool/hooks"
)

// Config is supplied by the factory that creates a pool.
type Config struct {
	// Address is the pool's own account in the bank.
	Address common.Address

	// Handle identifies the hook of the pool. Zero for none.
	Handle hooks.Handle

	// RequiredHooks are the extension points the pool needs its hook to
	// implement. The handle must claim all of them.
	RequiredHooks hooks.Flags

	// Hook is the implementation behind Handle. When nil it is resolved
	// from Registry.
	Hook     hooks.Hook
	Registry *hooks.Registry
}

// Option configures a Pool
type Option func(*Pool)

// WithLogger sets the pool logger.
func WithLogger(logger log.Logger) Option {
	return func(p *Pool) { p.log = logger }
}

// WithMetrics sets the pool metrics. Metrics may be shared between pools.
func WithMetrics(m *Metrics) Option {
	return func(p *Pool) { p.metrics = m }
}

// WithBank sets the bank that holds pool and caller assets. A failed
// operation reverts the bank to its snapshot, so a bank must not be shared
// by pools that run concurrently. New rejects a MemBank already bound to
// another pool.
func WithBank(b Bank) Option {
	return func(p *Pool) { p.bank = b }
}

// WithEventSink sets the receiver of committed events.
func WithEventSink(s EventSink) Option {
	return func(p *Pool) { p.events = s }
}

// Pool is a constant-product pool over two assets.
type Pool struct {
	guard guard

	address  common.Address
	handle   hooks.Handle
	required hooks.Flags
	hook     hooks.Hook
	pipeline *hooks.Pipeline

	bank    Bank
	events  EventSink
	metrics *Metrics
	log     log.Logger

	// mu protects the state below. It is held only while state is read or
	// written, never across hook or bank calls.
	mu          sync.RWMutex
	key         Key
	initialized bool
	reserveA    *uint256.Int
	reserveB    *uint256.Int
	ledger      *ShareLedger
}

// New creates an uninitialized pool. The hook handle must claim every
// required extension point.
func New(cfg Config, opts ...Option) (*Pool, error) {
	if cfg.Address == (common.Address{}) {
		return nil, ErrZeroPoolAddress
	}
	if err := hooks.Validate(cfg.Handle, cfg.RequiredHooks); err != nil {
		return nil, err
	}

	hook := cfg.Hook
	if hook == nil && !cfg.Handle.IsZero() {
		if cfg.Registry == nil {
			return nil, fmt.Errorf("%w: %s", hooks.ErrHookNotRegistered, cfg.Handle)
		}
		resolved, err := cfg.Registry.Resolve(cfg.Handle)
		if err != nil {
			return nil, err
		}
		hook = resolved
	}

	p := &Pool{
		address:  cfg.Address,
		handle:   cfg.Handle,
		required: cfg.RequiredHooks,
		hook:     hook,
		events:   nopSink{},
		log:      log.NewNoOpLogger(),
		key:      Key{Hooks: cfg.Handle},
		reserveA: new(uint256.Int),
		reserveB: new(uint256.Int),
		ledger:   NewShareLedger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bank == nil {
		p.bank = NewMemBank()
	}
	if mb, ok := p.bank.(*MemBank); ok {
		if err := mb.bind(p.address); err != nil {
			return nil, err
		}
	}
	p.pipeline = hooks.NewPipeline(p.log)
	return p, nil
}

// =========================================================================
// Operation Execution
// =========================================================================

// operation collects the undo log and pending events of one call.
type operation struct {
	name    string
	journal journal
	events  []Event
}

func (op *operation) emit(e Event) {
	op.events = append(op.events, e)
}

// execute runs fn under the pool guard. On failure every journaled state
// change and every bank transfer made by fn is reverted and the effects hooks
// scheduled with hooks.OnCommit are dropped. On success those effects run
// after the events are emitted.
func (p *Pool) execute(ctx context.Context, name string, fn func(context.Context, *operation) error) error {
	ctx, release, err := p.guard.enter(ctx)
	if err != nil {
		if p.metrics != nil {
			p.metrics.ReentrancyRejections.Inc()
		}
		p.log.Warn("rejected reentrant call",
			log.String("op", name),
			log.String("pool", p.address.Hex()),
		)
		return err
	}
	defer release()

	op := &operation{name: name}
	snapshot := p.bank.Snapshot()
	ctx, effects := hooks.WithCommitQueue(ctx)

	if err := fn(ctx, op); err != nil {
		effects.Discard()
		mutated := op.journal.length() > 0
		p.mu.Lock()
		op.journal.revert()
		p.mu.Unlock()
		p.bank.RevertToSnapshot(snapshot)

		if mutated && p.metrics != nil {
			p.metrics.Rollbacks.WithLabelValues(name).Inc()
		}
		p.log.Debug("pool operation failed",
			log.String("op", name),
			log.String("pool", p.address.Hex()),
			log.Err(err),
		)
		return err
	}

	for _, e := range op.events {
		p.events.Emit(e)
	}
	done := p.guard.callback()
	effects.Run()
	done()
	p.observe(name)
	return nil
}

// mutate applies fn to the pool state under the state lock.
func (p *Pool) mutate(fn func() error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fn()
}

// setReserves must be called with the state lock held.
func (p *Pool) setReserves(a, b *uint256.Int, j *journal) {
	prevA, prevB := p.reserveA, p.reserveB
	p.reserveA, p.reserveB = a, b
	j.append(func() {
		p.reserveA, p.reserveB = prevA, prevB
	})
}

func (p *Pool) dispatch(ctx context.Context, point hooks.Point, call *hooks.Call) (hooks.Outcome, error) {
	done := p.guard.callback()
	out, err := p.pipeline.Dispatch(ctx, point, p.handle, p.required, p.hook, call)
	done()
	if err != nil && p.metrics != nil {
		p.metrics.HookVetoes.WithLabelValues(point.String()).Inc()
	}
	return out, err
}

// transfer moves amount of asset through the bank.
func (p *Pool) transfer(ctx context.Context, asset, from, to common.Address, amount *uint256.Int) error {
	done := p.guard.callback()
	defer done()
	return p.bank.Transfer(ctx, asset, from, to, amount)
}

func (p *Pool) newCall(sender common.Address, hookData []byte) *hooks.Call {
	return &hooks.Call{
		Sender:   sender,
		Pool:     p.State(),
		HookData: hookData,
	}
}

func (p *Pool) observe(op string) {
	if p.metrics == nil {
		return
	}
	p.metrics.Operations.WithLabelValues(op).Inc()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.initialized {
		return
	}
	p.metrics.Reserves.WithLabelValues(p.key.AssetA.Hex()).Set(toFloat(p.reserveA))
	p.metrics.Reserves.WithLabelValues(p.key.AssetB.Hex()).Set(toFloat(p.reserveB))
	p.metrics.TotalShares.Set(toFloat(p.ledger.total))
}

func toFloat(v *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}

// =========================================================================
// Pool Initialization
// =========================================================================

// Initialize sets the assets and fee tier of the pool. The assets must be
// pre-sorted.
func (p *Pool) Initialize(
	ctx context.Context,
	sender common.Address,
	assetA, assetB common.Address,
	feeTier uint32,
	hookData []byte,
) error {
	return p.execute(ctx, "initialize", func(ctx context.Context, op *operation) error {
		if p.Initialized() {
			return ErrAlreadyInitialized
		}
		if err := validateAssets(assetA, assetB); err != nil {
			return err
		}
		if feeTier > MaxFeeTier {
			return fmt.Errorf("%w: %d > %d", ErrInvalidFee, feeTier, MaxFeeTier)
		}

		key := Key{AssetA: assetA, AssetB: assetB, FeeTier: feeTier, Hooks: p.handle}

		call := p.newCall(sender, hookData)
		call.Pool.ID = key.ID()
		call.Pool.AssetA, call.Pool.AssetB, call.Pool.FeeTier = assetA, assetB, feeTier
		if _, err := p.dispatch(ctx, hooks.BeforeInitialize, call); err != nil {
			return err
		}

		_ = p.mutate(func() error {
			prevKey := p.key
			p.key = key
			p.initialized = true
			op.journal.append(func() {
				p.key = prevKey
				p.initialized = false
			})
			p.setReserves(new(uint256.Int), new(uint256.Int), &op.journal)
			return nil
		})

		if _, err := p.dispatch(ctx, hooks.AfterInitialize, p.newCall(sender, hookData)); err != nil {
			return err
		}

		op.emit(Event{Kind: EventInitialize, Pool: key.ID(), From: sender, Fee: feeTier})
		p.log.Info("pool initialized",
			log.String("pool", p.address.Hex()),
			log.String("assetA", assetA.Hex()),
			log.String("assetB", assetB.Hex()),
			log.Uint32("fee", feeTier),
			log.Stringer("hook", p.handle),
		)
		return nil
	})
}

// =========================================================================
// Views
// =========================================================================

// Address returns the pool's account in the bank.
func (p *Pool) Address() common.Address {
	return p.address
}

// Handle returns the hook handle of the pool.
func (p *Pool) Handle() hooks.Handle {
	return p.handle
}

// Initialized reports whether Initialize has succeeded.
func (p *Pool) Initialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialized
}

// Key returns the pool key. Assets and fee are zero until initialized.
func (p *Pool) Key() Key {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.key
}

// ID returns the pool identifier.
func (p *Pool) ID() [32]byte {
	return p.Key().ID()
}

// Reserves returns the current reserves.
func (p *Pool) Reserves() (*uint256.Int, *uint256.Int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reserveA.Clone(), p.reserveB.Clone()
}

// TotalShares returns the outstanding share supply.
func (p *Pool) TotalShares() *uint256.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.TotalSupply()
}

// BalanceOf returns the shares held by owner.
func (p *Pool) BalanceOf(owner common.Address) *uint256.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.BalanceOf(owner)
}

// Allowance returns the shares spender may move on behalf of owner.
func (p *Pool) Allowance(owner, spender common.Address) *uint256.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ledger.Allowance(owner, spender)
}

// State returns a snapshot of the pool for hooks and observers.
func (p *Pool) State() hooks.PoolState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return hooks.PoolState{
		ID:          p.key.ID(),
		Address:     p.address,
		AssetA:      p.key.AssetA,
		AssetB:      p.key.AssetB,
		FeeTier:     p.key.FeeTier,
		ReserveA:    p.reserveA.Clone(),
		ReserveB:    p.reserveB.Clone(),
		TotalShares: p.ledger.TotalSupply(),
	}
}

// =========================================================================
// Share Token
// =========================================================================

// Transfer moves shares from one holder to another.
func (p *Pool) Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	return p.execute(ctx, "transfer", func(_ context.Context, op *operation) error {
		if to == (common.Address{}) {
			return ErrZeroIdentity
		}
		err := p.mutate(func() error {
			return p.ledger.transfer(from, to, amount, &op.journal)
		})
		if err != nil {
			return err
		}
		op.emit(Event{Kind: EventTransfer, Pool: p.ID(), From: from, To: to, Shares: amount.Clone()})
		return nil
	})
}

// Approve sets the shares spender may move on behalf of owner.
func (p *Pool) Approve(ctx context.Context, owner, spender common.Address, amount *uint256.Int) error {
	return p.execute(ctx, "approve", func(_ context.Context, op *operation) error {
		if spender == (common.Address{}) {
			return ErrZeroIdentity
		}
		_ = p.mutate(func() error {
			p.ledger.approve(owner, spender, amount, &op.journal)
			return nil
		})
		op.emit(Event{Kind: EventApproval, Pool: p.ID(), From: owner, To: spender, Shares: amount.Clone()})
		return nil
	})
}

// TransferFrom moves shares on behalf of from, consuming spender's allowance.
func (p *Pool) TransferFrom(ctx context.Context, spender, from, to common.Address, amount *uint256.Int) error {
	return p.execute(ctx, "transferFrom", func(_ context.Context, op *operation) error {
		if to == (common.Address{}) {
			return ErrZeroIdentity
		}
		err := p.mutate(func() error {
			if err := p.ledger.spendAllowance(from, spender, amount, &op.journal); err != nil {
				return err
			}
			return p.ledger.transfer(from, to, amount, &op.journal)
		})
		if err != nil {
			return err
		}
		op.emit(Event{Kind: EventTransfer, Pool: p.ID(), From: from, To: to, Shares: amount.Clone()})
		return nil
	})
}
