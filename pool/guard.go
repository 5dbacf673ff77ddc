// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"context"
	"sync"
	"sync/atomic"
)

type guardKey struct{ g *guard }

// guard serializes mutating operations on one pool and rejects nested entry.
//
// Nested entry is detected through the context handed to hooks and the bank.
// A callback that enters with an unrelated context is caught by the callback
// counter: while the holder is inside a hook or bank call, contenders fail
// with ErrReentrantCall instead of waiting. Outside callbacks they wait.
type guard struct {
	mu        sync.Mutex
	callbacks atomic.Int32
}

// enter acquires the guard. The returned context marks the pool as busy and
// release must be called on every exit path.
func (g *guard) enter(ctx context.Context) (context.Context, func(), error) {
	if ctx.Value(guardKey{g}) != nil {
		return nil, nil, ErrReentrantCall
	}
	if !g.mu.TryLock() {
		if g.callbacks.Load() > 0 {
			return nil, nil, ErrReentrantCall
		}
		g.mu.Lock()
	}
	return context.WithValue(ctx, guardKey{g}, struct{}{}), g.mu.Unlock, nil
}

// callback marks the holder as running foreign code until the returned
// func is called.
func (g *guard) callback() func() {
	g.callbacks.Add(1)
	return func() { g.callbacks.Add(-1) }
}
