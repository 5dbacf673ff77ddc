// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hooks

import (
	"context"
	"sync"
)

type commitKey struct{}

// CommitQueue holds effects a hook cannot undo. They run only once the pool
// operation that dispatched the hook has committed, and are dropped if it
// rolls back.
type CommitQueue struct {
	mu  sync.Mutex
	fns []func()
}

// WithCommitQueue returns a context carrying a fresh queue.
func WithCommitQueue(ctx context.Context) (context.Context, *CommitQueue) {
	q := &CommitQueue{}
	return context.WithValue(ctx, commitKey{}, q), q
}

// OnCommit schedules fn on the queue carried by ctx. Without a queue fn runs
// immediately.
func OnCommit(ctx context.Context, fn func()) {
	q, ok := ctx.Value(commitKey{}).(*CommitQueue)
	if !ok {
		fn()
		return
	}
	q.mu.Lock()
	q.fns = append(q.fns, fn)
	q.mu.Unlock()
}

// Run executes the queued effects in scheduling order and empties the queue.
func (q *CommitQueue) Run() {
	q.mu.Lock()
	fns := q.fns
	q.fns = nil
	q.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Discard drops the queued effects.
func (q *CommitQueue) Discard() {
	q.mu.Lock()
	q.fns = nil
	q.mu.Unlock()
}
