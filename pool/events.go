// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// EventKind identifies a pool event.
type EventKind uint8

const (
	EventInitialize EventKind = iota
	EventMint
	EventBurn
	EventSwap
	EventDonate
	EventTransfer
	EventApproval
)

func (k EventKind) String() string {
	switch k {
	case EventInitialize:
		return "initialize"
	case EventMint:
		return "mint"
	case EventBurn:
		return "burn"
	case EventSwap:
		return "swap"
	case EventDonate:
		return "donate"
	case EventTransfer:
		return "transfer"
	case EventApproval:
		return "approval"
	default:
		return "unknown"
	}
}

// Event is emitted after an operation commits. Fields not meaningful for a
// kind are left zero.
type Event struct {
	Kind EventKind
	Pool [32]byte

	// Transfer: From/To. Approval: From is the owner, To the spender.
	// Mint/Burn/Swap: From is the sender, To the recipient.
	From common.Address
	To   common.Address

	AmountA *uint256.Int
	AmountB *uint256.Int
	Shares  *uint256.Int

	// Swap only
	AToB      bool
	AmountIn  *uint256.Int
	AmountOut *uint256.Int
	Fee       uint32
}

// EventSink receives committed pool events.
type EventSink interface {
	Emit(Event)
}

type nopSink struct{}

func (nopSink) Emit(Event) {}

// EventLog is an EventSink that keeps every event in memory.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends e to the log.
func (l *EventLog) Emit(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// Events returns the logged events, oldest first.
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Filter returns the logged events of kind.
func (l *EventLog) Filter(kind EventKind) []Event {
	var out []Event
	for _, e := range l.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
