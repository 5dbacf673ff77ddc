// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package crosschain

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

var (
	dedupPrefix    = []byte("seen/")
	sequencePrefix = []byte("seq/")
)

// Transport delivers encoded deltas to a remote chain.
type Transport interface {
	Send(ctx context.Context, dest ids.ID, payload []byte) error
}

// Subscriber receives every accepted remote delta.
type Subscriber func(LiquidityDelta)

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets the notifier logger.
func WithLogger(logger log.Logger) Option {
	return func(n *Notifier) { n.log = logger }
}

// WithMetrics sets the notifier metrics.
func WithMetrics(m *Metrics) Option {
	return func(n *Notifier) { n.metrics = m }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// Notifier fans local liquidity deltas out to registered remote chains and
// accepts the deltas those chains send back.
type Notifier struct {
	local     ids.ID
	transport Transport
	db        database.Database

	mu          sync.Mutex
	targets     map[ids.ID]common.Address
	subscribers []Subscriber

	log     log.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewNotifier creates a notifier for the local chain. db holds the
// sequence counters and the dedup set.
func NewNotifier(local ids.ID, transport Transport, db database.Database, opts ...Option) *Notifier {
	n := &Notifier{
		local:     local,
		transport: transport,
		db:        db,
		targets:   make(map[ids.ID]common.Address),
		log:       log.NewNoOpLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Local returns the local chain ID.
func (n *Notifier) Local() ids.ID { return n.local }

// AddTarget registers a remote counterpart. Messages from chain are only
// accepted when they claim remoteSender.
func (n *Notifier) AddTarget(chain ids.ID, remoteSender common.Address) error {
	if chain == ids.Empty || chain == n.local {
		return fmt.Errorf("%w: chain %s", ErrInvalidTarget, chain)
	}
	if remoteSender == (common.Address{}) {
		return fmt.Errorf("%w: zero sender", ErrInvalidTarget)
	}

	n.mu.Lock()
	n.targets[chain] = remoteSender
	n.mu.Unlock()

	n.log.Info("cross-chain target registered",
		log.Stringer("chain", chain),
		log.String("sender", remoteSender.Hex()),
	)
	return nil
}

// RemoveTarget unregisters a remote counterpart.
func (n *Notifier) RemoveTarget(chain ids.ID) {
	n.mu.Lock()
	delete(n.targets, chain)
	n.mu.Unlock()
}

// Targets returns the registered chains in byte order.
func (n *Notifier) Targets() []ids.ID {
	n.mu.Lock()
	defer n.mu.Unlock()

	chains := make([]ids.ID, 0, len(n.targets))
	for chain := range n.targets {
		chains = append(chains, chain)
	}
	sort.Slice(chains, func(i, j int) bool {
		return bytes.Compare(chains[i][:], chains[j][:]) < 0
	})
	return chains
}

// Subscribe registers fn for every accepted remote delta.
func (n *Notifier) Subscribe(fn Subscriber) {
	n.mu.Lock()
	n.subscribers = append(n.subscribers, fn)
	n.mu.Unlock()
}

// Notify sends delta for pairID to every registered target and returns how
// many sends succeeded. A zero delta sends nothing. Transport failures are
// logged and counted; only encoding and storage failures are returned.
func (n *Notifier) Notify(ctx context.Context, pairID [32]byte, delta *big.Int) (int, error) {
	if delta == nil || delta.Sign() == 0 {
		return 0, nil
	}

	seq, err := n.nextSequence(pairID)
	if err != nil {
		return 0, err
	}

	msg := &LiquidityDelta{
		PairID:      pairID,
		AmountDelta: new(big.Int).Set(delta),
		SourceChain: n.local,
		Sequence:    seq,
		Timestamp:   n.now().Unix(),
	}
	payload, err := msg.Encode()
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, chain := range n.Targets() {
		if err := n.transport.Send(ctx, chain, payload); err != nil {
			n.log.Warn("failed to deliver liquidity delta",
				log.Stringer("chain", chain),
				log.Uint64("sequence", seq),
				log.Err(err),
			)
			if n.metrics != nil {
				n.metrics.Failed.WithLabelValues(chain.String()).Inc()
			}
			continue
		}
		delivered++
		if n.metrics != nil {
			n.metrics.Sent.WithLabelValues(chain.String()).Inc()
		}
	}

	n.log.Debug("liquidity delta sent",
		log.String("delta", delta.String()),
		log.Uint64("sequence", seq),
		log.Int("delivered", delivered),
	)
	return delivered, nil
}

// Receive handles a payload from sourceChain claimed to be sent by
// claimedSender. It reports whether the delta was new and republished.
func (n *Notifier) Receive(ctx context.Context, sourceChain ids.ID, claimedSender common.Address, payload []byte) (bool, error) {
	n.mu.Lock()
	sender, ok := n.targets[sourceChain]
	n.mu.Unlock()
	if !ok || sender != claimedSender {
		n.reject("origin")
		return false, fmt.Errorf("%w: chain %s sender %s", ErrUnknownOrigin, sourceChain, claimedSender.Hex())
	}

	msg, err := DecodeDelta(payload)
	if err != nil {
		n.reject("malformed")
		return false, err
	}
	if msg.SourceChain != sourceChain {
		n.reject("chain_mismatch")
		return false, fmt.Errorf("%w: payload chain %s, delivered by %s", ErrInvalidMessage, msg.SourceChain, sourceChain)
	}
	if msg.AmountDelta.Sign() == 0 {
		n.reject("malformed")
		return false, fmt.Errorf("%w: zero delta", ErrInvalidMessage)
	}

	key := msg.Key()

	n.mu.Lock()
	seen, err := n.db.Has(key)
	if err == nil && !seen {
		err = n.db.Put(key, []byte{1})
	}
	subscribers := n.subscribers
	n.mu.Unlock()
	if err != nil {
		return false, fmt.Errorf("dedup store: %w", err)
	}
	if seen {
		if n.metrics != nil {
			n.metrics.Duplicates.Inc()
		}
		n.log.Debug("duplicate liquidity delta",
			log.Stringer("chain", sourceChain),
			log.Uint64("sequence", msg.Sequence),
		)
		return false, nil
	}

	if n.metrics != nil {
		n.metrics.Received.WithLabelValues(sourceChain.String()).Inc()
	}
	for _, fn := range subscribers {
		fn(*msg)
	}
	return true, nil
}

func (n *Notifier) reject(reason string) {
	if n.metrics != nil {
		n.metrics.Rejected.WithLabelValues(reason).Inc()
	}
}

func (n *Notifier) nextSequence(pairID [32]byte) (uint64, error) {
	key := append(append([]byte{}, sequencePrefix...), pairID[:]...)

	n.mu.Lock()
	defer n.mu.Unlock()

	var seq uint64
	raw, err := n.db.Get(key)
	switch {
	case err == nil:
		if len(raw) != 8 {
			return 0, fmt.Errorf("corrupt sequence for pair %x", pairID)
		}
		seq = binary.BigEndian.Uint64(raw)
	case errors.Is(err, database.ErrNotFound):
	default:
		return 0, fmt.Errorf("failed to load sequence: %w", err)
	}

	seq++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	if err := n.db.Put(key, buf[:]); err != nil {
		return 0, fmt.Errorf("failed to store sequence: %w", err)
	}
	return seq, nil
}
