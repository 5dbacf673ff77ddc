// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package crosschain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var (
	localChain  = ids.ID{0x01}
	remoteChain = ids.ID{0x02}
	otherChain  = ids.ID{0x03}

	remoteSender = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	otherSender  = common.HexToAddress("0x00000000000000000000000000000000000000a2")

	pairID = [32]byte{0xaa}
)

type sent struct {
	dest    ids.ID
	payload []byte
}

type fakeTransport struct {
	mu    sync.Mutex
	fail  map[ids.ID]error
	sends []sent
}

func (f *fakeTransport) Send(_ context.Context, dest ids.ID, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[dest]; err != nil {
		return err
	}
	f.sends = append(f.sends, sent{dest: dest, payload: payload})
	return nil
}

func newTestNotifier(t *testing.T, transport Transport) (*Notifier, *Metrics) {
	t.Helper()
	metrics, err := NewMetrics("test", prometheus.NewRegistry())
	require.NoError(t, err)

	clock := func() time.Time { return time.Unix(1_700_000_000, 0) }
	return NewNotifier(localChain, transport, memdb.New(), WithMetrics(metrics), WithClock(clock)), metrics
}

func remoteDelta(seq uint64, amount int64) []byte {
	d := &LiquidityDelta{
		PairID:      pairID,
		AmountDelta: big.NewInt(amount),
		SourceChain: remoteChain,
		Sequence:    seq,
		Timestamp:   1_700_000_000,
	}
	payload, err := d.Encode()
	if err != nil {
		panic(err)
	}
	return payload
}

// =========================================================================
// Codec Tests
// =========================================================================

func TestDeltaCodec(t *testing.T) {
	tests := []struct {
		name   string
		amount *big.Int
	}{
		{"positive", big.NewInt(9000)},
		{"negative", big.NewInt(-1414)},
		{"wide", new(big.Int).Lsh(big.NewInt(1), 255)},
		{"negative wide", new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 200))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			d := &LiquidityDelta{
				PairID:      pairID,
				AmountDelta: tt.amount,
				SourceChain: remoteChain,
				Sequence:    7,
				Timestamp:   1_700_000_000,
			}
			payload, err := d.Encode()
			require.NoError(err)

			got, err := DecodeDelta(payload)
			require.NoError(err)
			require.Zero(tt.amount.Cmp(got.AmountDelta))
			require.Equal(d.PairID, got.PairID)
			require.Equal(d.SourceChain, got.SourceChain)
			require.Equal(d.Sequence, got.Sequence)
			require.Equal(d.Timestamp, got.Timestamp)
		})
	}
}

func TestDecodeDeltaRejectsMalformed(t *testing.T) {
	valid := remoteDelta(1, 100)

	badVersion := append([]byte{}, valid...)
	badVersion[0] = 9

	badSign := append([]byte{}, valid...)
	badSign[headerSize-2] = 2

	negZero := make([]byte, headerSize)
	negZero[0] = codecVersion
	negZero[headerSize-2] = 1

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", valid[:headerSize-1]},
		{"version", badVersion},
		{"sign", badSign},
		{"trailing", append(append([]byte{}, valid...), 0)},
		{"truncated magnitude", valid[:len(valid)-1]},
		{"negative zero", negZero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDelta(tt.data)
			require.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

func TestEncodeRejectsOversizedDelta(t *testing.T) {
	d := &LiquidityDelta{AmountDelta: new(big.Int).Lsh(big.NewInt(1), 256)}
	_, err := d.Encode()
	require.ErrorIs(t, err, ErrInvalidMessage)
}

func TestDedupKeyDistinguishesSequence(t *testing.T) {
	require := require.New(t)
	a := &LiquidityDelta{PairID: pairID, SourceChain: remoteChain, Sequence: 1}
	b := &LiquidityDelta{PairID: pairID, SourceChain: remoteChain, Sequence: 2}
	c := &LiquidityDelta{PairID: pairID, SourceChain: otherChain, Sequence: 1}

	require.NotEqual(a.Key(), b.Key())
	require.NotEqual(a.Key(), c.Key())
	require.Equal(a.Key(), (&LiquidityDelta{PairID: pairID, SourceChain: remoteChain, Sequence: 1, Timestamp: 5}).Key())
}

// =========================================================================
// Target Tests
// =========================================================================

func TestAddTarget(t *testing.T) {
	require := require.New(t)
	n, _ := newTestNotifier(t, &fakeTransport{})

	require.ErrorIs(n.AddTarget(ids.Empty, remoteSender), ErrInvalidTarget)
	require.ErrorIs(n.AddTarget(localChain, remoteSender), ErrInvalidTarget)
	require.ErrorIs(n.AddTarget(remoteChain, common.Address{}), ErrInvalidTarget)

	require.NoError(n.AddTarget(otherChain, otherSender))
	require.NoError(n.AddTarget(remoteChain, remoteSender))
	require.Equal([]ids.ID{remoteChain, otherChain}, n.Targets())

	n.RemoveTarget(otherChain)
	require.Equal([]ids.ID{remoteChain}, n.Targets())
}

// =========================================================================
// Notify Tests
// =========================================================================

func TestNotify(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	transport := &fakeTransport{}
	n, metrics := newTestNotifier(t, transport)
	require.NoError(n.AddTarget(remoteChain, remoteSender))
	require.NoError(n.AddTarget(otherChain, otherSender))

	delivered, err := n.Notify(ctx, pairID, big.NewInt(0))
	require.NoError(err)
	require.Zero(delivered)
	require.Empty(transport.sends)

	delivered, err = n.Notify(ctx, pairID, big.NewInt(-500))
	require.NoError(err)
	require.Equal(2, delivered)
	require.Len(transport.sends, 2)
	require.Equal(remoteChain, transport.sends[0].dest)

	msg, err := DecodeDelta(transport.sends[0].payload)
	require.NoError(err)
	require.Equal(localChain, msg.SourceChain)
	require.Equal(uint64(1), msg.Sequence)
	require.Equal(int64(-500), msg.AmountDelta.Int64())
	require.Equal(int64(1_700_000_000), msg.Timestamp)

	_, err = n.Notify(ctx, pairID, big.NewInt(10))
	require.NoError(err)
	msg, err = DecodeDelta(transport.sends[2].payload)
	require.NoError(err)
	require.Equal(uint64(2), msg.Sequence)

	// sequences are tracked per pair
	_, err = n.Notify(ctx, [32]byte{0xbb}, big.NewInt(10))
	require.NoError(err)
	msg, err = DecodeDelta(transport.sends[4].payload)
	require.NoError(err)
	require.Equal(uint64(1), msg.Sequence)

	require.Equal(float64(3), testutil.ToFloat64(metrics.Sent.WithLabelValues(remoteChain.String())))
}

func TestNotifyContinuesPastFailures(t *testing.T) {
	require := require.New(t)
	transport := &fakeTransport{fail: map[ids.ID]error{remoteChain: errors.New("relayer down")}}
	n, metrics := newTestNotifier(t, transport)
	require.NoError(n.AddTarget(remoteChain, remoteSender))
	require.NoError(n.AddTarget(otherChain, otherSender))

	delivered, err := n.Notify(context.Background(), pairID, big.NewInt(42))
	require.NoError(err)
	require.Equal(1, delivered)
	require.Len(transport.sends, 1)
	require.Equal(otherChain, transport.sends[0].dest)
	require.Equal(float64(1), testutil.ToFloat64(metrics.Failed.WithLabelValues(remoteChain.String())))
}

func TestNotifyWithoutTargets(t *testing.T) {
	n, _ := newTestNotifier(t, &fakeTransport{})
	delivered, err := n.Notify(context.Background(), pairID, big.NewInt(1))
	require.NoError(t, err)
	require.Zero(t, delivered)
}

// =========================================================================
// Receive Tests
// =========================================================================

func TestReceive(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	n, metrics := newTestNotifier(t, &fakeTransport{})
	require.NoError(n.AddTarget(remoteChain, remoteSender))

	var got []LiquidityDelta
	n.Subscribe(func(d LiquidityDelta) { got = append(got, d) })

	accepted, err := n.Receive(ctx, remoteChain, remoteSender, remoteDelta(1, 300))
	require.NoError(err)
	require.True(accepted)
	require.Len(got, 1)
	require.Equal(int64(300), got[0].AmountDelta.Int64())

	// replay is acknowledged but not republished
	accepted, err = n.Receive(ctx, remoteChain, remoteSender, remoteDelta(1, 300))
	require.NoError(err)
	require.False(accepted)
	require.Len(got, 1)

	accepted, err = n.Receive(ctx, remoteChain, remoteSender, remoteDelta(2, -300))
	require.NoError(err)
	require.True(accepted)
	require.Len(got, 2)

	require.Equal(float64(2), testutil.ToFloat64(metrics.Received.WithLabelValues(remoteChain.String())))
	require.Equal(float64(1), testutil.ToFloat64(metrics.Duplicates))
}

func TestReceiveRejects(t *testing.T) {
	ctx := context.Background()

	wrongChain := &LiquidityDelta{
		PairID:      pairID,
		AmountDelta: big.NewInt(1),
		SourceChain: otherChain,
		Sequence:    1,
	}
	wrongChainPayload, err := wrongChain.Encode()
	require.NoError(t, err)

	tests := []struct {
		name    string
		chain   ids.ID
		sender  common.Address
		payload []byte
		wantErr error
		reason  string
	}{
		{"unregistered chain", otherChain, remoteSender, remoteDelta(1, 1), ErrUnknownOrigin, "origin"},
		{"wrong sender", remoteChain, otherSender, remoteDelta(1, 1), ErrUnknownOrigin, "origin"},
		{"malformed", remoteChain, remoteSender, []byte{1, 2, 3}, ErrInvalidMessage, "malformed"},
		{"zero delta", remoteChain, remoteSender, remoteDelta(1, 0), ErrInvalidMessage, "malformed"},
		{"chain mismatch", remoteChain, remoteSender, wrongChainPayload, ErrInvalidMessage, "chain_mismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			n, metrics := newTestNotifier(t, &fakeTransport{})
			require.NoError(n.AddTarget(remoteChain, remoteSender))

			called := false
			n.Subscribe(func(LiquidityDelta) { called = true })

			accepted, err := n.Receive(ctx, tt.chain, tt.sender, tt.payload)
			require.ErrorIs(err, tt.wantErr)
			require.False(accepted)
			require.False(called)
			require.Equal(float64(1), testutil.ToFloat64(metrics.Rejected.WithLabelValues(tt.reason)))
		})
	}
}

func TestRoundTripBetweenNotifiers(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	// local sends, remote receives
	transport := &fakeTransport{}
	local, _ := newTestNotifier(t, transport)
	require.NoError(local.AddTarget(remoteChain, remoteSender))

	remote := NewNotifier(remoteChain, &fakeTransport{}, memdb.New())
	localSender := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	require.NoError(remote.AddTarget(localChain, localSender))

	var total big.Int
	remote.Subscribe(func(d LiquidityDelta) { total.Add(&total, d.AmountDelta) })

	for _, amount := range []int64{1000, -400, 250} {
		_, err := local.Notify(ctx, pairID, big.NewInt(amount))
		require.NoError(err)
	}
	for _, s := range transport.sends {
		accepted, err := remote.Receive(ctx, localChain, localSender, s.payload)
		require.NoError(err)
		require.True(accepted)
	}
	require.Equal(int64(850), total.Int64())
}
