// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package crosschain relays pool liquidity changes to remote chains and
// accepts the deltas remote pools report back.
package crosschain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/ids"
	"github.com/zeebo/blake3"
)

const (
	codecVersion byte = 1

	// version (1) + pairID (32) + sourceChain (32) + sequence (8) + timestamp (8) + sign (1) + magLen (1)
	headerSize = 1 + 32 + 32 + 8 + 8 + 1 + 1

	maxMagnitude = 32
)

var (
	ErrInvalidMessage = errors.New("invalid cross-chain message")
	ErrUnknownOrigin  = errors.New("unknown message origin")
	ErrInvalidTarget  = errors.New("invalid cross-chain target")
)

// LiquidityDelta is the signed share change of one pool operation.
type LiquidityDelta struct {
	PairID      [32]byte
	AmountDelta *big.Int
	SourceChain ids.ID
	Sequence    uint64 // monotonic per pair on the source chain
	Timestamp   int64
}

// Encode encodes the delta to bytes.
func (d *LiquidityDelta) Encode() ([]byte, error) {
	var magnitude []byte
	if d.AmountDelta != nil {
		magnitude = new(big.Int).Abs(d.AmountDelta).Bytes()
	}
	if len(magnitude) > maxMagnitude {
		return nil, fmt.Errorf("%w: delta exceeds %d bytes", ErrInvalidMessage, maxMagnitude)
	}

	data := make([]byte, headerSize+len(magnitude))

	offset := 0
	data[offset] = codecVersion
	offset++

	copy(data[offset:], d.PairID[:])
	offset += 32

	copy(data[offset:], d.SourceChain[:])
	offset += 32

	binary.BigEndian.PutUint64(data[offset:], d.Sequence)
	offset += 8

	binary.BigEndian.PutUint64(data[offset:], uint64(d.Timestamp))
	offset += 8

	if d.AmountDelta != nil && d.AmountDelta.Sign() < 0 {
		data[offset] = 1
	}
	offset++

	data[offset] = byte(len(magnitude))
	offset++

	copy(data[offset:], magnitude)
	return data, nil
}

// DecodeDelta decodes a delta from bytes.
func DecodeDelta(data []byte) (*LiquidityDelta, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidMessage, len(data))
	}
	if data[0] != codecVersion {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidMessage, data[0])
	}

	d := &LiquidityDelta{}
	offset := 1

	copy(d.PairID[:], data[offset:offset+32])
	offset += 32

	copy(d.SourceChain[:], data[offset:offset+32])
	offset += 32

	d.Sequence = binary.BigEndian.Uint64(data[offset:])
	offset += 8

	d.Timestamp = int64(binary.BigEndian.Uint64(data[offset:]))
	offset += 8

	negative := data[offset]
	offset++
	if negative > 1 {
		return nil, fmt.Errorf("%w: sign byte %d", ErrInvalidMessage, negative)
	}

	magLen := int(data[offset])
	offset++
	if magLen > maxMagnitude || offset+magLen != len(data) {
		return nil, fmt.Errorf("%w: magnitude length %d", ErrInvalidMessage, magLen)
	}

	d.AmountDelta = new(big.Int).SetBytes(data[offset:])
	if negative == 1 {
		if d.AmountDelta.Sign() == 0 {
			return nil, fmt.Errorf("%w: negative zero", ErrInvalidMessage)
		}
		d.AmountDelta.Neg(d.AmountDelta)
	}
	return d, nil
}

// Key returns the deduplication key of d: (sourceChain, pairID, sequence).
func (d *LiquidityDelta) Key() []byte {
	h := blake3.New()
	h.Write(d.SourceChain[:])
	h.Write(d.PairID[:])
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], d.Sequence)
	h.Write(seq[:])

	key := make([]byte, len(dedupPrefix)+32)
	copy(key, dedupPrefix)
	h.Digest().Read(key[len(dedupPrefix):])
	return key
}
