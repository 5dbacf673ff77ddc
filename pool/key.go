// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"bytes"
	"encoding/binary"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/luxfi/lxpool/hooks"
)

// Key uniquely identifies a pool.
type Key struct {
	AssetA  common.Address // Lower address asset
	AssetB  common.Address // Higher address asset
	FeeTier uint32         // Fee in parts per FeeDenominator
	Hooks   hooks.Handle   // Hook handle (zero for none)
}

// ID returns the unique identifier of the pool.
func (k Key) ID() [32]byte {
	h := blake3.New()
	h.Write(k.AssetA.Bytes())
	h.Write(k.AssetB.Bytes())

	var feeBytes [4]byte
	binary.BigEndian.PutUint32(feeBytes[:], k.FeeTier)
	h.Write(feeBytes[:])

	h.Write(k.Hooks.Base.Bytes())
	var flagBytes [2]byte
	binary.BigEndian.PutUint16(flagBytes[:], uint16(k.Hooks.Flags))
	h.Write(flagBytes[:])

	var id [32]byte
	h.Digest().Read(id[:])
	return id
}

// SortAssets returns the two assets in canonical order.
func SortAssets(x, y common.Address) (common.Address, common.Address) {
	if bytes.Compare(x.Bytes(), y.Bytes()) > 0 {
		return y, x
	}
	return x, y
}

func validateAssets(assetA, assetB common.Address) error {
	switch {
	case assetA == (common.Address{}) || assetB == (common.Address{}):
		return ErrZeroIdentity
	case assetA == assetB:
		return ErrIdenticalAssets
	case bytes.Compare(assetA.Bytes(), assetB.Bytes()) > 0:
		return ErrUnorderedAssets
	}
	return nil
}
