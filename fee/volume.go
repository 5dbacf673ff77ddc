// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fee

import (
	"fmt"

	"github.com/holiman/uint256"
)

// VolumeScaler multiplies a base fee by a capped function of trade size.
type VolumeScaler struct {
	Threshold     *uint256.Int `json:"threshold"`
	MaxMultiplier uint32       `json:"maxMultiplier"`
}

// Multiplier returns min(ceil(amount/Threshold), MaxMultiplier), at least 1.
func (v VolumeScaler) Multiplier(amount *uint256.Int) uint32 {
	if v.Threshold == nil || v.Threshold.IsZero() || v.MaxMultiplier <= 1 {
		return 1
	}

	q, rem := new(uint256.Int), new(uint256.Int)
	q.DivMod(amount, v.Threshold, rem)
	if !rem.IsZero() {
		q.AddUint64(q, 1)
	}

	if q.IsZero() {
		return 1
	}
	if !q.IsUint64() || q.Uint64() > uint64(v.MaxMultiplier) {
		return v.MaxMultiplier
	}
	return uint32(q.Uint64())
}

// Fee scales base by the trade size multiplier, capped at MaxFeeCeiling.
// The result must pass ValidateFee.
func (v VolumeScaler) Fee(base uint32, amount *uint256.Int) (uint32, error) {
	scaled := uint64(base) * uint64(v.Multiplier(amount))
	if scaled > uint64(MaxFeeCeiling) {
		scaled = uint64(MaxFeeCeiling)
	}

	fee := uint32(scaled)
	if !ValidateFee(fee) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidFee, fee)
	}
	return fee, nil
}
