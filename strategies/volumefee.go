// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package strategies

import (
	"context"
	"fmt"

	"github.com/luxfi/lxpool/fee"
	"github.com/luxfi/lxpool/hooks"
)

var _ Strategy = (*VolumeFee)(nil)

// VolumeFee scales the fee of a swap by its size. The base is the fee in
// effect when the strategy runs: the pool fee tier, or the fee set by a
// strategy that ran before it in a Composite.
type VolumeFee struct {
	hooks.BaseHook

	scaler fee.VolumeScaler
}

// NewVolumeFee creates a trade-size fee strategy.
func NewVolumeFee(scaler fee.VolumeScaler) (*VolumeFee, error) {
	if scaler.Threshold == nil || scaler.Threshold.IsZero() || scaler.MaxMultiplier == 0 {
		return nil, fmt.Errorf("%w: volume threshold and max multiplier must be positive", fee.ErrInvalidConfig)
	}
	return &VolumeFee{scaler: scaler}, nil
}

func (*VolumeFee) Kind() Kind { return KindVolumeFee }

func (*VolumeFee) Permissions() hooks.Permissions {
	return hooks.Permissions{BeforeSwap: true}
}

func (v *VolumeFee) BeforeSwap(_ context.Context, call *hooks.Call) (hooks.Outcome, error) {
	f, err := v.scaler.Fee(call.Pool.FeeTier, call.Swap.AmountIn)
	if err != nil {
		return hooks.Outcome{}, err
	}
	return hooks.WithFee(f), nil
}
