// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package strategies

import (
	"context"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/lxpool/fee"
	"github.com/luxfi/lxpool/hooks"
)

var _ Strategy = (*DynamicFee)(nil)

// DynamicFee prices every swap from the fee registry and feeds the realized
// volume back into it. Input of asset A counts as positive volume, input of
// asset B as negative.
type DynamicFee struct {
	hooks.BaseHook

	registry *fee.Registry
	updater  common.Address
	log      log.Logger
}

// NewDynamicFee creates a dynamic fee strategy. updater is the identity the
// strategy reports volume under and must be authorized in registry.
func NewDynamicFee(registry *fee.Registry, updater common.Address, logger log.Logger) (*DynamicFee, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: fee registry", ErrMissingDependency)
	}
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &DynamicFee{
		registry: registry,
		updater:  updater,
		log:      logger,
	}, nil
}

func (*DynamicFee) Kind() Kind { return KindDynamicFee }

func (*DynamicFee) Permissions() hooks.Permissions {
	return hooks.Permissions{BeforeSwap: true, AfterSwap: true}
}

// BeforeSwap overrides the pool fee tier with the registry fee of the pair.
func (d *DynamicFee) BeforeSwap(_ context.Context, call *hooks.Call) (hooks.Outcome, error) {
	f, err := d.registry.GetFee(call.Pool.ID)
	if err != nil {
		return hooks.Outcome{}, err
	}
	return hooks.WithFee(f), nil
}

// AfterSwap adds the signed input amount to the pair's net volume once the
// swap commits. An unconfigured pair or an unauthorized updater fails the
// swap.
func (d *DynamicFee) AfterSwap(ctx context.Context, call *hooks.Call) (hooks.Outcome, error) {
	pair := call.Pool.ID
	if _, ok := d.registry.Config(pair); !ok {
		return hooks.Outcome{}, fmt.Errorf("%w: %x", fee.ErrUnknownPair, pair)
	}
	if !d.registry.IsAuthorized(d.updater) {
		return hooks.Outcome{}, fmt.Errorf("%w: %s", fee.ErrUnauthorized, d.updater.Hex())
	}

	volume := signedVolume(call.Swap)
	hooks.OnCommit(ctx, func() {
		if err := d.registry.UpdateFee(d.updater, pair, volume); err != nil {
			d.log.Warn("failed to record swap volume",
				log.String("pool", common.Hash(pair).Hex()),
				log.Err(err),
			)
			return
		}
		d.log.Debug("swap volume recorded",
			log.String("pool", common.Hash(pair).Hex()),
			log.Stringer("volume", volume),
		)
	})
	return hooks.Pass(hooks.AfterSwap), nil
}

func signedVolume(swap *hooks.SwapParams) *big.Int {
	if swap == nil || swap.AmountIn == nil {
		return new(big.Int)
	}
	v := swap.AmountIn.ToBig()
	if !swap.AToB {
		v.Neg(v)
	}
	return v
}
