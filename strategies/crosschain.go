// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package strategies

import (
	"context"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/lxpool/crosschain"
	"github.com/luxfi/lxpool/hooks"
)

var _ Strategy = (*CrossChainNotify)(nil)

// CrossChainNotify reports every committed share change of a pool to the
// remote chains registered with the notifier. Delivery is best effort and
// never fails the liquidity operation.
type CrossChainNotify struct {
	hooks.BaseHook

	notifier *crosschain.Notifier
	log      log.Logger
}

// NewCrossChainNotify creates a cross-chain notification strategy.
func NewCrossChainNotify(notifier *crosschain.Notifier, logger log.Logger) (*CrossChainNotify, error) {
	if notifier == nil {
		return nil, fmt.Errorf("%w: cross-chain notifier", ErrMissingDependency)
	}
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &CrossChainNotify{notifier: notifier, log: logger}, nil
}

func (*CrossChainNotify) Kind() Kind { return KindCrossChainNotify }

func (*CrossChainNotify) Permissions() hooks.Permissions {
	return hooks.Permissions{AfterModifyLiquidity: true}
}

// AfterModifyLiquidity sends the share delta once the liquidity change
// commits.
func (c *CrossChainNotify) AfterModifyLiquidity(ctx context.Context, call *hooks.Call) (hooks.Outcome, error) {
	pass := hooks.Pass(hooks.AfterModifyLiquidity)
	if call.Liquidity == nil || call.Liquidity.ShareDelta == nil {
		return pass, nil
	}

	pair := call.Pool.ID
	shares := new(big.Int).Set(call.Liquidity.ShareDelta)
	hooks.OnCommit(ctx, func() {
		delivered, err := c.notifier.Notify(ctx, pair, shares)
		if err != nil {
			c.log.Warn("failed to notify liquidity delta",
				log.String("pool", common.Hash(pair).Hex()),
				log.Err(err),
			)
			return
		}
		c.log.Debug("liquidity delta notified",
			log.String("pool", common.Hash(pair).Hex()),
			log.Stringer("shares", shares),
			log.Int("delivered", delivered),
		)
	})
	return pass, nil
}
