// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package strategies

import (
	"context"
	"fmt"
	"sort"

	"github.com/luxfi/lxpool/hooks"
)

var _ Strategy = (*Composite)(nil)

// Composite runs several strategies behind one hook. Members run in Kind
// order at every point, and only at the points they declare. A fee set by a
// member at beforeSwap is the fee tier later members see, and the last
// override is the one returned. Members defer their side effects with
// hooks.OnCommit, so a later member that fails leaves no trace of an earlier
// one.
type Composite struct {
	members []Strategy
	flags   hooks.Flags
}

// NewComposite combines members into one strategy.
func NewComposite(members ...Strategy) (*Composite, error) {
	ordered := make([]Strategy, 0, len(members))
	var flags hooks.Flags
	for _, m := range members {
		if m == nil {
			continue
		}
		ordered = append(ordered, m)
		flags |= Flags(m)
	}
	if len(ordered) == 0 {
		return nil, ErrEmptyComposite
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Kind() < ordered[j].Kind()
	})
	return &Composite{members: ordered, flags: flags}, nil
}

func (*Composite) Kind() Kind { return KindComposite }

func (c *Composite) Permissions() hooks.Permissions {
	return hooks.DecodePermissions(c.flags)
}

// Members returns the strategies in execution order.
func (c *Composite) Members() []Strategy {
	return append([]Strategy(nil), c.members...)
}

func (c *Composite) BeforeInitialize(ctx context.Context, call *hooks.Call) (hooks.Outcome, error) {
	return c.run(ctx, hooks.BeforeInitialize, call)
}

func (c *Composite) AfterInitialize(ctx context.Context, call *hooks.Call) (hooks.Outcome, error) {
	return c.run(ctx, hooks.AfterInitialize, call)
}

func (c *Composite) BeforeModifyLiquidity(ctx context.Context, call *hooks.Call) (hooks.Outcome, error) {
	return c.run(ctx, hooks.BeforeModifyLiquidity, call)
}

func (c *Composite) AfterModifyLiquidity(ctx context.Context, call *hooks.Call) (hooks.Outcome, error) {
	return c.run(ctx, hooks.AfterModifyLiquidity, call)
}

func (c *Composite) BeforeSwap(ctx context.Context, call *hooks.Call) (hooks.Outcome, error) {
	return c.run(ctx, hooks.BeforeSwap, call)
}

func (c *Composite) AfterSwap(ctx context.Context, call *hooks.Call) (hooks.Outcome, error) {
	return c.run(ctx, hooks.AfterSwap, call)
}

func (c *Composite) BeforeDonate(ctx context.Context, call *hooks.Call) (hooks.Outcome, error) {
	return c.run(ctx, hooks.BeforeDonate, call)
}

func (c *Composite) AfterDonate(ctx context.Context, call *hooks.Call) (hooks.Outcome, error) {
	return c.run(ctx, hooks.AfterDonate, call)
}

func (c *Composite) run(ctx context.Context, point hooks.Point, call *hooks.Call) (hooks.Outcome, error) {
	result := hooks.Pass(point)
	current := *call

	for _, m := range c.members {
		if !Flags(m).Has(point.Flag()) {
			continue
		}
		out, err := hooks.Invoke(ctx, point, m, &current)
		if err != nil {
			return hooks.Outcome{}, err
		}
		if out.Selector != point.Selector() {
			return hooks.Outcome{}, fmt.Errorf("%w: %s member %s", hooks.ErrInvalidHookResponse, point, m.Kind())
		}
		if out.OverrideFee {
			result = out
			current.Pool.FeeTier = out.Fee
		}
	}
	return result, nil
}
