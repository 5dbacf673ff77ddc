// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hooks

import (
	"context"
	"fmt"

	"github.com/luxfi/log"
)

// Pipeline dispatches pool extension points to a hook implementation.
type Pipeline struct {
	log log.Logger
}

// NewPipeline creates a dispatch pipeline. A nil logger disables logging.
func NewPipeline(logger log.Logger) *Pipeline {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Pipeline{log: logger}
}

// Dispatch invokes the callback for point on hook.
//
// A zero handle is a no-op. When the handle does not claim point the call is
// skipped, unless required lists it, which is a permission error. A callback
// error or a selector other than the point's own aborts the caller.
func (p *Pipeline) Dispatch(
	ctx context.Context,
	point Point,
	handle Handle,
	required Flags,
	hook Hook,
	call *Call,
) (Outcome, error) {
	if handle.IsZero() {
		return Pass(point), nil
	}

	if !handle.Supports(point) {
		if required.Has(point.Flag()) {
			return Outcome{}, fmt.Errorf("%w: %s not claimed by %s", ErrHookNotPermitted, point, handle.Base.Hex())
		}
		return Pass(point), nil
	}

	if hook == nil {
		return Outcome{}, fmt.Errorf("%w: %s", ErrHookNotRegistered, handle.Base.Hex())
	}

	call.Point = point
	outcome, err := Invoke(ctx, point, hook, call)
	if err != nil {
		p.log.Debug("hook vetoed operation",
			log.Stringer("point", point),
			log.String("hook", handle.Base.Hex()),
			log.Err(err),
		)
		return Outcome{}, fmt.Errorf("%s: %w", point, err)
	}

	if outcome.Selector != point.Selector() {
		return Outcome{}, fmt.Errorf("%w: %s returned selector %x", ErrInvalidHookResponse, point, outcome.Selector)
	}
	if outcome.OverrideFee && point != BeforeSwap {
		return Outcome{}, fmt.Errorf("%w: %s", ErrFeeOverrideNotAllowed, point)
	}

	return outcome, nil
}

// Invoke calls the callback of hook for point without any permission check.
func Invoke(ctx context.Context, point Point, hook Hook, call *Call) (Outcome, error) {
	switch point {
	case BeforeInitialize:
		return hook.BeforeInitialize(ctx, call)
	case AfterInitialize:
		return hook.AfterInitialize(ctx, call)
	case BeforeModifyLiquidity:
		return hook.BeforeModifyLiquidity(ctx, call)
	case AfterModifyLiquidity:
		return hook.AfterModifyLiquidity(ctx, call)
	case BeforeSwap:
		return hook.BeforeSwap(ctx, call)
	case AfterSwap:
		return hook.AfterSwap(ctx, call)
	case BeforeDonate:
		return hook.BeforeDonate(ctx, call)
	case AfterDonate:
		return hook.AfterDonate(ctx, call)
	default:
		return Outcome{}, ErrUnknownPoint
	}
}
