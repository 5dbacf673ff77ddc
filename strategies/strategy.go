// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package strategies provides the hook implementations a pool can be created
// with: a registry-driven dynamic fee, a trade-size scaled fee, a TWAP price
// guard, a cross-chain liquidity notifier and a composite of those.
package strategies

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luxfi/lxpool/hooks"
)

var (
	ErrUnknownKind       = errors.New("unknown strategy kind")
	ErrMissingDependency = errors.New("strategy dependency not configured")
	ErrEmptyComposite    = errors.New("composite strategy has no members")
)

// Kind identifies a strategy variant. The order of the constants is the order
// in which a Composite runs its members.
type Kind uint8

const (
	KindDynamicFee Kind = iota + 1
	KindVolumeFee
	KindTWAPGuard
	KindCrossChainNotify
	KindComposite
)

var kindNames = map[Kind]string{
	KindDynamicFee:       "dynamicFee",
	KindVolumeFee:        "volumeFee",
	KindTWAPGuard:        "twapGuard",
	KindCrossChainNotify: "crossChainNotify",
	KindComposite:        "composite",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind parses a strategy name, ignoring case.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Strategy is a hook variant that declares the points it implements.
type Strategy interface {
	hooks.Hook
	hooks.Declarer
	Kind() Kind
}

// Flags returns the capability flags of s.
func Flags(s Strategy) hooks.Flags {
	return hooks.EncodePermissions(s.Permissions())
}
