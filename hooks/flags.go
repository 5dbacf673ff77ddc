// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hooks implements the permissioned extension protocol of a pool:
// capability flags, hook handles, the callback interface and the dispatch
// pipeline that invokes a registered hook around every state change.
package hooks

import "strings"

// Flags is a bitmap of hook capabilities, one bit per extension point.
type Flags uint16

const (
	FlagBeforeInitialize Flags = 1 << iota
	FlagAfterInitialize
	FlagBeforeModifyLiquidity
	FlagAfterModifyLiquidity
	FlagBeforeSwap
	FlagAfterSwap
	FlagBeforeDonate
	FlagAfterDonate
)

// AllFlags has every extension point set.
const AllFlags = FlagBeforeInitialize | FlagAfterInitialize |
	FlagBeforeModifyLiquidity | FlagAfterModifyLiquidity |
	FlagBeforeSwap | FlagAfterSwap |
	FlagBeforeDonate | FlagAfterDonate

// Has reports whether every bit of want is set in f.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

// Missing returns the bits of want that are not set in f.
func (f Flags) Missing(want Flags) Flags {
	return want &^ f
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	names := make([]string, 0, len(points))
	for _, p := range points {
		if f&p.Flag() != 0 {
			names = append(names, p.String())
		}
	}
	return strings.Join(names, "|")
}

// Permissions is the explicit form of Flags.
type Permissions struct {
	BeforeInitialize      bool
	AfterInitialize       bool
	BeforeModifyLiquidity bool
	AfterModifyLiquidity  bool
	BeforeSwap            bool
	AfterSwap             bool
	BeforeDonate          bool
	AfterDonate           bool
}

// EncodePermissions encodes permissions into a Flags bitmap
func EncodePermissions(p Permissions) Flags {
	var flags Flags

	if p.BeforeInitialize {
		flags |= FlagBeforeInitialize
	}
	if p.AfterInitialize {
		flags |= FlagAfterInitialize
	}
	if p.BeforeModifyLiquidity {
		flags |= FlagBeforeModifyLiquidity
	}
	if p.AfterModifyLiquidity {
		flags |= FlagAfterModifyLiquidity
	}
	if p.BeforeSwap {
		flags |= FlagBeforeSwap
	}
	if p.AfterSwap {
		flags |= FlagAfterSwap
	}
	if p.BeforeDonate {
		flags |= FlagBeforeDonate
	}
	if p.AfterDonate {
		flags |= FlagAfterDonate
	}

	return flags
}

// DecodePermissions decodes a Flags bitmap into permissions
func DecodePermissions(flags Flags) Permissions {
	return Permissions{
		BeforeInitialize:      flags&FlagBeforeInitialize != 0,
		AfterInitialize:       flags&FlagAfterInitialize != 0,
		BeforeModifyLiquidity: flags&FlagBeforeModifyLiquidity != 0,
		AfterModifyLiquidity:  flags&FlagAfterModifyLiquidity != 0,
		BeforeSwap:            flags&FlagBeforeSwap != 0,
		AfterSwap:             flags&FlagAfterSwap != 0,
		BeforeDonate:          flags&FlagBeforeDonate != 0,
		AfterDonate:           flags&FlagAfterDonate != 0,
	}
}

// ParseFlags parses a "|" or "," separated list of extension point names,
// as produced by Flags.String.
func ParseFlags(s string) (Flags, error) {
	var flags Flags
	s = strings.TrimSpace(s)
	if s == "" || s == "none" {
		return 0, nil
	}
	for _, name := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		p, ok := pointByName[strings.TrimSpace(name)]
		if !ok {
			return 0, ErrUnknownPoint
		}
		flags |= p.Flag()
	}
	return flags, nil
}
