// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hooks

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Hook errors
var (
	ErrHookNotPermitted      = errors.New("hook not permitted")
	ErrHookNotRegistered     = errors.New("hook not registered")
	ErrHookAlreadyRegistered = errors.New("hook already registered")
	ErrHookInvalidHandle     = errors.New("hook handle doesn't match capabilities")
	ErrInvalidHookResponse   = errors.New("invalid hook response")
	ErrZeroHandle            = errors.New("zero hook handle")
	ErrUnknownPoint          = errors.New("unknown extension point")
	ErrFeeOverrideNotAllowed = errors.New("fee override outside beforeSwap")
)

// Handle identifies a hook implementation together with the capabilities it
// claims. The capability set is carried alongside the identity rather than
// packed into it.
type Handle struct {
	Base  common.Address
	Flags Flags
}

// Encode combines a base identity and a capability bitmask into a handle.
func Encode(base common.Address, flags Flags) Handle {
	return Handle{Base: base, Flags: flags}
}

// Decode returns the capability bitmask carried by h.
func Decode(h Handle) Flags {
	return h.Flags
}

// BaseOf returns the identity of h stripped of its capabilities.
func BaseOf(h Handle) common.Address {
	return h.Base
}

// Validate returns ErrHookNotPermitted unless every bit set in required is
// also claimed by h.
func Validate(h Handle, required Flags) error {
	if missing := h.Flags.Missing(required); missing != 0 {
		return fmt.Errorf("%w: handle %s lacks %s", ErrHookNotPermitted, h.Base.Hex(), missing)
	}
	return nil
}

// IsZero reports whether h refers to no hook at all.
func (h Handle) IsZero() bool {
	return h.Base == (common.Address{})
}

// Permissions returns the explicit capability set of h.
func (h Handle) Permissions() Permissions {
	return DecodePermissions(h.Flags)
}

// Supports reports whether h claims the given extension point.
func (h Handle) Supports(p Point) bool {
	return !h.IsZero() && h.Flags.Has(p.Flag())
}

func (h Handle) String() string {
	return h.Base.Hex() + "[" + h.Flags.String() + "]"
}

// GenerateHandle derives a deterministic hook handle for a deployer and salt.
// The derivation follows CREATE2: the same inputs always yield the same base.
func GenerateHandle(deployer common.Address, salt [32]byte, permissions Permissions) Handle {
	h := blake3.New()
	h.Write([]byte{0xff}) // CREATE2 prefix
	h.Write(deployer.Bytes())
	h.Write(salt[:])

	var hash [32]byte
	h.Digest().Read(hash[:])

	return Encode(common.BytesToAddress(hash[12:32]), EncodePermissions(permissions))
}
