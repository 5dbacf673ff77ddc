// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hooks

// Point identifies one of the eight extension points of a pool.
type Point uint8

const (
	BeforeInitialize Point = iota
	AfterInitialize
	BeforeModifyLiquidity
	AfterModifyLiquidity
	BeforeSwap
	AfterSwap
	BeforeDonate
	AfterDonate
)

var points = []Point{
	BeforeInitialize,
	AfterInitialize,
	BeforeModifyLiquidity,
	AfterModifyLiquidity,
	BeforeSwap,
	AfterSwap,
	BeforeDonate,
	AfterDonate,
}

var pointByName = map[string]Point{
	"beforeInitialize":      BeforeInitialize,
	"afterInitialize":       AfterInitialize,
	"beforeModifyLiquidity": BeforeModifyLiquidity,
	"afterModifyLiquidity":  AfterModifyLiquidity,
	"beforeSwap":            BeforeSwap,
	"afterSwap":             AfterSwap,
	"beforeDonate":          BeforeDonate,
	"afterDonate":           AfterDonate,
}

// Selector is the pass-through marker a hook returns for a point.
type Selector [4]byte

// Hook function selectors
var (
	SigBeforeInitialize      = Selector{0x01, 0x00, 0x00, 0x01}
	SigAfterInitialize       = Selector{0x01, 0x00, 0x00, 0x02}
	SigBeforeModifyLiquidity = Selector{0x02, 0x00, 0x00, 0x01}
	SigAfterModifyLiquidity  = Selector{0x02, 0x00, 0x00, 0x02}
	SigBeforeSwap            = Selector{0x03, 0x00, 0x00, 0x01}
	SigAfterSwap             = Selector{0x03, 0x00, 0x00, 0x02}
	SigBeforeDonate          = Selector{0x04, 0x00, 0x00, 0x01}
	SigAfterDonate           = Selector{0x04, 0x00, 0x00, 0x02}
)

// Flag returns the capability bit for p.
func (p Point) Flag() Flags {
	if p > AfterDonate {
		return 0
	}
	return 1 << p
}

// Selector returns the pass-through marker for p.
func (p Point) Selector() Selector {
	switch p {
	case BeforeInitialize:
		return SigBeforeInitialize
	case AfterInitialize:
		return SigAfterInitialize
	case BeforeModifyLiquidity:
		return SigBeforeModifyLiquidity
	case AfterModifyLiquidity:
		return SigAfterModifyLiquidity
	case BeforeSwap:
		return SigBeforeSwap
	case AfterSwap:
		return SigAfterSwap
	case BeforeDonate:
		return SigBeforeDonate
	case AfterDonate:
		return SigAfterDonate
	default:
		return Selector{}
	}
}

// IsAfter reports whether p runs after the pool committed its state change.
func (p Point) IsAfter() bool {
	return p%2 == 1
}

func (p Point) String() string {
	switch p {
	case BeforeInitialize:
		return "beforeInitialize"
	case AfterInitialize:
		return "afterInitialize"
	case BeforeModifyLiquidity:
		return "beforeModifyLiquidity"
	case AfterModifyLiquidity:
		return "afterModifyLiquidity"
	case BeforeSwap:
		return "beforeSwap"
	case AfterSwap:
		return "afterSwap"
	case BeforeDonate:
		return "beforeDonate"
	case AfterDonate:
		return "afterDonate"
	default:
		return "unknown"
	}
}
