// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import "errors"

// Initialization errors
var (
	ErrAlreadyInitialized = errors.New("pool already initialized")
	ErrNotInitialized     = errors.New("pool not initialized")
	ErrZeroIdentity       = errors.New("zero asset identity")
	ErrIdenticalAssets    = errors.New("identical assets")
	ErrUnorderedAssets    = errors.New("assets not sorted")
	ErrInvalidFee         = errors.New("invalid fee tier")
	ErrZeroPoolAddress    = errors.New("zero pool address")
)

// Liquidity errors
var (
	ErrAlreadyBootstrapped   = errors.New("pool already bootstrapped")
	ErrBootstrapTooSmall     = errors.New("bootstrap liquidity too small")
	ErrBootstrapRequired     = errors.New("pool requires bootstrap liquidity")
	ErrZeroAmount            = errors.New("zero amount")
	ErrZeroActualAmounts     = errors.New("ratio-limited amounts are zero")
	ErrInsufficientShares    = errors.New("insufficient shares")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrDegenerateBurn        = errors.New("burn yields zero of an asset")
	ErrLockedShares          = errors.New("locked minimum liquidity")
)

// Swap errors
var (
	ErrInvalidInputAsset  = errors.New("input asset not in pool")
	ErrNoLiquidity        = errors.New("pool has no liquidity")
	ErrInsufficientOutput = errors.New("insufficient output amount")
)

// Execution errors
var (
	ErrReentrantCall       = errors.New("reentrant call")
	ErrOverflow            = errors.New("arithmetic overflow")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBankShared          = errors.New("bank bound to another pool")
)
