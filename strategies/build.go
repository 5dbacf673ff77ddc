// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package strategies

import (
	"fmt"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/lxpool/crosschain"
	"github.com/luxfi/lxpool/fee"
	"github.com/luxfi/lxpool/oracle"
)

// Deps holds what the strategy variants are built from. Only the
// dependencies of the requested kinds need to be set.
type Deps struct {
	FeeRegistry *fee.Registry
	FeeUpdater  common.Address

	VolumeScaler fee.VolumeScaler

	Oracle *oracle.Oracle
	TWAP   TWAPGuardConfig

	Notifier *crosschain.Notifier

	Clock  func() time.Time
	Logger log.Logger
}

// Build creates the strategy for kinds. A single kind yields that variant,
// several yield a Composite.
func Build(kinds []Kind, deps Deps) (Strategy, error) {
	if len(kinds) == 0 {
		return nil, ErrEmptyComposite
	}

	members := make([]Strategy, 0, len(kinds))
	seen := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		if seen[k] {
			continue
		}
		seen[k] = true

		s, err := build(k, deps)
		if err != nil {
			return nil, fmt.Errorf("building %s: %w", k, err)
		}
		members = append(members, s)
	}

	if len(members) == 1 {
		return members[0], nil
	}
	return NewComposite(members...)
}

func build(k Kind, deps Deps) (Strategy, error) {
	switch k {
	case KindDynamicFee:
		return NewDynamicFee(deps.FeeRegistry, deps.FeeUpdater, deps.Logger)
	case KindVolumeFee:
		return NewVolumeFee(deps.VolumeScaler)
	case KindTWAPGuard:
		return NewTWAPGuard(deps.Oracle, deps.TWAP, deps.Clock, deps.Logger)
	case KindCrossChainNotify:
		return NewCrossChainNotify(deps.Notifier, deps.Logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, k)
	}
}

// ParseKinds parses a list of strategy names.
func ParseKinds(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	for _, name := range names {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
