// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fee implements the volume-driven dynamic fee registry consulted and
// updated by fee hooks, plus fee validation and trade-size scaling.
package fee

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
)

// Fee constants, in parts per 1,000,000
const (
	GlobalFeeCap  uint32 = 100_000 // 10%
	MinFeeFloor   uint32 = 100     // 0.01%
	MaxFeeCeiling uint32 = 100_000 // 10%
	FeeStep       uint32 = 100
)

// Scale is the fixed-point denominator of AdjustmentRate.
var Scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Fee errors
var (
	ErrUnknownPair   = errors.New("unknown pair")
	ErrUnauthorized  = errors.New("caller is not an authorized fee updater")
	ErrInvalidConfig = errors.New("invalid fee configuration")
	ErrInvalidFee    = errors.New("invalid fee")
)

// Config is the dynamic fee configuration of one pair.
type Config struct {
	MinFee uint32 `json:"minFee"`
	MaxFee uint32 `json:"maxFee"`

	// AdjustmentRate is the fee sensitivity to net volume, scaled by Scale.
	AdjustmentRate *big.Int `json:"adjustmentRate"`

	// NetVolume accumulates signed swap amounts. Positive is A to B flow.
	NetVolume      *big.Int  `json:"netVolume"`
	LastUpdateTime time.Time `json:"lastUpdateTime"`
}

// Verify checks the fee bounds of c.
func (c Config) Verify() error {
	switch {
	case c.MinFee > c.MaxFee:
		return fmt.Errorf("%w: minFee %d > maxFee %d", ErrInvalidConfig, c.MinFee, c.MaxFee)
	case c.MaxFee > GlobalFeeCap:
		return fmt.Errorf("%w: maxFee %d > cap %d", ErrInvalidConfig, c.MaxFee, GlobalFeeCap)
	case c.AdjustmentRate != nil && c.AdjustmentRate.Sign() < 0:
		return fmt.Errorf("%w: negative adjustment rate", ErrInvalidConfig)
	}
	return nil
}

// Fee derives the fee of c: minFee + netVolume*rate/Scale clamped to
// [minFee, maxFee].
func (c Config) Fee() uint32 {
	if c.AdjustmentRate == nil || c.NetVolume == nil {
		return c.MinFee
	}

	adj := new(big.Int).Mul(c.NetVolume, c.AdjustmentRate)
	adj.Quo(adj, Scale)
	adj.Add(adj, new(big.Int).SetUint64(uint64(c.MinFee)))

	if adj.Cmp(new(big.Int).SetUint64(uint64(c.MinFee))) < 0 {
		return c.MinFee
	}
	if adj.Cmp(new(big.Int).SetUint64(uint64(c.MaxFee))) > 0 {
		return c.MaxFee
	}
	return uint32(adj.Uint64())
}

func (c Config) clone() Config {
	out := c
	if c.AdjustmentRate != nil {
		out.AdjustmentRate = new(big.Int).Set(c.AdjustmentRate)
	}
	if c.NetVolume != nil {
		out.NetVolume = new(big.Int).Set(c.NetVolume)
	}
	return out
}

// Registry tracks the dynamic fee configuration of every pair. Only
// authorized updaters may feed volume into it.
type Registry struct {
	mu sync.RWMutex

	configs  map[[32]byte]*Config
	updaters map[common.Address]bool

	log log.Logger
	now func() time.Time
}

// NewRegistry creates an empty fee registry.
func NewRegistry(logger log.Logger) *Registry {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Registry{
		configs:  make(map[[32]byte]*Config),
		updaters: make(map[common.Address]bool),
		log:      logger,
		now:      time.Now,
	}
}

// Configure sets the fee configuration of pair, replacing any previous one.
func (r *Registry) Configure(pair [32]byte, cfg Config) error {
	if err := cfg.Verify(); err != nil {
		return err
	}

	cfg = cfg.clone()
	if cfg.AdjustmentRate == nil {
		cfg.AdjustmentRate = new(big.Int)
	}
	if cfg.NetVolume == nil {
		cfg.NetVolume = new(big.Int)
	}

	r.mu.Lock()
	r.configs[pair] = &cfg
	r.mu.Unlock()

	r.log.Info("fee pair configured",
		log.String("pair", common.Hash(pair).Hex()),
		log.Uint64("minFee", uint64(cfg.MinFee)),
		log.Uint64("maxFee", uint64(cfg.MaxFee)),
	)
	return nil
}

// Authorize allows updater to call UpdateFee.
func (r *Registry) Authorize(updater common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updaters[updater] = true
}

// Revoke removes updater from the allowlist.
func (r *Registry) Revoke(updater common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.updaters, updater)
}

// IsAuthorized reports whether updater may call UpdateFee.
func (r *Registry) IsAuthorized(updater common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updaters[updater]
}

// GetFee returns the fee that applies to the next swap on pair.
func (r *Registry) GetFee(pair [32]byte) (uint32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[pair]
	if !ok {
		return 0, ErrUnknownPair
	}
	return cfg.Fee(), nil
}

// Config returns a copy of the configuration of pair.
func (r *Registry) Config(pair [32]byte) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[pair]
	if !ok {
		return Config{}, false
	}
	return cfg.clone(), true
}

// UpdateFee adds signedAmount to the net volume of pair.
func (r *Registry) UpdateFee(caller common.Address, pair [32]byte, signedAmount *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, ok := r.configs[pair]
	if !ok {
		return ErrUnknownPair
	}
	if !r.updaters[caller] {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller.Hex())
	}

	cfg.NetVolume.Add(cfg.NetVolume, signedAmount)
	cfg.LastUpdateTime = r.now()

	r.log.Debug("fee volume updated",
		log.String("pair", common.Hash(pair).Hex()),
		log.Stringer("netVolume", cfg.NetVolume),
		log.Uint64("fee", uint64(cfg.Fee())),
	)
	return nil
}

// ValidateFee reports whether fee lies within [MinFeeFloor, MaxFeeCeiling]
// and is a multiple of FeeStep.
func ValidateFee(fee uint32) bool {
	return fee >= MinFeeFloor && fee <= MaxFeeCeiling && fee%FeeStep == 0
}
