// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads the settings of an lxpool engine from a config file,
// LXPOOL_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/luxfi/lxpool/fee"
	"github.com/luxfi/lxpool/hooks"
	"github.com/luxfi/lxpool/oracle"
	"github.com/luxfi/lxpool/pool"
	"github.com/luxfi/lxpool/strategies"
)

const envPrefix = "LXPOOL"

var ErrInvalidConfig = errors.New("invalid config")

// Config is the engine configuration.
type Config struct {
	Pool       PoolConfig       `json:"pool"`
	Fee        FeeConfig        `json:"fee"`
	Oracle     OracleConfig     `json:"oracle"`
	CrossChain CrossChainConfig `json:"crossChain"`

	// Strategies names the hook variants pools are created with.
	Strategies []string `json:"strategies"`

	MetricsNamespace string `json:"metricsNamespace"`
	LogLevel         string `json:"logLevel"`
}

type PoolConfig struct {
	FeeTier       uint32 `json:"feeTier"`
	RequiredHooks string `json:"requiredHooks"`
}

type FeeConfig struct {
	MinFee uint32 `json:"minFee"`
	MaxFee uint32 `json:"maxFee"`

	// AdjustmentRate is a decimal integer scaled by fee.Scale.
	AdjustmentRate string `json:"adjustmentRate"`

	VolumeThreshold uint64 `json:"volumeThreshold"`
	MaxMultiplier   uint32 `json:"maxMultiplier"`
}

type OracleConfig struct {
	Capacity       int           `json:"capacity"`
	Window         time.Duration `json:"window"`
	MinPeriod      time.Duration `json:"minPeriod"`
	Lookback       time.Duration `json:"lookback"`
	MaxDeviation   uint32        `json:"maxDeviation"` // basis points
	RequireHistory bool          `json:"requireHistory"`
}

type CrossChainConfig struct {
	NetworkID  uint32 `json:"networkID"`
	LocalChain string `json:"localChain"`

	// Targets lists remote counterparts as chainID=senderAddress.
	Targets []string `json:"targets"`
}

// Target is a parsed cross-chain counterpart.
type Target struct {
	Chain  ids.ID
	Sender common.Address
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Pool: PoolConfig{
			FeeTier:       pool.Fee030,
			RequiredHooks: "none",
		},
		Fee: FeeConfig{
			MinFee:          pool.Fee005,
			MaxFee:          pool.Fee100,
			AdjustmentRate:  "0",
			VolumeThreshold: 1_000_000,
			MaxMultiplier:   3,
		},
		Oracle: OracleConfig{
			Capacity:     oracle.DefaultCapacity,
			Window:       oracle.DefaultWindow,
			MinPeriod:    oracle.DefaultMinPeriod,
			Lookback:     5 * time.Minute,
			MaxDeviation: 500,
		},
		CrossChain: CrossChainConfig{
			NetworkID: 1,
		},
		MetricsNamespace: "lxpool",
		LogLevel:         "info",
	}
}

// Verify checks the configuration for consistency.
func (c Config) Verify() error {
	if c.Pool.FeeTier > pool.MaxFeeTier {
		return fmt.Errorf("%w: fee tier %d above %d", ErrInvalidConfig, c.Pool.FeeTier, pool.MaxFeeTier)
	}
	if _, err := c.RequiredHooks(); err != nil {
		return fmt.Errorf("%w: required hooks: %w", ErrInvalidConfig, err)
	}

	rate, err := c.AdjustmentRate()
	if err != nil {
		return err
	}
	feeCfg := fee.Config{MinFee: c.Fee.MinFee, MaxFee: c.Fee.MaxFee, AdjustmentRate: rate}
	if err := feeCfg.Verify(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if _, err := oracle.NewBuffer(c.Oracle.Capacity, c.Oracle.Window, c.Oracle.MinPeriod); err != nil {
		return fmt.Errorf("%w: oracle: %w", ErrInvalidConfig, err)
	}
	if c.Oracle.Lookback < c.Oracle.MinPeriod || c.Oracle.Lookback > c.Oracle.Window {
		return fmt.Errorf("%w: lookback %s outside [%s, %s]", ErrInvalidConfig, c.Oracle.Lookback, c.Oracle.MinPeriod, c.Oracle.Window)
	}

	if _, err := strategies.ParseKinds(c.Strategies); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.LocalChain(); err != nil {
		return err
	}
	if _, err := c.Targets(); err != nil {
		return err
	}

	switch c.LogLevel {
	case "debug", "info", "off":
	default:
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

// RequiredHooks parses the required hook capabilities of new pools.
func (c Config) RequiredHooks() (hooks.Flags, error) {
	return hooks.ParseFlags(c.Pool.RequiredHooks)
}

// AdjustmentRate parses the fee adjustment rate.
func (c Config) AdjustmentRate() (*big.Int, error) {
	s := strings.TrimSpace(c.Fee.AdjustmentRate)
	if s == "" {
		return new(big.Int), nil
	}
	rate, ok := new(big.Int).SetString(s, 10)
	if !ok || rate.Sign() < 0 {
		return nil, fmt.Errorf("%w: adjustment rate %q", ErrInvalidConfig, c.Fee.AdjustmentRate)
	}
	return rate, nil
}

// FeeConfig returns the fee registry configuration for a new pair.
func (c Config) FeeConfig() (fee.Config, error) {
	rate, err := c.AdjustmentRate()
	if err != nil {
		return fee.Config{}, err
	}
	return fee.Config{MinFee: c.Fee.MinFee, MaxFee: c.Fee.MaxFee, AdjustmentRate: rate}, nil
}

// VolumeScaler returns the trade-size fee scaler.
func (c Config) VolumeScaler() fee.VolumeScaler {
	return fee.VolumeScaler{
		Threshold:     uint256.NewInt(c.Fee.VolumeThreshold),
		MaxMultiplier: c.Fee.MaxMultiplier,
	}
}

// LocalChain parses the local chain ID. An empty value yields ids.Empty.
func (c Config) LocalChain() (ids.ID, error) {
	if c.CrossChain.LocalChain == "" {
		return ids.Empty, nil
	}
	id, err := ids.FromString(c.CrossChain.LocalChain)
	if err != nil {
		return ids.Empty, fmt.Errorf("%w: local chain: %w", ErrInvalidConfig, err)
	}
	return id, nil
}

// Targets parses the cross-chain counterparts.
func (c Config) Targets() ([]Target, error) {
	targets := make([]Target, 0, len(c.CrossChain.Targets))
	for _, raw := range c.CrossChain.Targets {
		chain, sender, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("%w: target %q, want chain=sender", ErrInvalidConfig, raw)
		}
		id, err := ids.FromString(strings.TrimSpace(chain))
		if err != nil {
			return nil, fmt.Errorf("%w: target chain %q: %w", ErrInvalidConfig, chain, err)
		}
		sender = strings.TrimSpace(sender)
		if !common.IsHexAddress(sender) {
			return nil, fmt.Errorf("%w: target sender %q", ErrInvalidConfig, sender)
		}
		targets = append(targets, Target{Chain: id, Sender: common.HexToAddress(sender)})
	}
	return targets, nil
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("fee-tier", def.Pool.FeeTier)
	v.SetDefault("required-hooks", def.Pool.RequiredHooks)
	v.SetDefault("min-fee", def.Fee.MinFee)
	v.SetDefault("max-fee", def.Fee.MaxFee)
	v.SetDefault("adjustment-rate", def.Fee.AdjustmentRate)
	v.SetDefault("volume-threshold", def.Fee.VolumeThreshold)
	v.SetDefault("max-multiplier", def.Fee.MaxMultiplier)
	v.SetDefault("oracle-capacity", def.Oracle.Capacity)
	v.SetDefault("oracle-window", def.Oracle.Window)
	v.SetDefault("oracle-min-period", def.Oracle.MinPeriod)
	v.SetDefault("twap-lookback", def.Oracle.Lookback)
	v.SetDefault("max-deviation", def.Oracle.MaxDeviation)
	v.SetDefault("require-history", def.Oracle.RequireHistory)
	v.SetDefault("network-id", def.CrossChain.NetworkID)
	v.SetDefault("metrics-namespace", def.MetricsNamespace)
	v.SetDefault("log-level", def.LogLevel)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Pool: PoolConfig{
			FeeTier:       v.GetUint32("fee-tier"),
			RequiredHooks: v.GetString("required-hooks"),
		},
		Fee: FeeConfig{
			MinFee:          v.GetUint32("min-fee"),
			MaxFee:          v.GetUint32("max-fee"),
			AdjustmentRate:  v.GetString("adjustment-rate"),
			VolumeThreshold: v.GetUint64("volume-threshold"),
			MaxMultiplier:   v.GetUint32("max-multiplier"),
		},
		Oracle: OracleConfig{
			Capacity:       v.GetInt("oracle-capacity"),
			Window:         v.GetDuration("oracle-window"),
			MinPeriod:      v.GetDuration("oracle-min-period"),
			Lookback:       v.GetDuration("twap-lookback"),
			MaxDeviation:   v.GetUint32("max-deviation"),
			RequireHistory: v.GetBool("require-history"),
		},
		CrossChain: CrossChainConfig{
			NetworkID:  v.GetUint32("network-id"),
			LocalChain: v.GetString("local-chain"),
			Targets:    getStringSlice(v, "targets"),
		},
		Strategies:       getStringSlice(v, "strategies"),
		MetricsNamespace: v.GetString("metrics-namespace"),
		LogLevel:         strings.ToLower(v.GetString("log-level")),
	}

	if err := cfg.Verify(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return cleanStrings(strings.Split(typed, ","))
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
