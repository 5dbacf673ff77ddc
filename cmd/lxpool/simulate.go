// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/warp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/zeebo/blake3"

	"github.com/luxfi/lxpool/config"
	"github.com/luxfi/lxpool/crosschain"
	"github.com/luxfi/lxpool/fee"
	"github.com/luxfi/lxpool/hooks"
	"github.com/luxfi/lxpool/oracle"
	"github.com/luxfi/lxpool/pool"
	"github.com/luxfi/lxpool/strategies"
)

var (
	simAssetA  = common.HexToAddress("0x000000000000000000000000000000000000a00a")
	simAssetB  = common.HexToAddress("0x000000000000000000000000000000000000b00b")
	simPool    = common.HexToAddress("0x0000000000000000000000000000000000009001")
	simTrader  = common.HexToAddress("0x000000000000000000000000000000000000f00d")
	simHook    = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	simBalance = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
)

// step is one operation of a simulation script.
type step struct {
	Op       string `json:"op"` // bootstrap, add, remove, swap, donate, wait
	AmountA  string `json:"amountA,omitempty"`
	AmountB  string `json:"amountB,omitempty"`
	Shares   string `json:"shares,omitempty"`
	TokenIn  string `json:"tokenIn,omitempty"` // a or b
	AmountIn string `json:"amountIn,omitempty"`
	Duration string `json:"duration,omitempty"`
}

var demoScript = []step{
	{Op: "bootstrap", AmountA: "1000000", AmountB: "1000000"},
	{Op: "wait", Duration: "10m"},
	{Op: "swap", TokenIn: "a", AmountIn: "10000"},
	{Op: "add", AmountA: "50000", AmountB: "60000"},
	{Op: "wait", Duration: "2m"},
	{Op: "swap", TokenIn: "b", AmountIn: "25000"},
	{Op: "remove", Shares: "40000"},
}

// loopback relays warp messages addressed to the in-process remote chain.
type loopback struct {
	remote  ids.ID
	inbound *crosschain.WarpInbound
	sender  common.Address
}

func (l *loopback) Relay(ctx context.Context, dest ids.ID, msg *warp.UnsignedMessage, signature []byte) error {
	if dest != l.remote {
		return fmt.Errorf("no route to chain %s", dest)
	}
	_, err := l.inbound.Deliver(ctx, l.sender, msg, signature)
	return err
}

// macSigner authenticates simulated warp messages with a keyed blake3 hash.
type macSigner struct {
	key [32]byte
}

func (s macSigner) Sign(msg *warp.UnsignedMessage) ([]byte, error) {
	h, err := blake3.NewKeyed(s.key[:])
	if err != nil {
		return nil, err
	}
	_, _ = h.Write(msg.SourceChainID[:])
	_, _ = h.Write(msg.Payload)
	return h.Sum(nil), nil
}

func (s macSigner) Verify(_ context.Context, msg *warp.UnsignedMessage, signature []byte) error {
	want, err := s.Sign(msg)
	if err != nil {
		return err
	}
	if !bytes.Equal(want, signature) {
		return errors.New("signature mismatch")
	}
	return nil
}

// simClock is advanced by wait steps.
type simClock struct {
	now time.Time
}

func (c *simClock) Now() time.Time { return c.now }

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	script := demoScript
	if path, _ := cmd.Flags().GetString("script"); path != "" {
		script, err = readScript(path)
		if err != nil {
			return err
		}
	}

	sim, err := newSimulation(cfg, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ctx := context.Background()
	for i, s := range script {
		if err := sim.run(ctx, s); err != nil {
			fmt.Fprintf(out, "step %d (%s): %v\n", i, s.Op, err)
			continue
		}
	}
	return sim.report(out)
}

type simulation struct {
	pool     *pool.Pool
	bank     *pool.MemBank
	events   *pool.EventLog
	clock    *simClock
	fees     *fee.Registry
	feeCfg   fee.Config
	received []crosschain.LiquidityDelta
}

func newSimulation(cfg config.Config, logger log.Logger) (*simulation, error) {
	clock := &simClock{now: time.Unix(1_700_000_000, 0)}
	sim := &simulation{
		bank:   pool.NewMemBank(),
		events: &pool.EventLog{},
		clock:  clock,
		fees:   fee.NewRegistry(logger),
	}
	sim.bank.Mint(simAssetA, simTrader, simBalance)
	sim.bank.Mint(simAssetB, simTrader, simBalance)

	feeCfg, err := cfg.FeeConfig()
	if err != nil {
		return nil, err
	}
	sim.feeCfg = feeCfg

	required, err := cfg.RequiredHooks()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics, err := pool.NewMetrics(cfg.MetricsNamespace, reg)
	if err != nil {
		return nil, err
	}

	poolCfg := pool.Config{
		Address:       simPool,
		RequiredHooks: required,
	}
	if len(cfg.Strategies) > 0 {
		strategy, err := sim.buildStrategy(cfg, reg, logger)
		if err != nil {
			return nil, err
		}
		registry := hooks.NewRegistry()
		poolCfg.Handle = hooks.Encode(simHook, strategies.Flags(strategy))
		if err := registry.Register(poolCfg.Handle, strategy); err != nil {
			return nil, err
		}
		poolCfg.Registry = registry
	}

	sim.pool, err = pool.New(poolCfg,
		pool.WithBank(sim.bank),
		pool.WithEventSink(sim.events),
		pool.WithLogger(logger),
		pool.WithMetrics(metrics),
	)
	if err != nil {
		return nil, err
	}
	if err := sim.pool.Initialize(context.Background(), simTrader, simAssetA, simAssetB, cfg.Pool.FeeTier, nil); err != nil {
		return nil, err
	}
	if err := sim.fees.Configure(sim.pool.ID(), sim.feeCfg); err != nil {
		return nil, err
	}
	return sim, nil
}

func (sim *simulation) buildStrategy(cfg config.Config, reg prometheus.Registerer, logger log.Logger) (strategies.Strategy, error) {
	kinds, err := strategies.ParseKinds(cfg.Strategies)
	if err != nil {
		return nil, err
	}

	o, err := oracle.New(cfg.Oracle.Capacity, cfg.Oracle.Window, cfg.Oracle.MinPeriod)
	if err != nil {
		return nil, err
	}
	sim.fees.Authorize(simHook)

	deps := strategies.Deps{
		FeeRegistry:  sim.fees,
		FeeUpdater:   simHook,
		VolumeScaler: cfg.VolumeScaler(),
		Oracle:       o,
		TWAP: strategies.TWAPGuardConfig{
			Lookback:       cfg.Oracle.Lookback,
			MaxDeviation:   cfg.Oracle.MaxDeviation,
			RequireHistory: cfg.Oracle.RequireHistory,
		},
		Clock:  sim.clock.Now,
		Logger: logger,
	}

	for _, k := range kinds {
		if k == strategies.KindCrossChainNotify {
			deps.Notifier, err = sim.newNotifier(cfg, reg, logger)
			if err != nil {
				return nil, err
			}
		}
	}
	return strategies.Build(kinds, deps)
}

// newNotifier wires a local notifier over signed warp messages to an
// in-process remote chain that records what it accepts.
func (sim *simulation) newNotifier(cfg config.Config, reg prometheus.Registerer, logger log.Logger) (*crosschain.Notifier, error) {
	local, err := cfg.LocalChain()
	if err != nil {
		return nil, err
	}
	if local == ids.Empty {
		local = ids.ID{0x01}
	}
	remoteChain := ids.ID{0x02}

	remote := crosschain.NewNotifier(remoteChain, nil, memdb.New(), crosschain.WithLogger(logger))
	if err := remote.AddTarget(local, simHook); err != nil {
		return nil, err
	}
	remote.Subscribe(func(d crosschain.LiquidityDelta) {
		sim.received = append(sim.received, d)
	})

	metrics, err := crosschain.NewMetrics(cfg.MetricsNamespace, reg)
	if err != nil {
		return nil, err
	}
	signer := macSigner{key: blake3.Sum256(local[:])}
	relay := &loopback{
		remote:  remoteChain,
		inbound: crosschain.NewWarpInbound(cfg.CrossChain.NetworkID, signer, remote),
		sender:  simHook,
	}
	transport := crosschain.NewWarpTransport(cfg.CrossChain.NetworkID, local, signer, relay)
	notifier := crosschain.NewNotifier(local, transport, memdb.New(),
		crosschain.WithLogger(logger),
		crosschain.WithMetrics(metrics),
		crosschain.WithClock(sim.clock.Now),
	)
	if err := notifier.AddTarget(remoteChain, simHook); err != nil {
		return nil, err
	}

	// configured targets have no route in a simulation; their sends fail
	// and are counted
	targets, err := cfg.Targets()
	if err != nil {
		return nil, err
	}
	for _, t := range targets {
		if err := notifier.AddTarget(t.Chain, t.Sender); err != nil {
			return nil, err
		}
	}
	return notifier, nil
}

func (sim *simulation) run(ctx context.Context, s step) error {
	switch s.Op {
	case "bootstrap":
		a, b, err := amounts(s.AmountA, s.AmountB)
		if err != nil {
			return err
		}
		_, err = sim.pool.BootstrapLiquidity(ctx, simTrader, a, b, nil)
		return err
	case "add":
		a, b, err := amounts(s.AmountA, s.AmountB)
		if err != nil {
			return err
		}
		_, err = sim.pool.AddLiquidity(ctx, simTrader, simTrader, a, b, nil)
		return err
	case "remove":
		shares, err := uint256.FromDecimal(s.Shares)
		if err != nil {
			return fmt.Errorf("shares: %w", err)
		}
		_, _, err = sim.pool.RemoveLiquidity(ctx, simTrader, shares, simTrader, nil)
		return err
	case "swap":
		amount, err := uint256.FromDecimal(s.AmountIn)
		if err != nil {
			return fmt.Errorf("amountIn: %w", err)
		}
		tokenIn := simAssetA
		if s.TokenIn == "b" {
			tokenIn = simAssetB
		}
		_, err = sim.pool.Swap(ctx, simTrader, tokenIn, amount, simTrader, nil, nil)
		return err
	case "donate":
		a, b, err := amounts(s.AmountA, s.AmountB)
		if err != nil {
			return err
		}
		return sim.pool.Donate(ctx, simTrader, a, b, nil)
	case "wait":
		d, err := time.ParseDuration(s.Duration)
		if err != nil {
			return err
		}
		sim.clock.now = sim.clock.now.Add(d)
		return nil
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
}

func (sim *simulation) report(w io.Writer) error {
	for _, e := range sim.events.Events() {
		fmt.Fprintf(w, "%-10s from=%s to=%s amountA=%s amountB=%s shares=%s in=%s out=%s fee=%d\n",
			e.Kind, e.From.Hex(), e.To.Hex(),
			orDash(e.AmountA), orDash(e.AmountB), orDash(e.Shares),
			orDash(e.AmountIn), orDash(e.AmountOut), e.Fee,
		)
	}

	ra, rb := sim.pool.Reserves()
	fmt.Fprintf(w, "reserveA=%s reserveB=%s totalShares=%s\n", ra, rb, sim.pool.TotalShares())
	if f, err := sim.fees.GetFee(sim.pool.ID()); err == nil {
		fmt.Fprintf(w, "dynamicFee=%d\n", f)
	}
	for _, d := range sim.received {
		fmt.Fprintf(w, "remote delta seq=%d shares=%s\n", d.Sequence, d.AmountDelta)
	}
	return nil
}

func amounts(a, b string) (*uint256.Int, *uint256.Int, error) {
	x, err := uint256.FromDecimal(orZero(a))
	if err != nil {
		return nil, nil, fmt.Errorf("amountA: %w", err)
	}
	y, err := uint256.FromDecimal(orZero(b))
	if err != nil {
		return nil, nil, fmt.Errorf("amountB: %w", err)
	}
	return x, y, nil
}

func orDash(v *uint256.Int) string {
	if v == nil {
		return "-"
	}
	return v.Dec()
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func readScript(path string) ([]step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var script []step
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	return script, nil
}
