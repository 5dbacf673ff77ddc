// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/holiman/uint256"
	"github.com/luxfi/log"
	"github.com/luxfi/log/level"
	"github.com/spf13/cobra"

	"github.com/luxfi/lxpool/config"
	"github.com/luxfi/lxpool/fee"
	"github.com/luxfi/lxpool/pool"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "lxpool",
		Short:        "Hooked constant-product pool engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap against given reserves",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("reserve-in", "", "reserve of the input asset")
	quoteCmd.Flags().String("reserve-out", "", "reserve of the output asset")
	quoteCmd.Flags().String("amount-in", "", "input amount")
	quoteCmd.Flags().Uint32("fee-tier", pool.Fee030, "fee in parts per million")

	root.AddCommand(quoteCmd)

	feeCmd := &cobra.Command{
		Use:   "fee",
		Short: "Show the dynamic fee for a net volume and trade size",
		RunE:  runFee,
	}

	feeCmd.Flags().String("net-volume", "0", "signed net volume of the pair")
	feeCmd.Flags().String("amount", "0", "trade size for volume scaling")
	feeCmd.Flags().Uint32("min-fee", pool.Fee005, "lower fee bound")
	feeCmd.Flags().Uint32("max-fee", pool.Fee100, "upper fee bound")
	feeCmd.Flags().String("adjustment-rate", "0", "fee sensitivity to net volume, scaled by 1e18")
	feeCmd.Flags().Uint64("volume-threshold", 1_000_000, "trade size per fee multiple")
	feeCmd.Flags().Uint32("max-multiplier", 3, "largest fee multiple")

	root.AddCommand(feeCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a scripted session against an in-memory pool",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("script", "", "JSON script of pool operations, built-in demo when empty")
	simulateCmd.Flags().Uint32("fee-tier", pool.Fee030, "pool fee tier")
	simulateCmd.Flags().StringSlice("strategies", nil, "hook strategies (dynamicFee, volumeFee, twapGuard, crossChainNotify)")
	simulateCmd.Flags().String("required-hooks", "none", "hook points the pool requires, | separated")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, off)")

	root.AddCommand(simulateCmd)

	return root
}

func runQuote(cmd *cobra.Command, _ []string) error {
	reserveIn, err := flagUint256(cmd, "reserve-in")
	if err != nil {
		return err
	}
	reserveOut, err := flagUint256(cmd, "reserve-out")
	if err != nil {
		return err
	}
	amountIn, err := flagUint256(cmd, "amount-in")
	if err != nil {
		return err
	}
	feeTier, _ := cmd.Flags().GetUint32("fee-tier")

	out, err := pool.GetAmountOut(amountIn, reserveIn, reserveOut, feeTier)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "amountOut=%s fee=%d\n", out, feeTier)
	return nil
}

func runFee(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	rawVolume, _ := cmd.Flags().GetString("net-volume")
	volume, ok := new(big.Int).SetString(rawVolume, 10)
	if !ok {
		return fmt.Errorf("invalid net volume %q", rawVolume)
	}
	amount, err := flagUint256(cmd, "amount")
	if err != nil {
		return err
	}

	feeCfg, err := cfg.FeeConfig()
	if err != nil {
		return err
	}
	feeCfg.NetVolume = volume

	base := feeCfg.Fee()
	scaler := cfg.VolumeScaler()
	fmt.Fprintf(cmd.OutOrStdout(), "fee=%d valid=%t multiplier=%d\n", base, fee.ValidateFee(base), scaler.Multiplier(amount))

	scaled, err := scaler.Fee(base, amount)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "scaledFee=invalid (%v)\n", err)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "scaledFee=%d\n", scaled)
	return nil
}

func flagUint256(cmd *cobra.Command, name string) (*uint256.Int, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return nil, fmt.Errorf("--%s is required", name)
	}
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return v, nil
}

func newLogger(lvl string) log.Logger {
	switch lvl {
	case "off":
		return log.NewNoOpLogger()
	case "debug":
		return log.NewTestLogger(level.Debug)
	default:
		return log.NewTestLogger(level.Info)
	}
}
