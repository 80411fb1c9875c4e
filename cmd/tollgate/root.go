package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/tollgate/pkg/cli"
	"mercator-hq/tollgate/pkg/config"
	"mercator-hq/tollgate/pkg/processing/pricing"
	"mercator-hq/tollgate/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "tollgate",
	Short: "Tollgate - rate-limited LLM request admission with cost accounting",
	Long: `Tollgate throttles outbound LLM requests with per-provider token buckets
and prices their token usage from a pricing table.

It provides:
  - Admission limiting with exponential backoff and jitter
  - Per-request cost calculation with long-context, batch and cache pricing
  - Provider comparison and monthly cost projection
  - Prometheus metrics and periodic snapshots while serving`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := cli.ParseOutputFormat(outputFormat); err != nil {
			return err
		}
		if verbose {
			logger, err := logging.New(logging.Config{Level: "debug", Format: "console", Writer: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			logger.SetDefault()
		}
		return nil
	},
}

// Execute runs the root command and exits with a code derived from the error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults are used when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, json, csv")
}

// loadConfig loads the configuration named by --config with environment
// overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", "failed to load config", err)
	}
	return cfg, nil
}

// loadPricing returns the pricing table configured in cfg, or the built-in
// table when no path is set.
func loadPricing(cfg *config.Config) (*pricing.Table, error) {
	if cfg.Pricing.Path == "" {
		return pricing.Default(), nil
	}
	table, err := pricing.Load(cfg.Pricing.Path, pricingOptions(cfg))
	if err != nil {
		return nil, cli.NewConfigError("pricing.path", "failed to load pricing table", err)
	}
	return table, nil
}

func pricingOptions(cfg *config.Config) pricing.LoadOptions {
	return pricing.LoadOptions{AllowInvertedTiers: cfg.Pricing.AllowInvertedTiers}
}

// printResult renders data in the --output format.
func printResult(cmd *cobra.Command, data any) error {
	format, err := cli.ParseOutputFormat(outputFormat)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), data)
}
