package main

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

var validateFlags struct {
	pricingPath string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and pricing table",
	Long: `Load the configuration with environment overrides and the pricing table it
names, reporting every validation error.

Examples:
  tollgate validate --config tollgate.yaml
  tollgate validate --pricing pricing.toml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.pricingPath, "pricing", "", "validate this pricing file instead of the configured one")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if validateFlags.pricingPath != "" {
		cfg.Pricing.Path = validateFlags.pricingPath
	}

	table, err := loadPricing(cfg)
	if err != nil {
		return err
	}

	result := validateResult{
		Config:        cfgFile,
		PricingSource: cfg.Pricing.Path,
		Providers:     len(table.Providers()),
		Models:        table.Len(),
		Storage:       cfg.Storage.Backend,
	}
	if result.Config == "" {
		result.Config = "(defaults)"
	}
	if result.PricingSource == "" {
		result.PricingSource = "(built-in)"
	}
	for name := range cfg.Limiters {
		result.Limiters = append(result.Limiters, name)
	}
	sort.Strings(result.Limiters)

	return printResult(cmd, result)
}

type validateResult struct {
	Config        string   `json:"config"`
	Limiters      []string `json:"limiters"`
	PricingSource string   `json:"pricing_source"`
	Providers     int      `json:"providers"`
	Models        int      `json:"models"`
	Storage       string   `json:"storage"`
}

func (r validateResult) Header() []string {
	return []string{"CHECK", "RESULT"}
}

func (r validateResult) Rows() [][]string {
	limiters := strconv.Itoa(len(r.Limiters))
	for i, name := range r.Limiters {
		if i == 0 {
			limiters += ": "
		} else {
			limiters += ", "
		}
		limiters += name
	}
	return [][]string{
		{"config", "ok " + r.Config},
		{"limiters", limiters},
		{"pricing", "ok " + r.PricingSource},
		{"pricing entries", strconv.Itoa(r.Providers) + " providers, " + strconv.Itoa(r.Models) + " models"},
		{"storage", r.Storage},
	}
}
