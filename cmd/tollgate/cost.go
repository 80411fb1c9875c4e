package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/tollgate/pkg/cli"
	"mercator-hq/tollgate/pkg/processing/costs"
)

var costFlags struct {
	provider    string
	model       string
	input       int64
	output      int64
	context     int64
	cache       bool
	cacheWrites int64
	batch       bool
}

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Price a single request",
	Long: `Calculate the cost of one request from its token counts.

The long-context tier applies when --context exceeds the model's threshold.
--cache prices the input at the provider's cache-read rate and --batch applies
the batch discount.

Examples:
  tollgate cost --provider openai --model gpt-4o --input-tokens 10000 --output-tokens 2000
  tollgate cost --provider google --model gemini-1.5-pro --input-tokens 200000 --output-tokens 1000 --context 200000
  tollgate cost --provider anthropic --model claude-3-5-sonnet --input-tokens 10000 --output-tokens 500 --cache -o json`,
	RunE: runCost,
}

func init() {
	rootCmd.AddCommand(costCmd)

	costCmd.Flags().StringVar(&costFlags.provider, "provider", "", "provider name (required)")
	costCmd.Flags().StringVar(&costFlags.model, "model", "", "model name (required)")
	costCmd.Flags().Int64Var(&costFlags.input, "input-tokens", 0, "input tokens")
	costCmd.Flags().Int64Var(&costFlags.output, "output-tokens", 0, "output tokens")
	costCmd.Flags().Int64Var(&costFlags.context, "context", 0, "context length in tokens, selects the long-context tier")
	costCmd.Flags().BoolVar(&costFlags.cache, "cache", false, "input is served from the prompt cache")
	costCmd.Flags().Int64Var(&costFlags.cacheWrites, "cache-writes", 0, "tokens written to the prompt cache")
	costCmd.Flags().BoolVar(&costFlags.batch, "batch", false, "request is submitted through the batch API")
	_ = costCmd.MarkFlagRequired("provider")
	_ = costCmd.MarkFlagRequired("model")
}

func runCost(cmd *cobra.Command, args []string) error {
	accountant, err := newAccountant()
	if err != nil {
		return err
	}

	breakdown, err := accountant.CalculateCost(costFlags.provider, costFlags.model, costs.Usage{
		InputTokens:      costFlags.input,
		OutputTokens:     costFlags.output,
		ContextLength:    costFlags.context,
		UsesCache:        costFlags.cache,
		IsBatch:          costFlags.batch,
		CacheWriteTokens: costFlags.cacheWrites,
	})
	if err != nil {
		return cli.NewCommandError("cost", err)
	}

	return printResult(cmd, costResult{breakdown})
}

// newAccountant builds an accountant over the configured pricing table.
func newAccountant() (*costs.Accountant, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	table, err := loadPricing(cfg)
	if err != nil {
		return nil, err
	}
	return costs.NewAccountant(table), nil
}

type costResult struct {
	*costs.CostBreakdown
}

func (r costResult) Header() []string {
	return []string{"PROVIDER", "MODEL", "TIER", "INPUT", "OUTPUT", "TOTAL", "NOTES"}
}

func (r costResult) Rows() [][]string {
	return [][]string{breakdownRow(r.CostBreakdown)}
}

func breakdownRow(b *costs.CostBreakdown) []string {
	return []string{
		b.Provider,
		b.Model,
		b.Tier,
		formatUSD(b.InputCost),
		formatUSD(b.OutputCost),
		formatUSD(b.TotalCost),
		joinNotes(b.Notes),
	}
}

func formatUSD(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func joinNotes(notes []string) string {
	switch len(notes) {
	case 0:
		return ""
	case 1:
		return notes[0]
	default:
		return fmt.Sprintf("%s (+%d more)", notes[0], len(notes)-1)
	}
}
