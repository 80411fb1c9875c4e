package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/tollgate/pkg/cli"
	"mercator-hq/tollgate/pkg/processing/costs"
)

var estimateFlags struct {
	provider      string
	model         string
	daily         int64
	avgInput      int64
	avgOutput     int64
	context       int64
	batchFraction float64
	cacheFraction float64
}

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Project the monthly cost of a steady workload",
	Long: `Estimate a 30-day bill from a daily request volume and average token counts.

A fraction of requests can be priced as batch or cached requests; the rest
are priced as regular requests.

Examples:
  tollgate estimate --provider openai --model gpt-4o --daily 5000 --avg-input 1200 --avg-output 300
  tollgate estimate --provider anthropic --model claude-3-5-sonnet --daily 2000 --avg-input 8000 --avg-output 400 --cache-fraction 0.6`,
	RunE: runEstimate,
}

func init() {
	rootCmd.AddCommand(estimateCmd)

	estimateCmd.Flags().StringVar(&estimateFlags.provider, "provider", "", "provider name (required)")
	estimateCmd.Flags().StringVar(&estimateFlags.model, "model", "", "model name (required)")
	estimateCmd.Flags().Int64Var(&estimateFlags.daily, "daily", 0, "requests per day")
	estimateCmd.Flags().Int64Var(&estimateFlags.avgInput, "avg-input", 0, "average input tokens per request")
	estimateCmd.Flags().Int64Var(&estimateFlags.avgOutput, "avg-output", 0, "average output tokens per request")
	estimateCmd.Flags().Int64Var(&estimateFlags.context, "context", 0, "context length in tokens, selects the long-context tier")
	estimateCmd.Flags().Float64Var(&estimateFlags.batchFraction, "batch-fraction", 0, "fraction of requests sent through the batch API")
	estimateCmd.Flags().Float64Var(&estimateFlags.cacheFraction, "cache-fraction", 0, "fraction of requests served from the prompt cache")
	_ = estimateCmd.MarkFlagRequired("provider")
	_ = estimateCmd.MarkFlagRequired("model")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	accountant, err := newAccountant()
	if err != nil {
		return err
	}

	estimate, err := accountant.EstimateMonthlyCost(costs.MonthlyEstimateRequest{
		Provider:        estimateFlags.provider,
		Model:           estimateFlags.model,
		DailyRequests:   estimateFlags.daily,
		AvgInputTokens:  estimateFlags.avgInput,
		AvgOutputTokens: estimateFlags.avgOutput,
		ContextLength:   estimateFlags.context,
		BatchFraction:   estimateFlags.batchFraction,
		CacheFraction:   estimateFlags.cacheFraction,
	})
	if err != nil {
		return cli.NewCommandError("estimate", err)
	}

	return printResult(cmd, estimateResult{estimate})
}

type estimateResult struct {
	*costs.MonthlyEstimate
}

func (r estimateResult) Header() []string {
	return []string{"SEGMENT", "REQUESTS/DAY", "MONTHLY COST"}
}

func (r estimateResult) Rows() [][]string {
	itoa := func(n int64) string { return strconv.FormatInt(n, 10) }
	rows := [][]string{
		{"regular", itoa(r.RegularRequests), formatUSD(r.RegularCost)},
		{"batch", itoa(r.BatchRequests), formatUSD(r.BatchCost)},
		{"cached", itoa(r.CachedRequests), formatUSD(r.CachedCost)},
		{"total", itoa(r.RegularRequests + r.BatchRequests + r.CachedRequests), formatUSD(r.TotalCost)},
		{"daily", "", formatUSD(r.DailyCost)},
	}
	for _, note := range r.Notes {
		rows = append(rows, []string{"note", "", note})
	}
	return rows
}
