package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/tollgate/pkg/cli"
	"mercator-hq/tollgate/pkg/processing/costs"
)

var compareFlags struct {
	options []string
	input   int64
	output  int64
	context int64
	cache   bool
	batch   bool
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the cost of a request across providers",
	Long: `Price the same request on several provider/model options and report the
cheapest. Options that cannot be priced are listed with their error.

Examples:
  tollgate compare --option openai=gpt-4o --option anthropic=claude-3-5-sonnet --input-tokens 10000 --output-tokens 2000
  tollgate compare --option openai=gpt-4o-mini --option google=gemini-2.0-flash --input-tokens 5000 --output-tokens 500 -o csv`,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringArrayVar(&compareFlags.options, "option", nil, "provider=model option (repeatable)")
	compareCmd.Flags().Int64Var(&compareFlags.input, "input-tokens", 0, "input tokens")
	compareCmd.Flags().Int64Var(&compareFlags.output, "output-tokens", 0, "output tokens")
	compareCmd.Flags().Int64Var(&compareFlags.context, "context", 0, "context length in tokens, selects the long-context tier")
	compareCmd.Flags().BoolVar(&compareFlags.cache, "cache", false, "input is served from the prompt cache")
	compareCmd.Flags().BoolVar(&compareFlags.batch, "batch", false, "request is submitted through the batch API")
	_ = compareCmd.MarkFlagRequired("option")
}

func runCompare(cmd *cobra.Command, args []string) error {
	options, err := parseOptions(compareFlags.options)
	if err != nil {
		return err
	}

	accountant, err := newAccountant()
	if err != nil {
		return err
	}

	usage := costs.Usage{
		InputTokens:   compareFlags.input,
		OutputTokens:  compareFlags.output,
		ContextLength: compareFlags.context,
		UsesCache:     compareFlags.cache,
		IsBatch:       compareFlags.batch,
	}

	result := compareResult{}
	for provider, c := range accountant.CompareProviders(options, usage) {
		entry := compareEntry{Provider: provider, Model: c.Model, Breakdown: c.Breakdown}
		if c.Err != nil {
			entry.Error = c.Err.Error()
		}
		result.Options = append(result.Options, entry)
	}
	sort.Slice(result.Options, func(i, j int) bool {
		return result.Options[i].Provider < result.Options[j].Provider
	})

	cheapest, _, err := accountant.CheapestOption(options, usage)
	if err != nil {
		// Print what could be compared before failing.
		_ = printResult(cmd, result)
		return cli.NewCommandError("compare", err)
	}
	result.Cheapest = cheapest

	return printResult(cmd, result)
}

// parseOptions turns provider=model pairs into the option map. A provider
// may appear only once.
func parseOptions(raw []string) (map[string]string, error) {
	options := make(map[string]string, len(raw))
	for _, opt := range raw {
		provider, model, ok := strings.Cut(opt, "=")
		provider, model = strings.TrimSpace(provider), strings.TrimSpace(model)
		if !ok || provider == "" || model == "" {
			return nil, fmt.Errorf("invalid --option %q: want provider=model", opt)
		}
		if _, dup := options[provider]; dup {
			return nil, fmt.Errorf("provider %q given more than once", provider)
		}
		options[provider] = model
	}
	return options, nil
}

type compareEntry struct {
	Provider  string               `json:"provider"`
	Model     string               `json:"model"`
	Breakdown *costs.CostBreakdown `json:"breakdown,omitempty"`
	Error     string               `json:"error,omitempty"`
}

type compareResult struct {
	Options  []compareEntry `json:"options"`
	Cheapest string         `json:"cheapest,omitempty"`
}

func (r compareResult) Header() []string {
	return []string{"PROVIDER", "MODEL", "TIER", "TOTAL", "CHEAPEST", "ERROR"}
}

func (r compareResult) Rows() [][]string {
	rows := make([][]string, 0, len(r.Options))
	for _, o := range r.Options {
		row := []string{o.Provider, o.Model, "", "", "", o.Error}
		if o.Breakdown != nil {
			row[2] = o.Breakdown.Tier
			row[3] = formatUSD(o.Breakdown.TotalCost)
		}
		if o.Provider == r.Cheapest {
			row[4] = "*"
		}
		rows = append(rows, row)
	}
	return rows
}
