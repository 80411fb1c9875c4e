// Package processing groups pricing and cost accounting for LLM requests.
//
// # Architecture
//
//   - pricing: immutable price tables loaded from YAML or TOML, validated
//     eagerly, with an fsnotify watcher for reloads
//   - costs: the Accountant, which prices requests, compares providers,
//     estimates monthly spend and aggregates recorded usage
//
// # Basic Usage
//
//	accountant := costs.NewAccountant(pricing.Default())
//
//	breakdown, err := accountant.CalculateCost("openai", "gpt-4o", costs.Usage{
//	    InputTokens:  10000,
//	    OutputTokens: 2000,
//	})
//	if err != nil {
//	    return err
//	}
//
//	// After the provider call, report observed usage.
//	cost, err := accountant.RecordUsageEvent(ctx, costs.UsageEvent{
//	    Provider:     "openai",
//	    Model:        "gpt-4o",
//	    InputTokens:  10000,
//	    OutputTokens: 2000,
//	})
package processing
