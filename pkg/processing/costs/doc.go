// Package costs provides cost accounting for LLM usage.
//
// This package converts observed token usage into USD using a pricing.Table
// and keeps a running aggregate of recorded usage. It supports:
//
//   - Per-million-token input/output pricing
//   - Long-context pricing tiers
//   - Provider batch discounts
//   - Cache-read and cache-write multipliers
//   - Provider comparison and monthly estimates
//   - Rolling hourly and daily cost windows
//
// # Pricing Model
//
// For a request with input tokens I and output tokens O:
//
//	input_cost  = I / 1e6 * input_price
//	output_cost = O / 1e6 * output_price
//
// The long-context prices replace the standard ones when the request's
// context length is strictly greater than the model's threshold. Batch
// requests scale both costs by the provider's retained fraction, and cached
// requests scale the input cost by the cache-read multiplier. No rounding is
// applied.
//
// # Usage
//
//	accountant := costs.NewAccountant(pricing.Default())
//
//	breakdown, err := accountant.CalculateCost("openai", "gpt-4o", costs.Usage{
//		InputTokens:  10000,
//		OutputTokens: 2000,
//	})
//	if err != nil {
//		return err
//	}
//
//	// After a provider call completes:
//	cost, err := accountant.RecordUsageEvent(ctx, costs.UsageEvent{
//		Provider:     "openai",
//		Model:        "gpt-4o",
//		InputTokens:  resp.Usage.PromptTokens,
//		OutputTokens: resp.Usage.CompletionTokens,
//	})
//
// # Thread Safety
//
// CalculateCost and the comparison helpers read an immutable table and need no
// locking. RecordUsageEvent serializes aggregate updates on a single mutex, so
// totals always equal the sum over recorded events. UpdatePricing swaps the
// table atomically; in-flight calculations finish with the table they started
// with.
package costs
