// Package pricing holds the provider/model price listing used for LLM cost
// accounting.
//
// # Overview
//
// A Table maps provider names to a ProviderPricing, which in turn maps model
// names to a PriceEntry. Prices are expressed in USD per million tokens.
// Tables are validated when they are built and are never mutated afterwards;
// a reload produces a new Table that callers swap in atomically.
//
// # Pricing Features
//
//   - Long-context tiers: a model may define LongContextThreshold together
//     with long-context input/output prices, applied when a request's context
//     length exceeds the threshold.
//   - Batch discounts: a provider-level retained fraction (0.5 means half price).
//   - Cache multipliers: cache-read and cache-write multipliers, set per
//     provider and optionally overridden per model.
//
// # File Formats
//
// Tables are loaded from YAML (.yaml, .yml) or TOML (.toml) files:
//
//	providers:
//	  openai:
//	    batch_discount: 0.5
//	    models:
//	      gpt-4o:
//	        input_per_million: 2.50
//	        output_per_million: 10.00
//	        context_window: 128000
//
// # Validation
//
// Negative prices, empty names, discounts outside [0, 1] and incomplete
// long-context tiers are rejected at load time. Tiers whose long-context price
// is below the standard price are rejected unless LoadOptions.AllowInvertedTiers
// is set, in which case a warning is logged per entry.
//
// # Hot Reload
//
// Watcher observes a pricing file with fsnotify and invokes a callback with the
// freshly validated table whenever it changes. Invalid edits are logged and the
// previous table stays in effect.
package pricing
