package pricing

import (
	"errors"
	"fmt"
	"sort"
)

// Lookup errors returned by Table.Lookup.
var (
	// ErrUnknownProvider indicates the provider is not present in the table.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnknownModel indicates the model is not listed under the provider.
	ErrUnknownModel = errors.New("unknown model")
)

// LookupError describes a failed provider/model lookup.
// It unwraps to ErrUnknownProvider or ErrUnknownModel.
type LookupError struct {
	Provider string
	Model    string
	Err      error
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	if errors.Is(e.Err, ErrUnknownProvider) {
		return fmt.Sprintf("%v: %q", e.Err, e.Provider)
	}
	return fmt.Sprintf("%v: %q for provider %q", e.Err, e.Model, e.Provider)
}

// Unwrap returns the underlying sentinel error.
func (e *LookupError) Unwrap() error {
	return e.Err
}

// PriceEntry is the price listing for a single model.
// All prices are USD per million tokens.
type PriceEntry struct {
	// InputPerMillion is the standard input (prompt) price.
	InputPerMillion float64 `yaml:"input_per_million" toml:"input_per_million" json:"input_per_million"`

	// OutputPerMillion is the standard output (completion) price.
	OutputPerMillion float64 `yaml:"output_per_million" toml:"output_per_million" json:"output_per_million"`

	// ContextWindow is the maximum context size in tokens (0 = unspecified).
	ContextWindow int64 `yaml:"context_window" toml:"context_window" json:"context_window"`

	// LongContextThreshold enables the long-context tier when > 0. The tier
	// applies to requests whose context length is strictly greater.
	LongContextThreshold int64 `yaml:"long_context_threshold,omitempty" toml:"long_context_threshold,omitempty" json:"long_context_threshold,omitempty"`

	// LongInputPerMillion is the input price above the threshold.
	LongInputPerMillion float64 `yaml:"long_input_per_million,omitempty" toml:"long_input_per_million,omitempty" json:"long_input_per_million,omitempty"`

	// LongOutputPerMillion is the output price above the threshold.
	LongOutputPerMillion float64 `yaml:"long_output_per_million,omitempty" toml:"long_output_per_million,omitempty" json:"long_output_per_million,omitempty"`

	// CacheReadMultiplier overrides the provider-level cache-read multiplier.
	CacheReadMultiplier *float64 `yaml:"cache_read_multiplier,omitempty" toml:"cache_read_multiplier,omitempty" json:"cache_read_multiplier,omitempty"`

	// CacheWriteMultiplier overrides the provider-level cache-write multiplier.
	CacheWriteMultiplier *float64 `yaml:"cache_write_multiplier,omitempty" toml:"cache_write_multiplier,omitempty" json:"cache_write_multiplier,omitempty"`
}

// HasLongContextTier reports whether the entry defines a long-context tier.
func (e PriceEntry) HasLongContextTier() bool {
	return e.LongContextThreshold > 0
}

// ProviderPricing holds provider-wide adjustments and the per-model entries.
type ProviderPricing struct {
	// BatchDiscount is the retained fraction of the normal price for batch
	// requests (0.5 = half price). Nil means the provider has no batch mode.
	BatchDiscount *float64 `yaml:"batch_discount,omitempty" toml:"batch_discount,omitempty" json:"batch_discount,omitempty"`

	// CacheReadMultiplier scales input cost for cache reads. Nil means the
	// provider does not price cached input differently.
	CacheReadMultiplier *float64 `yaml:"cache_read_multiplier,omitempty" toml:"cache_read_multiplier,omitempty" json:"cache_read_multiplier,omitempty"`

	// CacheWriteMultiplier scales input price for tokens written to the cache.
	CacheWriteMultiplier *float64 `yaml:"cache_write_multiplier,omitempty" toml:"cache_write_multiplier,omitempty" json:"cache_write_multiplier,omitempty"`

	// Models maps model name to its price entry.
	Models map[string]PriceEntry `yaml:"models" toml:"models" json:"models"`
}

// Rate is the resolved pricing for one provider/model pair: the model entry
// plus the effective batch and cache adjustments.
type Rate struct {
	Provider string
	Model    string
	PriceEntry

	// BatchDiscount is the provider batch retained fraction, if any.
	BatchDiscount *float64

	// CacheRead and CacheWrite are the effective multipliers after applying
	// model-level overrides, if any.
	CacheRead  *float64
	CacheWrite *float64
}

// Table is an immutable provider -> model -> PriceEntry listing.
// A Table is safe for concurrent use by any number of goroutines.
type Table struct {
	providers map[string]ProviderPricing
}

// NewTable validates providers and returns a frozen Table built from a deep
// copy, so later changes to the argument do not leak into the table.
func NewTable(providers map[string]ProviderPricing, opts LoadOptions) (*Table, error) {
	return newTable(providers, opts, nil)
}

// newTable validates providers, reporting errs ahead of any it finds.
func newTable(providers map[string]ProviderPricing, opts LoadOptions, errs []FieldError) (*Table, error) {
	if err := validate(providers, opts, errs); err != nil {
		return nil, err
	}
	return &Table{providers: cloneProviders(providers)}, nil
}

// Lookup resolves the rate for provider and model.
func (t *Table) Lookup(provider, model string) (Rate, error) {
	pp, ok := t.providers[provider]
	if !ok {
		return Rate{}, &LookupError{Provider: provider, Model: model, Err: ErrUnknownProvider}
	}
	entry, ok := pp.Models[model]
	if !ok {
		return Rate{}, &LookupError{Provider: provider, Model: model, Err: ErrUnknownModel}
	}

	rate := Rate{
		Provider:      provider,
		Model:         model,
		PriceEntry:    cloneEntry(entry),
		BatchDiscount: clonePtr(pp.BatchDiscount),
		CacheRead:     clonePtr(pp.CacheReadMultiplier),
		CacheWrite:    clonePtr(pp.CacheWriteMultiplier),
	}
	if entry.CacheReadMultiplier != nil {
		rate.CacheRead = clonePtr(entry.CacheReadMultiplier)
	}
	if entry.CacheWriteMultiplier != nil {
		rate.CacheWrite = clonePtr(entry.CacheWriteMultiplier)
	}
	return rate, nil
}

// Providers returns the provider names in sorted order.
func (t *Table) Providers() []string {
	names := make([]string, 0, len(t.providers))
	for name := range t.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Models returns the model names listed under provider in sorted order.
// It returns nil for an unknown provider.
func (t *Table) Models(provider string) []string {
	pp, ok := t.providers[provider]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(pp.Models))
	for name := range pp.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Provider returns a copy of the named provider's pricing.
func (t *Table) Provider(name string) (ProviderPricing, bool) {
	pp, ok := t.providers[name]
	if !ok {
		return ProviderPricing{}, false
	}
	return cloneProvider(pp), true
}

// Len returns the total number of provider/model entries.
func (t *Table) Len() int {
	n := 0
	for _, pp := range t.providers {
		n += len(pp.Models)
	}
	return n
}

func cloneProviders(in map[string]ProviderPricing) map[string]ProviderPricing {
	out := make(map[string]ProviderPricing, len(in))
	for name, pp := range in {
		out[name] = cloneProvider(pp)
	}
	return out
}

func cloneProvider(pp ProviderPricing) ProviderPricing {
	out := ProviderPricing{
		BatchDiscount:        clonePtr(pp.BatchDiscount),
		CacheReadMultiplier:  clonePtr(pp.CacheReadMultiplier),
		CacheWriteMultiplier: clonePtr(pp.CacheWriteMultiplier),
		Models:               make(map[string]PriceEntry, len(pp.Models)),
	}
	for model, entry := range pp.Models {
		out.Models[model] = cloneEntry(entry)
	}
	return out
}

func cloneEntry(e PriceEntry) PriceEntry {
	e.CacheReadMultiplier = clonePtr(e.CacheReadMultiplier)
	e.CacheWriteMultiplier = clonePtr(e.CacheWriteMultiplier)
	return e
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v. It is a convenience for building tables in code.
func Float(v float64) *float64 {
	return &v
}
