package pricing

import (
	"fmt"
	"maps"
	"slices"
)

// document is the on-disk shape of a pricing file. Prices are pointers so a
// missing field can be told apart from an explicit zero.
type document struct {
	Providers map[string]providerDocument `yaml:"providers" toml:"providers"`
}

type providerDocument struct {
	BatchDiscount        *float64                 `yaml:"batch_discount,omitempty" toml:"batch_discount,omitempty"`
	CacheReadMultiplier  *float64                 `yaml:"cache_read_multiplier,omitempty" toml:"cache_read_multiplier,omitempty"`
	CacheWriteMultiplier *float64                 `yaml:"cache_write_multiplier,omitempty" toml:"cache_write_multiplier,omitempty"`
	Models               map[string]entryDocument `yaml:"models" toml:"models"`
}

type entryDocument struct {
	InputPerMillion      *float64 `yaml:"input_per_million" toml:"input_per_million"`
	OutputPerMillion     *float64 `yaml:"output_per_million" toml:"output_per_million"`
	ContextWindow        int64    `yaml:"context_window,omitempty" toml:"context_window,omitempty"`
	LongContextThreshold int64    `yaml:"long_context_threshold,omitempty" toml:"long_context_threshold,omitempty"`
	LongInputPerMillion  *float64 `yaml:"long_input_per_million,omitempty" toml:"long_input_per_million,omitempty"`
	LongOutputPerMillion *float64 `yaml:"long_output_per_million,omitempty" toml:"long_output_per_million,omitempty"`
	CacheReadMultiplier  *float64 `yaml:"cache_read_multiplier,omitempty" toml:"cache_read_multiplier,omitempty"`
	CacheWriteMultiplier *float64 `yaml:"cache_write_multiplier,omitempty" toml:"cache_write_multiplier,omitempty"`
}

type requiredPrice struct {
	field string
	value *float64
}

// providers converts the document to table form. Missing required prices
// are returned as field errors.
func (d document) providers() (map[string]ProviderPricing, []FieldError) {
	var errs []FieldError
	out := make(map[string]ProviderPricing, len(d.Providers))

	for _, name := range slices.Sorted(maps.Keys(d.Providers)) {
		pd := d.Providers[name]
		pp := ProviderPricing{
			BatchDiscount:        pd.BatchDiscount,
			CacheReadMultiplier:  pd.CacheReadMultiplier,
			CacheWriteMultiplier: pd.CacheWriteMultiplier,
			Models:               make(map[string]PriceEntry, len(pd.Models)),
		}
		for _, model := range slices.Sorted(maps.Keys(pd.Models)) {
			ed := pd.Models[model]
			prefix := fmt.Sprintf("providers.%s.models.%s", name, model)

			required := []requiredPrice{
				{"input_per_million", ed.InputPerMillion},
				{"output_per_million", ed.OutputPerMillion},
			}
			if ed.LongContextThreshold > 0 {
				required = append(required,
					requiredPrice{"long_input_per_million", ed.LongInputPerMillion},
					requiredPrice{"long_output_per_million", ed.LongOutputPerMillion},
				)
			}
			for _, r := range required {
				if r.value == nil {
					errs = append(errs, FieldError{Field: prefix + "." + r.field, Message: "is required"})
				}
			}

			pp.Models[model] = PriceEntry{
				InputPerMillion:      deref(ed.InputPerMillion),
				OutputPerMillion:     deref(ed.OutputPerMillion),
				ContextWindow:        ed.ContextWindow,
				LongContextThreshold: ed.LongContextThreshold,
				LongInputPerMillion:  deref(ed.LongInputPerMillion),
				LongOutputPerMillion: deref(ed.LongOutputPerMillion),
				CacheReadMultiplier:  ed.CacheReadMultiplier,
				CacheWriteMultiplier: ed.CacheWriteMultiplier,
			}
		}
		out[name] = pp
	}
	return out, errs
}

// newDocument converts table form back to the on-disk shape. Long-context
// prices are written only for entries with a long-context tier.
func newDocument(providers map[string]ProviderPricing) document {
	doc := document{Providers: make(map[string]providerDocument, len(providers))}
	for name, pp := range providers {
		pd := providerDocument{
			BatchDiscount:        clonePtr(pp.BatchDiscount),
			CacheReadMultiplier:  clonePtr(pp.CacheReadMultiplier),
			CacheWriteMultiplier: clonePtr(pp.CacheWriteMultiplier),
			Models:               make(map[string]entryDocument, len(pp.Models)),
		}
		for model, e := range pp.Models {
			ed := entryDocument{
				InputPerMillion:      Float(e.InputPerMillion),
				OutputPerMillion:     Float(e.OutputPerMillion),
				ContextWindow:        e.ContextWindow,
				LongContextThreshold: e.LongContextThreshold,
				CacheReadMultiplier:  clonePtr(e.CacheReadMultiplier),
				CacheWriteMultiplier: clonePtr(e.CacheWriteMultiplier),
			}
			if e.HasLongContextTier() {
				ed.LongInputPerMillion = Float(e.LongInputPerMillion)
				ed.LongOutputPerMillion = Float(e.LongOutputPerMillion)
			}
			pd.Models[model] = ed
		}
		doc.Providers[name] = pd
	}
	return doc
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
