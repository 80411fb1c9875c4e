package pricing

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
)

// FieldError is a validation failure for one field of a pricing table.
type FieldError struct {
	// Field is the dotted path, e.g. "providers.openai.models.gpt-4o.input_per_million".
	Field string

	// Message is a human-readable description.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every FieldError found in a table.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "pricing validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("pricing validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "pricing validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// LoadOptions controls table validation.
type LoadOptions struct {
	// AllowInvertedTiers accepts long-context prices lower than the standard
	// prices. A warning is logged for each such entry.
	AllowInvertedTiers bool

	// Logger receives inverted-tier warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o LoadOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default().With("component", "pricing")
}

func validate(providers map[string]ProviderPricing, opts LoadOptions, errs []FieldError) error {
	if len(providers) == 0 {
		errs = append(errs, FieldError{Field: "providers", Message: "at least one provider is required"})
	}

	// Sorted iteration keeps error order stable.
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		errs = append(errs, validateProvider(name, providers[name], opts)...)
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validateProvider(name string, pp ProviderPricing, opts LoadOptions) []FieldError {
	var errs []FieldError
	prefix := "providers." + name

	if strings.TrimSpace(name) == "" {
		errs = append(errs, FieldError{Field: "providers", Message: "provider name cannot be empty"})
	}
	if pp.BatchDiscount != nil && !(*pp.BatchDiscount >= 0 && *pp.BatchDiscount <= 1) {
		errs = append(errs, FieldError{
			Field:   prefix + ".batch_discount",
			Message: fmt.Sprintf("must be between 0 and 1, got %v", *pp.BatchDiscount),
		})
	}
	errs = append(errs, validateMultiplier(prefix+".cache_read_multiplier", pp.CacheReadMultiplier)...)
	errs = append(errs, validateMultiplier(prefix+".cache_write_multiplier", pp.CacheWriteMultiplier)...)

	if len(pp.Models) == 0 {
		errs = append(errs, FieldError{Field: prefix + ".models", Message: "at least one model is required"})
	}

	models := make([]string, 0, len(pp.Models))
	for model := range pp.Models {
		models = append(models, model)
	}
	sort.Strings(models)

	for _, model := range models {
		errs = append(errs, validateEntry(name, model, pp.Models[model], opts)...)
	}
	return errs
}

func validateEntry(provider, model string, e PriceEntry, opts LoadOptions) []FieldError {
	var errs []FieldError
	prefix := fmt.Sprintf("providers.%s.models.%s", provider, model)

	if strings.TrimSpace(model) == "" {
		errs = append(errs, FieldError{Field: fmt.Sprintf("providers.%s.models", provider), Message: "model name cannot be empty"})
	}

	nonNegative := []struct {
		field string
		value float64
	}{
		{"input_per_million", e.InputPerMillion},
		{"output_per_million", e.OutputPerMillion},
		{"long_input_per_million", e.LongInputPerMillion},
		{"long_output_per_million", e.LongOutputPerMillion},
	}
	for _, f := range nonNegative {
		if msg := checkPrice(f.value); msg != "" {
			errs = append(errs, FieldError{Field: prefix + "." + f.field, Message: msg})
		}
	}

	if e.ContextWindow < 0 {
		errs = append(errs, FieldError{Field: prefix + ".context_window", Message: "must be non-negative"})
	}
	if e.LongContextThreshold < 0 {
		errs = append(errs, FieldError{Field: prefix + ".long_context_threshold", Message: "must be non-negative"})
	}

	errs = append(errs, validateMultiplier(prefix+".cache_read_multiplier", e.CacheReadMultiplier)...)
	errs = append(errs, validateMultiplier(prefix+".cache_write_multiplier", e.CacheWriteMultiplier)...)

	if !e.HasLongContextTier() {
		if e.LongInputPerMillion != 0 || e.LongOutputPerMillion != 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".long_context_threshold",
				Message: "required when long-context prices are set",
			})
		}
		return errs
	}

	if e.ContextWindow > 0 && e.LongContextThreshold >= e.ContextWindow {
		errs = append(errs, FieldError{
			Field:   prefix + ".long_context_threshold",
			Message: fmt.Sprintf("must be below context_window (%d)", e.ContextWindow),
		})
	}

	if e.LongInputPerMillion < e.InputPerMillion || e.LongOutputPerMillion < e.OutputPerMillion {
		if !opts.AllowInvertedTiers {
			errs = append(errs, FieldError{
				Field:   prefix,
				Message: "long-context prices must not be lower than standard prices",
			})
		} else {
			opts.logger().Warn("inverted long-context tier",
				"provider", provider,
				"model", model,
				"input", e.InputPerMillion,
				"long_input", e.LongInputPerMillion,
				"output", e.OutputPerMillion,
				"long_output", e.LongOutputPerMillion,
			)
		}
	}
	return errs
}

func validateMultiplier(field string, m *float64) []FieldError {
	if m == nil {
		return nil
	}
	if msg := checkPrice(*m); msg != "" {
		return []FieldError{{Field: field, Message: msg}}
	}
	return nil
}

// checkPrice returns a message when v is not a finite non-negative number.
func checkPrice(v float64) string {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return fmt.Sprintf("must be a finite number, got %v", v)
	case v < 0:
		return fmt.Sprintf("must be non-negative, got %v", v)
	}
	return ""
}
