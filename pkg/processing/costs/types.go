package costs

import (
	"context"
	"errors"
	"time"

	"mercator-hq/tollgate/pkg/processing/pricing"
)

var (
	// ErrUnknownProvider is returned when the provider is not in the pricing table.
	ErrUnknownProvider = pricing.ErrUnknownProvider

	// ErrUnknownModel is returned when the model is not listed under the provider.
	ErrUnknownModel = pricing.ErrUnknownModel

	// ErrNoValidOptions is returned by CheapestOption when every option failed.
	ErrNoValidOptions = errors.New("no valid pricing options")

	// ErrInvalidUsage is returned for negative token counts.
	ErrInvalidUsage = errors.New("invalid usage")

	// ErrInvalidEstimate is returned for malformed monthly estimate requests.
	ErrInvalidEstimate = errors.New("invalid monthly estimate request")
)

// Pricing tiers reported in CostBreakdown.Tier.
const (
	TierStandard    = "standard"
	TierLongContext = "long_context"
)

// DaysPerMonth is the fixed month length used by EstimateMonthlyCost.
const DaysPerMonth = 30

// Usage describes the token usage of a single request.
type Usage struct {
	// InputTokens is the number of prompt tokens.
	InputTokens int64 `json:"input_tokens"`

	// OutputTokens is the number of completion tokens.
	OutputTokens int64 `json:"output_tokens"`

	// ContextLength selects the long-context tier when it exceeds the model
	// threshold. Zero means unknown and always selects the standard tier.
	ContextLength int64 `json:"context_length,omitempty"`

	// UsesCache marks the input as served from the provider's prompt cache.
	UsesCache bool `json:"uses_cache,omitempty"`

	// IsBatch marks the request as submitted through the provider's batch API.
	IsBatch bool `json:"is_batch,omitempty"`

	// CacheWriteTokens is the number of input tokens written to the cache.
	// They are charged at input price times the cache-write multiplier.
	CacheWriteTokens int64 `json:"cache_write_tokens,omitempty"`
}

// CostBreakdown is the result of a cost calculation, in USD.
type CostBreakdown struct {
	Provider   string   `json:"provider"`
	Model      string   `json:"model"`
	InputCost  float64  `json:"input_cost"`
	OutputCost float64  `json:"output_cost"`
	TotalCost  float64  `json:"total_cost"`
	Tier       string   `json:"tier"`
	Currency   string   `json:"currency"`
	Notes      []string `json:"notes,omitempty"`
}

// Comparison is one entry of a CompareProviders result. Exactly one of
// Breakdown and Err is set.
type Comparison struct {
	Model     string
	Breakdown *CostBreakdown
	Err       error
}

// MonthlyEstimateRequest describes a steady daily workload.
type MonthlyEstimateRequest struct {
	Provider        string
	Model           string
	DailyRequests   int64
	AvgInputTokens  int64
	AvgOutputTokens int64
	ContextLength   int64

	// BatchFraction and CacheFraction partition DailyRequests. Both must be
	// in [0, 1] and their sum must not exceed 1.
	BatchFraction float64
	CacheFraction float64
}

// MonthlyEstimate is the projected cost of a workload over DaysPerMonth days.
type MonthlyEstimate struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Daily request counts per sub-population.
	RegularRequests int64 `json:"regular_requests"`
	BatchRequests   int64 `json:"batch_requests"`
	CachedRequests  int64 `json:"cached_requests"`

	// Monthly cost per sub-population.
	RegularCost float64 `json:"regular_cost"`
	BatchCost   float64 `json:"batch_cost"`
	CachedCost  float64 `json:"cached_cost"`

	TotalCost float64  `json:"total_cost"`
	DailyCost float64  `json:"daily_cost"`
	Days      int      `json:"days"`
	Notes     []string `json:"notes,omitempty"`
}

// UsageEvent is one accounted provider call.
type UsageEvent struct {
	// ID identifies the event. A UUID is assigned when empty.
	ID string `json:"id"`

	Provider      string `json:"provider"`
	Model         string `json:"model"`
	InputTokens   int64  `json:"input_tokens"`
	OutputTokens  int64  `json:"output_tokens"`
	ContextLength int64  `json:"context_length,omitempty"`
	UsesCache     bool   `json:"uses_cache,omitempty"`
	IsBatch       bool   `json:"is_batch,omitempty"`

	// Timestamp defaults to the recording time.
	Timestamp time.Time `json:"timestamp"`
}

// Usage returns the event's token usage.
func (e UsageEvent) Usage() Usage {
	return Usage{
		InputTokens:   e.InputTokens,
		OutputTokens:  e.OutputTokens,
		ContextLength: e.ContextLength,
		UsesCache:     e.UsesCache,
		IsBatch:       e.IsBatch,
	}
}

// ProviderUsage aggregates usage for one provider.
type ProviderUsage struct {
	Cost   float64 `json:"cost"`
	Tokens int64   `json:"tokens"`
	Calls  int64   `json:"calls"`
}

// UsageSummary is a point-in-time copy of the usage aggregate.
type UsageSummary struct {
	TotalCost   float64                  `json:"total_cost"`
	TotalTokens int64                    `json:"total_tokens"`
	TotalCalls  int64                    `json:"total_calls"`
	Providers   map[string]ProviderUsage `json:"providers"`

	// LastHourCost and LastDayCost cover costs recorded in the trailing
	// hour and day.
	LastHourCost float64 `json:"last_hour_cost"`
	LastDayCost  float64 `json:"last_day_cost"`

	GeneratedAt time.Time `json:"generated_at"`
}

// UsageSink receives every successfully recorded usage event.
// Sinks are called after the aggregate is updated, outside of any lock.
type UsageSink interface {
	RecordUsage(ctx context.Context, event UsageEvent, breakdown *CostBreakdown) error
}

// UsageSinkFunc adapts a function to UsageSink.
type UsageSinkFunc func(ctx context.Context, event UsageEvent, breakdown *CostBreakdown) error

// RecordUsage calls f.
func (f UsageSinkFunc) RecordUsage(ctx context.Context, event UsageEvent, breakdown *CostBreakdown) error {
	return f(ctx, event, breakdown)
}
