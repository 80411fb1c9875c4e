package costs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/tollgate/pkg/processing/pricing"
	"mercator-hq/tollgate/pkg/telemetry/tracing"
)

const tracerName = "mercator-hq/tollgate/pkg/processing/costs"

// Accountant calculates request costs and aggregates recorded usage.
type Accountant struct {
	table  atomic.Pointer[pricing.Table]
	logger *slog.Logger
	now    func() time.Time
	tracer trace.Tracer
	sinks  []UsageSink

	mu        sync.Mutex
	totalCost float64
	tokens    int64
	calls     int64
	providers map[string]*ProviderUsage
	hourly    *rollingWindow
	daily     *rollingWindow
}

// Option configures an Accountant.
type Option func(*Accountant)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Accountant) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithSinks adds usage sinks called after every recorded event.
func WithSinks(sinks ...UsageSink) Option {
	return func(a *Accountant) {
		a.sinks = append(a.sinks, sinks...)
	}
}

// WithClock sets the time source used for timestamps and rolling windows.
func WithClock(now func() time.Time) Option {
	return func(a *Accountant) {
		if now != nil {
			a.now = now
		}
	}
}

// WithTracer sets the tracer. Defaults to the global otel tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *Accountant) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// NewAccountant creates an accountant over table. A nil table uses
// pricing.Default().
func NewAccountant(table *pricing.Table, opts ...Option) *Accountant {
	if table == nil {
		table = pricing.Default()
	}

	a := &Accountant{
		logger:    slog.Default().With("component", "costs"),
		now:       time.Now,
		tracer:    otel.Tracer(tracerName),
		providers: make(map[string]*ProviderUsage),
		hourly:    newRollingWindow(time.Hour, time.Minute),
		daily:     newRollingWindow(24*time.Hour, time.Hour),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.table.Store(table)
	return a
}

// Pricing returns the current pricing table.
func (a *Accountant) Pricing() *pricing.Table {
	return a.table.Load()
}

// UpdatePricing atomically replaces the pricing table. Recorded totals are kept.
func (a *Accountant) UpdatePricing(table *pricing.Table) {
	if table == nil {
		return
	}
	a.table.Store(table)
	a.logger.Info("pricing table updated", "entries", table.Len())
}

// CalculateCost returns the cost of usage on provider/model.
// It does not modify any state.
func (a *Accountant) CalculateCost(provider, model string, usage Usage) (*CostBreakdown, error) {
	return calculate(a.table.Load(), provider, model, usage)
}

func calculate(table *pricing.Table, provider, model string, usage Usage) (*CostBreakdown, error) {
	if usage.InputTokens < 0 || usage.OutputTokens < 0 || usage.CacheWriteTokens < 0 || usage.ContextLength < 0 {
		return nil, fmt.Errorf("%w: token counts must be non-negative", ErrInvalidUsage)
	}

	rate, err := table.Lookup(provider, model)
	if err != nil {
		return nil, err
	}

	b := &CostBreakdown{
		Provider: provider,
		Model:    model,
		Tier:     TierStandard,
		Currency: "USD",
	}

	inputPrice, outputPrice := rate.InputPerMillion, rate.OutputPerMillion
	if rate.HasLongContextTier() && usage.ContextLength > rate.LongContextThreshold {
		inputPrice, outputPrice = rate.LongInputPerMillion, rate.LongOutputPerMillion
		b.Tier = TierLongContext
		b.Notes = append(b.Notes, fmt.Sprintf("long-context pricing (context %d > %d)",
			usage.ContextLength, rate.LongContextThreshold))
	}

	b.InputCost = float64(usage.InputTokens) / 1_000_000 * inputPrice
	b.OutputCost = float64(usage.OutputTokens) / 1_000_000 * outputPrice

	batchFactor := 1.0
	if usage.IsBatch {
		if rate.BatchDiscount != nil {
			batchFactor = *rate.BatchDiscount
			b.InputCost *= batchFactor
			b.OutputCost *= batchFactor
			b.Notes = append(b.Notes, fmt.Sprintf("batch pricing (%.0f%% of list price)", batchFactor*100))
		} else {
			b.Notes = append(b.Notes, "batch requested but provider has no batch pricing")
		}
	}

	if usage.UsesCache {
		if rate.CacheRead != nil {
			b.InputCost *= *rate.CacheRead
			b.Notes = append(b.Notes, fmt.Sprintf("cache read multiplier %.2f applied to input", *rate.CacheRead))
		} else {
			b.Notes = append(b.Notes, "cache requested but provider has no cache pricing")
		}
	}

	if usage.CacheWriteTokens > 0 {
		if rate.CacheWrite != nil {
			b.InputCost += float64(usage.CacheWriteTokens) / 1_000_000 * inputPrice * *rate.CacheWrite * batchFactor
			b.Notes = append(b.Notes, fmt.Sprintf("cache write multiplier %.2f applied to %d tokens",
				*rate.CacheWrite, usage.CacheWriteTokens))
		} else {
			b.Notes = append(b.Notes, "cache write tokens ignored: provider has no cache write pricing")
		}
	}

	b.TotalCost = b.InputCost + b.OutputCost
	return b, nil
}

// CompareProviders calculates usage for every provider -> model entry. A
// failing entry carries its error and does not affect the others.
func (a *Accountant) CompareProviders(options map[string]string, usage Usage) map[string]Comparison {
	table := a.table.Load()
	results := make(map[string]Comparison, len(options))
	for provider, model := range options {
		b, err := calculate(table, provider, model, usage)
		results[provider] = Comparison{Model: model, Breakdown: b, Err: err}
	}
	return results
}

// CheapestOption returns the provider with the lowest total cost among the
// entries that could be priced. Ties are broken by provider name. If every
// entry fails, the returned error wraps ErrNoValidOptions and each entry error.
func (a *Accountant) CheapestOption(options map[string]string, usage Usage) (string, *CostBreakdown, error) {
	results := a.CompareProviders(options, usage)

	providers := make([]string, 0, len(results))
	for p := range results {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	var (
		best     string
		bestCost *CostBreakdown
		errs     []error
	)
	for _, p := range providers {
		r := results[p]
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", p, r.Model, r.Err))
			continue
		}
		if bestCost == nil || r.Breakdown.TotalCost < bestCost.TotalCost {
			best, bestCost = p, r.Breakdown
		}
	}

	if bestCost == nil {
		return "", nil, errors.Join(append([]error{ErrNoValidOptions}, errs...)...)
	}
	return best, bestCost, nil
}

// EstimateMonthlyCost projects the cost of a steady daily workload over
// DaysPerMonth days.
//
// DailyRequests is split into batch and cached sub-populations by truncating
// DailyRequests*fraction; the rest are regular requests. Cached requests are
// only priced when the model has a cache-read multiplier. Otherwise they
// contribute zero and a note is added.
func (a *Accountant) EstimateMonthlyCost(req MonthlyEstimateRequest) (*MonthlyEstimate, error) {
	if err := validateEstimate(req); err != nil {
		return nil, err
	}

	table := a.table.Load()
	rate, err := table.Lookup(req.Provider, req.Model)
	if err != nil {
		return nil, err
	}

	batch := int64(float64(req.DailyRequests) * req.BatchFraction)
	cached := int64(float64(req.DailyRequests) * req.CacheFraction)
	regular := req.DailyRequests - batch - cached

	est := &MonthlyEstimate{
		Provider:        req.Provider,
		Model:           req.Model,
		RegularRequests: regular,
		BatchRequests:   batch,
		CachedRequests:  cached,
		Days:            DaysPerMonth,
	}

	base := Usage{
		InputTokens:   req.AvgInputTokens,
		OutputTokens:  req.AvgOutputTokens,
		ContextLength: req.ContextLength,
	}

	perRequest := func(u Usage) (float64, error) {
		b, err := calculate(table, req.Provider, req.Model, u)
		if err != nil {
			return 0, err
		}
		return b.TotalCost, nil
	}

	if regular > 0 {
		c, err := perRequest(base)
		if err != nil {
			return nil, err
		}
		est.RegularCost = c * float64(regular) * DaysPerMonth
	}

	if batch > 0 {
		u := base
		u.IsBatch = true
		c, err := perRequest(u)
		if err != nil {
			return nil, err
		}
		est.BatchCost = c * float64(batch) * DaysPerMonth
		if rate.BatchDiscount == nil {
			est.Notes = append(est.Notes, "provider has no batch pricing; batch requests priced at list price")
		}
	}

	if cached > 0 {
		if rate.CacheRead != nil {
			u := base
			u.UsesCache = true
			c, err := perRequest(u)
			if err != nil {
				return nil, err
			}
			est.CachedCost = c * float64(cached) * DaysPerMonth
		} else {
			est.Notes = append(est.Notes, fmt.Sprintf(
				"provider %s has no cache pricing; %d cached requests/day contribute no cost", req.Provider, cached))
		}
	}

	est.TotalCost = est.RegularCost + est.BatchCost + est.CachedCost
	est.DailyCost = est.TotalCost / DaysPerMonth
	return est, nil
}

func validateEstimate(req MonthlyEstimateRequest) error {
	switch {
	case req.DailyRequests < 0:
		return fmt.Errorf("%w: daily requests must be non-negative", ErrInvalidEstimate)
	case req.AvgInputTokens < 0 || req.AvgOutputTokens < 0 || req.ContextLength < 0:
		return fmt.Errorf("%w: token counts must be non-negative", ErrInvalidEstimate)
	case req.BatchFraction < 0 || req.BatchFraction > 1:
		return fmt.Errorf("%w: batch fraction %v outside [0, 1]", ErrInvalidEstimate, req.BatchFraction)
	case req.CacheFraction < 0 || req.CacheFraction > 1:
		return fmt.Errorf("%w: cache fraction %v outside [0, 1]", ErrInvalidEstimate, req.CacheFraction)
	case req.BatchFraction+req.CacheFraction > 1:
		return fmt.Errorf("%w: batch and cache fractions sum to more than 1", ErrInvalidEstimate)
	}
	return nil
}

// RecordUsageEvent prices event and adds it to the aggregate, returning the
// event cost. If pricing fails the aggregate is left untouched.
//
// Once the aggregate is updated, every configured UsageSink is called. Sink
// errors are logged and do not fail the call.
func (a *Accountant) RecordUsageEvent(ctx context.Context, event UsageEvent) (float64, error) {
	ctx, span := a.tracer.Start(ctx, "costs.record_usage",
		trace.WithAttributes(
			attribute.String(tracing.AttrProvider, event.Provider),
			attribute.String(tracing.AttrModel, event.Model),
		),
	)
	defer span.End()

	breakdown, err := a.CalculateCost(event.Provider, event.Model, event.Usage())
	if err != nil {
		tracing.SetError(span, err)
		tracing.SetStatus(span, err)
		return 0, fmt.Errorf("failed to record usage: %w", err)
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	now := a.now()
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}

	tokens := event.InputTokens + event.OutputTokens

	a.mu.Lock()
	a.totalCost += breakdown.TotalCost
	a.tokens += tokens
	a.calls++
	pu, ok := a.providers[event.Provider]
	if !ok {
		pu = &ProviderUsage{}
		a.providers[event.Provider] = pu
	}
	pu.Cost += breakdown.TotalCost
	pu.Tokens += tokens
	pu.Calls++
	a.hourly.add(now, breakdown.TotalCost)
	a.daily.add(now, breakdown.TotalCost)
	a.mu.Unlock()

	var cached int64
	if event.UsesCache {
		cached = event.InputTokens
	}
	tracing.SetCostAttributes(span, event.Provider, event.Model, breakdown.Tier,
		event.InputTokens, event.OutputTokens, cached, breakdown.TotalCost)
	span.SetAttributes(attribute.String("tollgate.event_id", event.ID))

	a.logger.DebugContext(ctx, "usage recorded",
		"event_id", event.ID,
		"provider", event.Provider,
		"model", event.Model,
		"tokens", tokens,
		"cost_usd", breakdown.TotalCost,
		"tier", breakdown.Tier,
	)

	for _, sink := range a.sinks {
		if err := sink.RecordUsage(ctx, event, breakdown); err != nil {
			a.logger.WarnContext(ctx, "usage sink failed",
				"event_id", event.ID,
				"error", err,
			)
		}
	}

	return breakdown.TotalCost, nil
}

// UsageSummary returns a snapshot of the aggregate. It reflects every
// RecordUsageEvent call that has returned.
func (a *Accountant) UsageSummary() UsageSummary {
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()

	s := UsageSummary{
		TotalCost:    a.totalCost,
		TotalTokens:  a.tokens,
		TotalCalls:   a.calls,
		Providers:    make(map[string]ProviderUsage, len(a.providers)),
		LastHourCost: a.hourly.sum(now),
		LastDayCost:  a.daily.sum(now),
		GeneratedAt:  now,
	}
	for name, pu := range a.providers {
		s.Providers[name] = *pu
	}
	return s
}

// Restore seeds the aggregate totals from a persisted summary, replacing the
// current totals. Rolling windows are not restored.
func (a *Accountant) Restore(s UsageSummary) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalCost = s.TotalCost
	a.tokens = s.TotalTokens
	a.calls = s.TotalCalls
	a.providers = make(map[string]*ProviderUsage, len(s.Providers))
	for name, pu := range s.Providers {
		pu := pu
		a.providers[name] = &pu
	}
}

// Reset clears the aggregate and rolling windows.
func (a *Accountant) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalCost = 0
	a.tokens = 0
	a.calls = 0
	a.providers = make(map[string]*ProviderUsage)
	a.hourly.reset()
	a.daily.reset()
}
