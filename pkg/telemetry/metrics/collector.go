package metrics

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/tollgate/pkg/config"
	"mercator-hq/tollgate/pkg/limits/ratelimit"
	"mercator-hq/tollgate/pkg/processing/costs"
)

// overflowLabel replaces a model label once the cardinality limit is hit.
const overflowLabel = "other"

// Collector is the main orchestrator for Tollgate's Prometheus metrics.
// It owns the registry, the admission limiter metrics and the cost metrics,
// and exposes hooks that plug into limiters and the cost accountant.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	limiterMetrics *LimiterMetrics
	costMetrics    *CostMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Namespace: "tollgate"}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.WaitBuckets) == 0 {
		cfg.WaitBuckets = append([]float64(nil), config.DefaultWaitBuckets...)
	}
	if len(cfg.CostBuckets) == 0 {
		cfg.CostBuckets = append([]float64(nil), config.DefaultCostBuckets...)
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(10000), // Max 10K unique label sets
	}

	c.limiterMetrics = NewLimiterMetrics(cfg, registry)
	c.costMetrics = NewCostMetrics(cfg, registry)

	return c
}

// WatchLimiters exports the metrics of every limiter in limiters. Values are
// read from limiter snapshots at scrape time, so limiters registered later
// are picked up automatically.
func (c *Collector) WatchLimiters(limiters *ratelimit.Registry) error {
	return c.registry.Register(newLimiterSnapshotCollector(c.config, limiters))
}

// StatusCallback returns a ratelimit.StatusFunc that records every attempt
// and the wait of each admitted request.
//
// Example:
//
//	limiter, _ := ratelimit.NewAdmissionLimiter("openai", cfg,
//		ratelimit.WithStatusCallback(collector.StatusCallback()))
func (c *Collector) StatusCallback() ratelimit.StatusFunc {
	return func(s ratelimit.AttemptStatus) error {
		if !c.config.IsEnabled() {
			return nil
		}
		c.limiterMetrics.RecordAttempt(s)
		return nil
	}
}

// RecordUsage records a priced usage event. It implements costs.UsageSink.
func (c *Collector) RecordUsage(_ context.Context, event costs.UsageEvent, breakdown *costs.CostBreakdown) error {
	if !c.config.IsEnabled() || breakdown == nil {
		return nil
	}

	model := event.Model
	if !c.cardinalityLimiter.Allow(event.Provider + ":" + model) {
		// Aggregate into "other" to prevent cardinality explosion
		model = overflowLabel
	}

	c.costMetrics.RecordUsage(event.Provider, model, breakdown.Tier, event.InputTokens, event.OutputTokens, breakdown.TotalCost)
	return nil
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

var _ costs.UsageSink = (*Collector)(nil)

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
// Returns false if adding this label set would exceed the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
