package metrics

import (
	"mercator-hq/tollgate/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CostMetrics tracks cost-related metrics for recorded usage events.
//
// Metrics:
//   - tollgate_cost_total: Total cost in USD by provider and model
//   - tollgate_cost_per_request: Cost distribution per request (histogram)
//   - tollgate_tokens_total: Tokens billed by provider, model and direction
//   - tollgate_usage_events_total: Recorded events by provider, model and tier
type CostMetrics struct {
	// Total cost counter (in USD)
	costTotal *prometheus.CounterVec

	// Cost per request histogram (in USD)
	costPerRequest *prometheus.HistogramVec

	// Token counts (input and output)
	tokensTotal *prometheus.CounterVec

	// Events by pricing tier
	eventsTotal *prometheus.CounterVec
}

// NewCostMetrics creates and registers cost metrics with the provided registry.
func NewCostMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CostMetrics {
	cm := &CostMetrics{
		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cost_total",
				Help:      "Total cost in USD by provider and model",
			},
			[]string{"provider", "model"},
		),

		costPerRequest: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cost_per_request",
				Help:      "Cost distribution per request in USD",
				Buckets:   cfg.CostBuckets,
			},
			[]string{"provider", "model"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tokens_total",
				Help:      "Total number of tokens billed",
			},
			[]string{"provider", "model", "type"},
		),

		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "usage_events_total",
				Help:      "Recorded usage events by pricing tier",
			},
			[]string{"provider", "model", "tier"},
		),
	}

	registry.MustRegister(
		cm.costTotal,
		cm.costPerRequest,
		cm.tokensTotal,
		cm.eventsTotal,
	)

	return cm
}

// RecordUsage records the cost and token counts of a single usage event.
//
// Example:
//
//	cm.RecordUsage("openai", "gpt-4o", "standard", 10000, 2000, 0.045)
func (cm *CostMetrics) RecordUsage(provider, model, tier string, inputTokens, outputTokens int64, costUSD float64) {
	cm.eventsTotal.WithLabelValues(provider, model, tier).Inc()

	if inputTokens > 0 {
		cm.tokensTotal.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		cm.tokensTotal.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}

	cm.costPerRequest.WithLabelValues(provider, model).Observe(costUSD)
	if costUSD > 0 {
		cm.costTotal.WithLabelValues(provider, model).Add(costUSD)
	}
}
