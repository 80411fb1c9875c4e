package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for Tollgate spans. Custom keys live under "tollgate.".
const (
	AttrProvider = "tollgate.provider"
	AttrModel    = "tollgate.model"
	AttrTier     = "tollgate.tier"

	AttrTokensInput  = "tollgate.tokens.input"
	AttrTokensOutput = "tollgate.tokens.output"
	AttrCachedTokens = "tollgate.tokens.cached"

	AttrCost         = "tollgate.cost.total"
	AttrCostCurrency = "tollgate.cost.currency"

	AttrLimiter         = "tollgate.limiter"
	AttrLimiterRequests = "tollgate.limiter.requests"
	AttrLimiterBlocked  = "tollgate.limiter.blocked"
)

// SetCostAttributes records a priced request on the span.
func SetCostAttributes(span trace.Span, provider, model, tier string, input, output, cached int64, cost float64) {
	span.SetAttributes(
		attribute.String(AttrProvider, provider),
		attribute.String(AttrModel, model),
		attribute.String(AttrTier, tier),
		attribute.Int64(AttrTokensInput, input),
		attribute.Int64(AttrTokensOutput, output),
		attribute.Int64(AttrCachedTokens, cached),
		attribute.Float64(AttrCost, cost),
		attribute.String(AttrCostCurrency, "USD"),
	)
}

// SetLimiterAttributes records a limiter's request counters on the span.
func SetLimiterAttributes(span trace.Span, limiter string, requests, blocked int64) {
	span.SetAttributes(
		attribute.String(AttrLimiter, limiter),
		attribute.Int64(AttrLimiterRequests, requests),
		attribute.Int64(AttrLimiterBlocked, blocked),
	)
}
