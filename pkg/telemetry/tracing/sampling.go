package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	// SamplerAlways samples all traces
	SamplerAlways = "always"

	// SamplerNever samples no traces
	SamplerNever = "never"

	// SamplerRatio samples a fraction of traces by trace ID
	SamplerRatio = "ratio"

	// SamplerParentBased follows the parent decision and samples root
	// spans at the configured ratio
	SamplerParentBased = "parent_based"
)

// createSampler creates a sampler for the strategy.
//
// always, never and ratio are wrapped in ParentBased so that a remote
// parent's decision wins when one is present. parent_based uses the ratio
// sampler for root spans and always follows the parent otherwise.
//
//	telemetry:
//	  tracing:
//	    sampler: ratio
//	    sample_ratio: 0.1
func createSampler(strategy string, ratio float64) (sdktrace.Sampler, error) {
	switch strategy {
	case SamplerAlways:
		return sdktrace.ParentBased(sdktrace.AlwaysSample()), nil
	case SamplerNever:
		return sdktrace.ParentBased(sdktrace.NeverSample()), nil
	case SamplerRatio, SamplerParentBased:
		if ratio < 0.0 || ratio > 1.0 {
			return nil, fmt.Errorf("sample ratio must be between 0.0 and 1.0, got %f", ratio)
		}
		root := sdktrace.TraceIDRatioBased(ratio)
		if strategy == SamplerParentBased {
			return sdktrace.ParentBased(root,
				sdktrace.WithRemoteParentSampled(sdktrace.AlwaysSample()),
				sdktrace.WithRemoteParentNotSampled(sdktrace.NeverSample()),
			), nil
		}
		return sdktrace.ParentBased(root), nil
	default:
		return nil, fmt.Errorf("unknown sampler strategy: %s (valid: always, never, ratio, parent_based)", strategy)
	}
}
