// Package tracing provides OpenTelemetry tracing for Tollgate.
//
// New installs an SDK tracer provider that batches spans to an OTLP gRPC
// collector and sets the W3C Trace Context and Baggage propagators. The
// admission limiter and the cost accountant obtain their tracers from the
// global provider, so their spans join whatever trace is in the context.
//
// # Sampling
//
//   - always: sample every root span
//   - never: sample nothing
//   - ratio: sample root spans by trace ID at sample_ratio
//   - parent_based: follow the remote parent, ratio for roots
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "tollgate.cost")
//	defer span.End()
//	tracing.SetCostAttributes(span, "openai", "gpt-4o", "standard", 1000, 500, 0, 0.0075)
//
// When tracing is disabled every span is a noop.
package tracing
