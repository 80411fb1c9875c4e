package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/tollgate/pkg/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// ============================================================================
// Tracer Tests
// ============================================================================

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.TracingConfig
		wantErr bool
	}{
		{
			name:    "nil config",
			config:  nil,
			wantErr: true,
		},
		{
			name: "disabled tracing",
			config: &config.TracingConfig{
				Enabled:     false,
				ServiceName: "test-service",
			},
		},
		{
			name: "enabled with ratio sampler",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     "ratio",
				SampleRatio: 0.5,
				Endpoint:    "localhost:4317",
				Insecure:    true,
				Timeout:     time.Second,
				ServiceName: "test-service",
			},
		},
		{
			name: "enabled with parent based sampler",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     "parent_based",
				SampleRatio: 1.0,
				Endpoint:    "localhost:4317",
				Insecure:    true,
				ServiceName: "test-service",
			},
		},
		{
			name: "unknown sampler",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     "sometimes",
				Endpoint:    "localhost:4317",
				ServiceName: "test-service",
			},
			wantErr: true,
		},
		{
			name: "missing endpoint",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     "always",
				ServiceName: "test-service",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.config, "test")
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			defer tracer.Shutdown(ctx)

			if tracer.Enabled() != tt.config.Enabled {
				t.Errorf("Enabled() = %v, want %v", tracer.Enabled(), tt.config.Enabled)
			}
		})
	}
}

func TestTracer_DisabledIsNoop(t *testing.T) {
	tracer, err := New(&config.TracingConfig{Enabled: false}, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, span := tracer.Start(context.Background(), "op")
	defer span.End()

	if span.IsRecording() {
		t.Error("disabled tracer should return non-recording spans")
	}
	if TraceID(ctx) != "" {
		t.Errorf("TraceID() = %q, want empty", TraceID(ctx))
	}
	_, child := tracer.Named("child").Start(ctx, "x")
	if child.IsRecording() {
		t.Error("Named() on a disabled tracer should be noop")
	}
	child.End()
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

// ============================================================================
// Helper Tests
// ============================================================================

func newRecordingTracer(t *testing.T) (trace.Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider.Tracer("test"), recorder
}

func TestTraceAndSpanID(t *testing.T) {
	tracer, _ := newRecordingTracer(t)

	if TraceID(context.Background()) != "" || SpanID(context.Background()) != "" {
		t.Error("IDs should be empty without a span")
	}

	ctx, span := tracer.Start(context.Background(), "op")
	defer span.End()

	if got := TraceID(ctx); len(got) != 32 {
		t.Errorf("TraceID() = %q, want 32 hex chars", got)
	}
	if got := SpanID(ctx); len(got) != 16 {
		t.Errorf("SpanID() = %q, want 16 hex chars", got)
	}
	if SpanFromContext(ctx) != span {
		t.Error("SpanFromContext() should return the active span")
	}
}

func TestSetErrorAndStatus(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)

	_, span := tracer.Start(context.Background(), "failing")
	err := errors.New("boom")
	SetError(span, err)
	SetStatus(span, err)
	span.End()

	_, ok := tracer.Start(context.Background(), "ok")
	SetError(ok, nil)
	SetStatus(ok, nil)
	ok.End()

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}

	failed := spans[0]
	if failed.Status().Code != codes.Error || failed.Status().Description != "boom" {
		t.Errorf("status = %+v, want Error(boom)", failed.Status())
	}
	if len(failed.Events()) != 1 {
		t.Errorf("got %d events, want 1 recorded error", len(failed.Events()))
	}
	if !hasAttr(failed.Attributes(), attribute.Bool("error", true)) {
		t.Error("missing error=true attribute")
	}

	if spans[1].Status().Code != codes.Ok {
		t.Errorf("status = %+v, want Ok", spans[1].Status())
	}
	if len(spans[1].Events()) != 0 {
		t.Error("nil error should not record an event")
	}
}

func TestSetCostAttributes(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)

	_, span := tracer.Start(context.Background(), "tollgate.cost")
	SetCostAttributes(span, "openai", "gpt-4o", "standard", 1000, 500, 200, 0.0075)
	SetLimiterAttributes(span, "openai", 10, 2)
	span.End()

	attrs := recorder.Ended()[0].Attributes()
	want := []attribute.KeyValue{
		attribute.String(AttrProvider, "openai"),
		attribute.String(AttrModel, "gpt-4o"),
		attribute.String(AttrTier, "standard"),
		attribute.Int64(AttrTokensInput, 1000),
		attribute.Int64(AttrTokensOutput, 500),
		attribute.Int64(AttrCachedTokens, 200),
		attribute.Float64(AttrCost, 0.0075),
		attribute.String(AttrCostCurrency, "USD"),
		attribute.String(AttrLimiter, "openai"),
		attribute.Int64(AttrLimiterRequests, 10),
		attribute.Int64(AttrLimiterBlocked, 2),
	}
	for _, kv := range want {
		if !hasAttr(attrs, kv) {
			t.Errorf("missing attribute %s=%v", kv.Key, kv.Value.Emit())
		}
	}
}

func hasAttr(attrs []attribute.KeyValue, want attribute.KeyValue) bool {
	for _, kv := range attrs {
		if kv.Key == want.Key && kv.Value == want.Value {
			return true
		}
	}
	return false
}
