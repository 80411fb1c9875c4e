package logging

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	ctx = WithRequestID(ctx, "req-123")
	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-123")
	}

	ctx = WithProvider(ctx, "openai")
	if got := GetProvider(ctx); got != "openai" {
		t.Errorf("GetProvider() = %q, want %q", got, "openai")
	}

	ctx = WithModel(ctx, "gpt-4o")
	if got := GetModel(ctx); got != "gpt-4o" {
		t.Errorf("GetModel() = %q, want %q", got, "gpt-4o")
	}

	ctx = WithLimiter(ctx, "gemini")
	if got := GetLimiter(ctx); got != "gemini" {
		t.Errorf("GetLimiter() = %q, want %q", got, "gemini")
	}

	ctx = WithEventID(ctx, "evt-9")
	if got := GetEventID(ctx); got != "evt-9" {
		t.Errorf("GetEventID() = %q, want %q", got, "evt-9")
	}
}

func TestContextKeys_Empty(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		get  func(context.Context) string
	}{
		{"RequestID", GetRequestID},
		{"Provider", GetProvider},
		{"Model", GetModel},
		{"Limiter", GetLimiter},
		{"EventID", GetEventID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.get(ctx); got != "" {
				t.Errorf("%s: expected empty string, got %q", tt.name, got)
			}
		})
	}
}

func TestExtractContextFields(t *testing.T) {
	ctx := WithProvider(WithRequestID(context.Background(), "req-1"), "google")

	fields := extractContextFields(ctx)
	want := []any{"request_id", "req-1", "provider", "google"}
	if len(fields) != len(want) {
		t.Fatalf("fields = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("fields[%d] = %v, want %v", i, fields[i], want[i])
		}
	}

	if got := extractContextFields(context.Background()); len(got) != 0 {
		t.Errorf("empty context produced fields: %v", got)
	}
}

func TestExtractContextFields_Span(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	fields := extractContextFields(ctx)
	found := map[string]bool{}
	for i := 0; i+1 < len(fields); i += 2 {
		found[fields[i].(string)] = true
	}
	if !found["trace_id"] || !found["span_id"] {
		t.Errorf("expected trace_id and span_id, got %v", fields)
	}
}
