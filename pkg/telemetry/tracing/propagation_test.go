package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const testTraceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

func useW3CPropagator(t *testing.T) {
	t.Helper()
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })
}

func TestExtractInject(t *testing.T) {
	useW3CPropagator(t)

	in := http.Header{}
	in.Set("traceparent", testTraceParent)

	ctx := Extract(context.Background(), in)
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || !sc.IsRemote() {
		t.Fatalf("extracted span context = %+v, want valid remote", sc)
	}
	if got := sc.TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("TraceID = %s", got)
	}
	if !sc.IsSampled() {
		t.Error("sampled flag was lost")
	}

	out := http.Header{}
	Inject(ctx, out)
	if got := out.Get("traceparent"); got != testTraceParent {
		t.Errorf("injected traceparent = %q, want %q", got, testTraceParent)
	}
}

func TestExtract_NoHeaders(t *testing.T) {
	useW3CPropagator(t)

	ctx := Extract(context.Background(), http.Header{})
	if trace.SpanContextFromContext(ctx).IsValid() {
		t.Error("expected no span context without headers")
	}
}

func TestHTTPMiddleware(t *testing.T) {
	useW3CPropagator(t)

	var seen string
	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("with traceparent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.Header.Set("traceparent", testTraceParent)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if seen != "4bf92f3577b34da6a3ce929d0e0e4736" {
			t.Errorf("handler saw trace %q", seen)
		}
		if got := rec.Header().Get("X-Trace-ID"); got != seen {
			t.Errorf("X-Trace-ID = %q, want %q", got, seen)
		}
		if got := rec.Header().Get("X-Span-ID"); got != "00f067aa0ba902b7" {
			t.Errorf("X-Span-ID = %q", got)
		}
	})

	t.Run("without traceparent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if seen != "" {
			t.Errorf("handler saw trace %q, want none", seen)
		}
		if rec.Header().Get("X-Trace-ID") != "" {
			t.Error("X-Trace-ID should not be set")
		}
	})
}
