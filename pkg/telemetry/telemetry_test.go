package telemetry

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercator-hq/tollgate/pkg/config"
)

func TestNew(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.Logging.Level = "debug"

	var buf bytes.Buffer
	tel, err := New(&cfg, "1.0.0", &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tel.Shutdown(context.Background())

	if tel.Metrics() == nil {
		t.Error("metrics should be enabled by default")
	}
	if tel.Tracer().Enabled() {
		t.Error("tracing should be disabled by default")
	}

	tel.Logger().Info("hello")
	if !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("log output = %q", buf.String())
	}
}

func TestNew_InvalidLogLevel(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.Logging.Level = "loud"

	if _, err := New(&cfg, "", &bytes.Buffer{}); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestHandler(t *testing.T) {
	disabled := false

	tests := []struct {
		name     string
		mutate   func(*config.TelemetryConfig)
		path     string
		wantCode int
	}{
		{name: "metrics", path: "/metrics", wantCode: http.StatusOK},
		{name: "liveness", path: "/health", wantCode: http.StatusOK},
		{name: "readiness", path: "/ready", wantCode: http.StatusOK},
		{
			name:     "metrics disabled",
			mutate:   func(c *config.TelemetryConfig) { c.Metrics.Enabled = &disabled },
			path:     "/metrics",
			wantCode: http.StatusNotFound,
		},
		{
			name:     "health disabled",
			mutate:   func(c *config.TelemetryConfig) { c.Health.Enabled = &disabled },
			path:     "/health",
			wantCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default().Telemetry
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			tel, err := New(&cfg, "", &bytes.Buffer{})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			rec := httptest.NewRecorder()
			tel.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.wantCode)
			}
		})
	}
}
