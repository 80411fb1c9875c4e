package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"mercator-hq/tollgate/pkg/config"
	"mercator-hq/tollgate/pkg/telemetry/health"
	"mercator-hq/tollgate/pkg/telemetry/logging"
	"mercator-hq/tollgate/pkg/telemetry/metrics"
	"mercator-hq/tollgate/pkg/telemetry/tracing"
)

// healthRequestsPerSecond bounds readiness probes on the telemetry server.
const healthRequestsPerSecond = 10

// Telemetry bundles the logger, metrics collector, tracer and health
// checker built from one TelemetryConfig.
type Telemetry struct {
	config  *config.TelemetryConfig
	logger  *logging.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	health  *health.Checker
}

// New builds every telemetry component. Logs go to w (os.Stderr when nil).
// The logger is installed as the slog default so that packages logging
// through slog.Default pick up the configured level and format.
func New(cfg *config.TelemetryConfig, version string, w io.Writer) (*Telemetry, error) {
	logger, err := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
		Writer:    w,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.SetDefault()

	tracer, err := tracing.New(&cfg.Tracing, version)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	t := &Telemetry{
		config: cfg,
		logger: logger,
		tracer: tracer,
		health: health.New(health.DefaultCheckTimeout, version),
	}
	if cfg.Metrics.IsEnabled() {
		t.metrics = metrics.NewCollector(&cfg.Metrics, nil)
	}
	return t, nil
}

// Logger returns the structured logger.
func (t *Telemetry) Logger() *logging.Logger { return t.logger }

// Metrics returns the metrics collector, or nil when metrics are disabled.
func (t *Telemetry) Metrics() *metrics.Collector { return t.metrics }

// Tracer returns the tracer. It is noop when tracing is disabled.
func (t *Telemetry) Tracer() *tracing.Tracer { return t.tracer }

// Health returns the health checker.
func (t *Telemetry) Health() *health.Checker { return t.health }

// Handler returns the telemetry HTTP handler serving metrics and health
// endpoints at their configured paths. Incoming trace context is honored.
func (t *Telemetry) Handler() http.Handler {
	mux := http.NewServeMux()
	if t.metrics != nil {
		mux.Handle(t.config.Metrics.Path, t.metrics.Handler())
	}
	health.Mount(mux, t.health, t.config.Health, healthRequestsPerSecond)
	return tracing.HTTPMiddleware(mux)
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.tracer.Shutdown(ctx)
}
