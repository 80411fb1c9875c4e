// Package telemetry wires Tollgate's observability stack.
//
// # Components
//
//   - logging: slog-based structured logging with context fields
//   - metrics: Prometheus limiter and cost metrics
//   - tracing: OpenTelemetry tracing exported over OTLP gRPC
//   - health: liveness and readiness endpoints
//
// # Usage
//
//	tel, err := telemetry.New(&cfg.Telemetry, version, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	srv := &http.Server{Addr: cfg.Telemetry.Metrics.ListenAddress, Handler: tel.Handler()}
package telemetry
