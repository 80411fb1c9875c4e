package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"mercator-hq/tollgate/pkg/cli"
	"mercator-hq/tollgate/pkg/config"
	"mercator-hq/tollgate/pkg/limits/ratelimit"
	"mercator-hq/tollgate/pkg/telemetry/tracing"
)

func disabledTracer(t *testing.T) *tracing.Tracer {
	t.Helper()
	tracer, err := tracing.New(&config.TracingConfig{}, "test")
	if err != nil {
		t.Fatalf("tracing.New() error = %v", err)
	}
	return tracer
}

func TestSimulate(t *testing.T) {
	var progress bytes.Buffer
	snapshot, err := simulate(context.Background(), disabledTracer(t), "openai",
		config.LimiterConfig{RequestsPerMinute: 60}, 10, 4, cli.NewProgressReporter(&progress, "Requests"))
	if err != nil {
		t.Fatalf("simulate() error = %v", err)
	}

	if snapshot.Name != "openai" {
		t.Errorf("name = %q", snapshot.Name)
	}
	if snapshot.TotalRequests != 10 || snapshot.SuccessfulRequests != 10 {
		t.Errorf("total/successful = %d/%d, want 10/10", snapshot.TotalRequests, snapshot.SuccessfulRequests)
	}
	if snapshot.BlockedRequests != 0 {
		t.Errorf("blocked = %d, want 0 within burst", snapshot.BlockedRequests)
	}
	if !strings.Contains(progress.String(), "(10/10)") {
		t.Errorf("progress output = %q", progress.String())
	}
}

func TestSimulate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snapshot, err := simulate(ctx, disabledTracer(t), "openai",
		config.LimiterConfig{RequestsPerMinute: 60}, 1000, 2, nil)
	if err != nil {
		t.Fatalf("simulate() error = %v", err)
	}
	if snapshot.TotalRequests >= 1000 {
		t.Errorf("total = %d, expected the run to stop early", snapshot.TotalRequests)
	}
}

func TestSimulate_InvalidLimiter(t *testing.T) {
	_, err := simulate(context.Background(), disabledTracer(t), "bad",
		config.LimiterConfig{RequestsPerMinute: 0}, 1, 1, nil)
	if !ratelimit.IsInvalidConfig(err) {
		t.Errorf("err = %v, want invalid config", err)
	}
}

func TestSimulateCommand(t *testing.T) {
	out, err := executeCommand(t, "simulate", "--limiter", "adhoc", "--rpm", "600", "--requests", "3", "-o", "json")
	if err != nil {
		t.Fatalf("simulate error = %v", err)
	}

	var got ratelimit.Snapshot
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.Name != "adhoc" || got.SuccessfulRequests != 3 {
		t.Errorf("snapshot = %+v", got)
	}
	if got.Capacity != 600 {
		t.Errorf("capacity = %v, want 600", got.Capacity)
	}
}

func TestSimulateCommand_UnknownLimiter(t *testing.T) {
	_, err := executeCommand(t, "simulate", "--limiter", "missing")
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("err = %v, want config error", err)
	}
}

func TestSimulateCommand_TextRows(t *testing.T) {
	out, err := executeCommand(t, "simulate", "--limiter", "adhoc", "--rpm", "60", "--requests", "2", "--progress=false")
	if err != nil {
		t.Fatalf("simulate error = %v", err)
	}
	for _, want := range []string{"total_requests", "p99_wait_ms", "finished_on_attempt_0"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
