package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/tollgate/pkg/cli"
	"mercator-hq/tollgate/pkg/config"
	"mercator-hq/tollgate/pkg/limits/storage"
	"mercator-hq/tollgate/pkg/processing/costs"
)

func testServeConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Limiters: map[string]config.LimiterConfig{
			"openai": {RequestsPerMinute: 60},
		},
	}
	config.ApplyDefaults(cfg)
	cfg.Storage.Backend = "sqlite"
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "tollgate.db")
	cfg.Telemetry.Metrics.ListenAddress = "127.0.0.1:0"
	cfg.Snapshots.Schedule = "@every 1h"
	return cfg
}

func TestApp_ServeAndFlush(t *testing.T) {
	cfg := testServeConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, io.Discard)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}

	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- a.run(ctx, func(addr net.Addr) { addrCh <- addr })
	}()

	var addr net.Addr
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("run() returned early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	if _, err := a.accountant.RecordUsageEvent(ctx, costs.UsageEvent{
		Provider:     "openai",
		Model:        "gpt-4o",
		InputTokens:  1000,
		OutputTokens: 500,
	}); err != nil {
		t.Fatalf("RecordUsageEvent() error = %v", err)
	}

	tests := []struct {
		path     string
		contains string
	}{
		{path: "/metrics", contains: "tollgate_"},
		{path: "/health", contains: `"status"`},
		{path: "/ready", contains: `"pricing"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get("http://" + addr.String() + tt.path)
			if err != nil {
				t.Fatalf("GET %s: %v", tt.path, err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != http.StatusOK {
				t.Errorf("GET %s status = %d, body = %s", tt.path, resp.StatusCode, body)
			}
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("GET %s body missing %q", tt.path, tt.contains)
			}
		})
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop")
	}

	backend, err := storage.NewSQLiteBackend(cfg.Storage.SQLite.Path)
	if err != nil {
		t.Fatalf("reopen storage: %v", err)
	}
	defer backend.Close()

	summary, err := backend.LatestUsageSummary(context.Background())
	if err != nil {
		t.Fatalf("LatestUsageSummary() error = %v", err)
	}
	if summary == nil || summary.TotalCalls != 1 {
		t.Fatalf("flushed summary = %+v, want 1 call", summary)
	}
	snap, err := backend.LatestLimiterSnapshot(context.Background(), "openai")
	if err != nil || snap == nil {
		t.Errorf("LatestLimiterSnapshot() = %v, %v", snap, err)
	}
}

func TestNewApp_RestoresSummary(t *testing.T) {
	cfg := testServeConfig(t)

	backend, err := storage.NewSQLiteBackend(cfg.Storage.SQLite.Path)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	saved := costs.UsageSummary{TotalCost: 1.25, TotalCalls: 3, GeneratedAt: time.Now()}
	if err := backend.SaveUsageSummary(context.Background(), saved); err != nil {
		t.Fatalf("SaveUsageSummary() error = %v", err)
	}
	backend.Close()

	a, err := newApp(context.Background(), cfg, io.Discard)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.close()

	got := a.accountant.UsageSummary()
	if got.TotalCalls != 3 || got.TotalCost != 1.25 {
		t.Errorf("restored summary = %+v", got)
	}
}

func TestOpenBackend(t *testing.T) {
	cfg := config.Default().Storage

	backend, err := openBackend(cfg, nil)
	if err != nil {
		t.Fatalf("openBackend(memory) error = %v", err)
	}
	backend.Close()

	cfg.Backend = "postgres"
	if _, err := openBackend(cfg, nil); cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("openBackend(postgres) exit code = %d, want %d", cli.ExitCode(err), cli.ExitConfig)
	}
}

func TestServeCommand_DryRun(t *testing.T) {
	cfgPath := writeFile(t, "tollgate.yaml", testConfig)

	out, err := executeCommand(t, "serve", "--config", cfgPath, "--dry-run", "--log-level", "error")
	if err != nil {
		t.Fatalf("serve --dry-run error = %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Errorf("output = %q", out)
	}
}
