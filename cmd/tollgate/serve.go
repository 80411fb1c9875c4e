package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/tollgate/pkg/cli"
	"mercator-hq/tollgate/pkg/config"
	"mercator-hq/tollgate/pkg/limits/ratelimit"
	"mercator-hq/tollgate/pkg/limits/snapshot"
	"mercator-hq/tollgate/pkg/limits/storage"
	"mercator-hq/tollgate/pkg/processing/costs"
	"mercator-hq/tollgate/pkg/processing/pricing"
	"mercator-hq/tollgate/pkg/telemetry"
	"mercator-hq/tollgate/pkg/telemetry/health"
)

const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run limiters with metrics, health checks and snapshots",
	Long: `Start the configured limiters and the cost accountant, expose Prometheus
metrics and health endpoints, persist snapshots on a schedule and reload the
pricing file when it changes. Runs until SIGINT or SIGTERM.

Examples:
  # Start with a config file
  tollgate serve --config /etc/tollgate/tollgate.yaml

  # Override the listen address
  tollgate serve --listen 0.0.0.0:9090

  # Validate and build everything without serving
  tollgate serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override telemetry listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "build all components and exit")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Telemetry.Metrics.ListenAddress = serveFlags.listenAddress
	}
	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if serveFlags.dryRun {
		a.close()
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	if err := a.run(ctx, func(addr net.Addr) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Tollgate %s\n", Version)
		fmt.Fprintf(out, "✓ Listening on %s\n", addr)
		if a.tel.Metrics() != nil {
			fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", addr, cfg.Telemetry.Metrics.Path)
		}
		if cfg.Telemetry.Health.IsEnabled() {
			fmt.Fprintf(out, "✓ Health endpoint: http://%s%s\n", addr, cfg.Telemetry.Health.LivenessPath)
		}
		fmt.Fprintln(out, "\nPress Ctrl+C to stop")
	}); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}

// app holds the components run by `tollgate serve`.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	tel        *telemetry.Telemetry
	backend    storage.Backend
	accountant *costs.Accountant
	limiters   *ratelimit.Registry
	scheduler  *snapshot.Scheduler
	watcher    *pricing.Watcher
}

// newApp builds every component from cfg. Nothing is started yet.
func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	tel, err := telemetry.New(&cfg.Telemetry, Version, logOut)
	if err != nil {
		return nil, cli.NewConfigError("telemetry", "failed to initialize telemetry", err)
	}
	a := &app{
		cfg:    cfg,
		tel:    tel,
		logger: tel.Logger().WithComponent("serve"),
	}

	table, err := loadPricing(cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	a.backend, err = openBackend(cfg.Storage, tel.Logger().WithComponent("storage"))
	if err != nil {
		a.close()
		return nil, err
	}

	sinks := []costs.UsageSink{a.backend}
	if m := tel.Metrics(); m != nil {
		sinks = append(sinks, m)
	}
	a.accountant = costs.NewAccountant(table,
		costs.WithLogger(tel.Logger().WithComponent("costs")),
		costs.WithSinks(sinks...),
		costs.WithTracer(tel.Tracer().Named("mercator-hq/tollgate/pkg/processing/costs")),
	)

	summary, err := a.backend.LatestUsageSummary(ctx)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to load usage summary: %w", err)
	}
	if summary != nil {
		a.accountant.Restore(*summary)
		a.logger.Info("usage summary restored",
			"total_cost", summary.TotalCost,
			"total_calls", summary.TotalCalls,
			"generated_at", summary.GeneratedAt,
		)
	}

	a.limiters, err = buildLimiters(cfg, tel)
	if err != nil {
		a.close()
		return nil, err
	}

	checker := tel.Health()
	checker.RegisterCheck("storage", health.StorageCheck(a.backend))
	checker.RegisterCheck("pricing", health.PricingCheck(a.accountant))
	checker.RegisterCheck("limiters", health.LimitersCheck(a.limiters, sortedLimiterNames(cfg)))

	if cfg.Pricing.Watch && cfg.Pricing.Path != "" {
		a.watcher, err = pricing.NewWatcher(cfg.Pricing.Path, pricingOptions(cfg), a.accountant.UpdatePricing,
			tel.Logger().WithComponent("pricing.watcher"))
		if err != nil {
			a.close()
			return nil, cli.NewConfigError("pricing.watch", "failed to create pricing watcher", err)
		}
	}

	if cfg.Snapshots.IsEnabled() {
		a.scheduler = snapshot.NewScheduler(a.backend, a.limiters, a.accountant, snapshot.Config{
			Schedule:    cfg.Snapshots.Schedule,
			Retention:   cfg.Snapshots.Retention,
			FlushOnStop: cfg.Snapshots.ShouldFlushOnStop(),
		})
		a.scheduler.SetLogger(tel.Logger().WithComponent("snapshot.scheduler"))
	}

	return a, nil
}

// openBackend opens the configured storage backend.
func openBackend(cfg config.StorageConfig, logger *slog.Logger) (storage.Backend, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryBackendWithConfig(storage.MemoryBackendConfig{
			MaxEvents:    cfg.Memory.MaxEvents,
			MaxSnapshots: cfg.Memory.MaxSnapshots,
		}), nil
	case "sqlite":
		backend, err := storage.NewSQLiteBackendWithConfig(storage.SQLiteBackendConfig{
			DBPath:             cfg.SQLite.Path,
			Driver:             cfg.SQLite.Driver,
			BusyTimeout:        cfg.SQLite.BusyTimeout,
			CheckpointInterval: cfg.SQLite.CheckpointInterval,
			Logger:             logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite storage: %w", err)
		}
		return backend, nil
	default:
		return nil, cli.NewConfigError("storage.backend", fmt.Sprintf("unsupported backend %q", cfg.Backend), nil)
	}
}

// buildLimiters creates one admission limiter per configured entry, wired
// to the log observer and, when enabled, the metrics collector.
func buildLimiters(cfg *config.Config, tel *telemetry.Telemetry) (*ratelimit.Registry, error) {
	registry := ratelimit.NewRegistry()
	logger := tel.Logger().WithComponent("ratelimit")
	statusFn, monitorFn := ratelimit.LogObserver(logger)

	for _, name := range sortedLimiterNames(cfg) {
		opts := []ratelimit.Option{
			ratelimit.WithLogger(logger),
			ratelimit.WithTracer(tel.Tracer().Named("mercator-hq/tollgate/pkg/limits/ratelimit")),
			ratelimit.WithStatusCallback(statusFn),
			ratelimit.WithMonitorCallback(monitorFn),
		}
		if m := tel.Metrics(); m != nil {
			opts = append(opts, ratelimit.WithStatusCallback(m.StatusCallback()))
		}

		limiter, err := ratelimit.NewAdmissionLimiter(name, cfg.Limiters[name].Admission(), opts...)
		if err != nil {
			return nil, cli.NewConfigError("limiters."+name, "invalid limiter", err)
		}
		if err := registry.Register(limiter); err != nil {
			return nil, err
		}
	}

	if m := tel.Metrics(); m != nil {
		if err := m.WatchLimiters(registry); err != nil {
			return nil, fmt.Errorf("failed to register limiter metrics: %w", err)
		}
	}
	return registry, nil
}

func sortedLimiterNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Limiters))
	for name := range cfg.Limiters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// run starts the background components and the telemetry server, then
// blocks until ctx is done or the server fails. ready is called with the
// bound address once the listener is open.
func (a *app) run(ctx context.Context, ready func(net.Addr)) error {
	defer a.close()

	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start pricing watcher: %w", err)
		}
	}
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start snapshot scheduler: %w", err)
		}
	}

	ln, err := net.Listen("tcp", a.cfg.Telemetry.Metrics.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.Telemetry.Metrics.ListenAddress, err)
	}

	srv := &http.Server{
		Handler:           a.tel.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	a.logger.Info("telemetry server started", "address", ln.Addr().String())
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("telemetry server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down telemetry server: %w", err)
	}
	return nil
}

// close stops background components and releases resources. The final
// snapshot is written before the backend is closed.
func (a *app) close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Warn("failed to stop pricing watcher", "error", err)
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Warn("failed to close storage", "error", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.tel.Shutdown(ctx); err != nil {
		a.logger.Warn("failed to flush traces", "error", err)
	}
}
