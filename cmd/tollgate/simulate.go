package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/spf13/cobra"

	"mercator-hq/tollgate/pkg/cli"
	"mercator-hq/tollgate/pkg/config"
	"mercator-hq/tollgate/pkg/limits/ratelimit"
	"mercator-hq/tollgate/pkg/telemetry/tracing"
)

var simulateFlags struct {
	limiter     string
	requests    int
	concurrency int
	rpm         int
	progress    bool
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Drive a limiter with synthetic requests",
	Long: `Run Acquire against a configured limiter and print its metrics.

Requests are spread over --concurrency workers. A limiter that is not in the
config can be simulated by giving --rpm. Ctrl-C stops the run and prints the
metrics collected so far.

Examples:
  tollgate simulate --limiter openai --requests 100 --concurrency 8
  tollgate simulate --limiter test --rpm 30 --requests 40 -o json`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simulateFlags.limiter, "limiter", "", "limiter name (required)")
	simulateCmd.Flags().IntVar(&simulateFlags.requests, "requests", 100, "number of requests")
	simulateCmd.Flags().IntVar(&simulateFlags.concurrency, "concurrency", 1, "concurrent workers")
	simulateCmd.Flags().IntVar(&simulateFlags.rpm, "rpm", 0, "override requests per minute")
	simulateCmd.Flags().BoolVar(&simulateFlags.progress, "progress", true, "show a progress bar on stderr")
	_ = simulateCmd.MarkFlagRequired("limiter")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simulateFlags.requests <= 0 {
		return fmt.Errorf("--requests must be positive")
	}
	if simulateFlags.concurrency <= 0 {
		return fmt.Errorf("--concurrency must be positive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limiterCfg, ok := cfg.Limiters[simulateFlags.limiter]
	if !ok && simulateFlags.rpm == 0 {
		return cli.NewConfigError("limiters."+simulateFlags.limiter, "limiter is not configured; pass --rpm to simulate it", nil)
	}
	if simulateFlags.rpm > 0 {
		limiterCfg.RequestsPerMinute = simulateFlags.rpm
	}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewConfigError("telemetry.tracing", "failed to initialize tracing", err)
	}
	defer tracer.Shutdown(context.Background())

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	snapshot, err := simulate(ctx, tracer, simulateFlags.limiter, limiterCfg, simulateFlags.requests, simulateFlags.concurrency, progressFor(cmd))
	if err != nil {
		return cli.NewCommandError("simulate", err)
	}
	return printResult(cmd, snapshotResult{snapshot})
}

func progressFor(cmd *cobra.Command) cli.ProgressReporter {
	if !simulateFlags.progress || outputFormat != string(cli.FormatText) {
		return nil
	}
	return cli.NewProgressReporter(cmd.ErrOrStderr(), "Requests")
}

// simulate issues requests through a fresh limiter and returns its final
// metrics. Workers stop early when ctx is canceled.
func simulate(ctx context.Context, tracer *tracing.Tracer, name string, lc config.LimiterConfig, requests, concurrency int, progress cli.ProgressReporter) (ratelimit.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "tollgate.simulate")
	defer span.End()

	statusFn, monitorFn := ratelimit.LogObserver(nil)
	limiter, err := ratelimit.NewAdmissionLimiter(name, lc.Admission(),
		ratelimit.WithStatusCallback(statusFn),
		ratelimit.WithMonitorCallback(monitorFn),
		ratelimit.WithTracer(tracer.Named("mercator-hq/tollgate/pkg/limits/ratelimit")),
	)
	if err != nil {
		tracing.SetError(span, err)
		return ratelimit.Snapshot{}, err
	}

	if progress != nil {
		progress.Start(int64(requests))
	}

	jobs := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				limiter.Acquire(ctx)
				if progress != nil {
					progress.Increment()
				}
			}
		}()
	}

feed:
	for i := 0; i < requests; i++ {
		select {
		case jobs <- struct{}{}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if progress != nil {
		progress.Finish()
	}

	snapshot := limiter.Metrics()
	tracing.SetLimiterAttributes(span, name, snapshot.TotalRequests, snapshot.BlockedRequests)
	tracing.SetStatus(span, nil)
	return snapshot, nil
}

type snapshotResult struct {
	ratelimit.Snapshot
}

func (r snapshotResult) Header() []string {
	return []string{"METRIC", "VALUE"}
}

func (r snapshotResult) Rows() [][]string {
	i := func(n int64) string { return strconv.FormatInt(n, 10) }
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

	rows := [][]string{
		{"limiter", r.Name},
		{"total_requests", i(r.TotalRequests)},
		{"successful_requests", i(r.SuccessfulRequests)},
		{"failed_requests", i(r.FailedRequests)},
		{"cancelled_requests", i(r.CancelledRequests)},
		{"blocked_requests", i(r.BlockedRequests)},
		{"blocked_attempts", i(r.BlockedAttempts)},
		{"success_rate", f(r.SuccessRate)},
		{"block_rate", f(r.BlockRate)},
		{"avg_wait_ms", f(r.AvgWaitMs)},
		{"p50_wait_ms", f(r.P50WaitMs)},
		{"p90_wait_ms", f(r.P90WaitMs)},
		{"p99_wait_ms", f(r.P99WaitMs)},
		{"max_wait_ms", f(r.MaxWaitMs)},
		{"current_tokens", f(r.CurrentTokens)},
		{"capacity", f(r.Capacity)},
		{"token_utilization", f(r.TokenUtilization)},
		{"observed_rpm", i(r.ObservedRPM)},
	}

	attempts := make([]int, 0, len(r.RetryHistogram))
	for a := range r.RetryHistogram {
		attempts = append(attempts, a)
	}
	sort.Ints(attempts)
	for _, a := range attempts {
		rows = append(rows, []string{"finished_on_attempt_" + strconv.Itoa(a), i(r.RetryHistogram[a])})
	}
	return rows
}
