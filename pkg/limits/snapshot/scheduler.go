package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/tollgate/pkg/limits/ratelimit"
	"mercator-hq/tollgate/pkg/limits/storage"
	"mercator-hq/tollgate/pkg/processing/costs"
)

// Defaults for Config.
const (
	DefaultSchedule     = "@every 1m"
	DefaultRetention    = 30 * 24 * time.Hour
	DefaultFlushTimeout = 5 * time.Second
)

// Config configures a Scheduler.
type Config struct {
	// Schedule is a cron expression or descriptor. Default: "@every 1m".
	Schedule string

	// Retention is how long snapshots and usage events are kept. Zero
	// disables pruning.
	Retention time.Duration

	// FlushOnStop writes a final snapshot when Stop is called.
	FlushOnStop bool
}

// Result summarizes one run.
type Result struct {
	LimiterSnapshots int
	SummarySaved     bool
	Pruned           int
}

// Scheduler persists snapshots on a cron schedule.
type Scheduler struct {
	backend    storage.Backend
	limiters   *ratelimit.Registry
	accountant *costs.Accountant
	cfg        Config
	now        func() time.Time

	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a scheduler writing to backend. Either source may be nil.
func NewScheduler(backend storage.Backend, limiters *ratelimit.Registry, accountant *costs.Accountant, cfg Config) *Scheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	return &Scheduler{
		backend:    backend,
		limiters:   limiters,
		accountant: accountant,
		cfg:        cfg,
		now:        time.Now,
		cron:       cron.New(),
		logger:     slog.Default().With("component", "snapshot.scheduler"),
	}
}

// SetLogger replaces the scheduler's logger.
func (s *Scheduler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Start validates the schedule and begins running snapshots. The scheduler
// stops when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("snapshot scheduler already running")
	}

	if _, err := cron.ParseStandard(s.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.cfg.Schedule, err)
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.run(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule snapshots: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("snapshot scheduler started",
		"schedule", s.cfg.Schedule,
		"retention", s.cfg.Retention,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler, waits for a running snapshot to finish and, if
// configured, writes a final snapshot.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	<-s.cron.Stop().Done()
	s.running = false

	if s.cfg.FlushOnStop {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultFlushTimeout)
		defer cancel()
		s.run(ctx)
	}

	s.logger.Info("snapshot scheduler stopped")
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled run, or nil when not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

// RunOnce takes one snapshot immediately. Individual save failures are
// collected and returned together; the remaining work still runs.
func (s *Scheduler) RunOnce(ctx context.Context) (Result, error) {
	var (
		result Result
		errs   []error
	)

	if s.limiters != nil {
		for _, snap := range s.limiters.Snapshots() {
			if err := s.backend.SaveLimiterSnapshot(ctx, snap); err != nil {
				errs = append(errs, fmt.Errorf("limiter %s: %w", snap.Name, err))
				continue
			}
			result.LimiterSnapshots++
		}
	}

	if s.accountant != nil {
		if err := s.backend.SaveUsageSummary(ctx, s.accountant.UsageSummary()); err != nil {
			errs = append(errs, fmt.Errorf("usage summary: %w", err))
		} else {
			result.SummarySaved = true
		}
	}

	if s.cfg.Retention > 0 {
		pruned, err := s.backend.Cleanup(ctx, s.now().Add(-s.cfg.Retention))
		if err != nil {
			errs = append(errs, fmt.Errorf("cleanup: %w", err))
		}
		result.Pruned = pruned
	}

	return result, errors.Join(errs...)
}

func (s *Scheduler) run(ctx context.Context) {
	result, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("snapshot failed", "error", err)
	}
	s.logger.Debug("snapshot completed",
		"limiters", result.LimiterSnapshots,
		"summary", result.SummarySaved,
		"pruned", result.Pruned,
	)
}
