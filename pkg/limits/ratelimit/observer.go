package ratelimit

import (
	"context"
	"log/slog"
)

// LogObserver returns callbacks that report limiter activity through logger.
// Blocked attempts are logged at Info, admissions at Debug, and snapshots at
// Debug.
func LogObserver(logger *slog.Logger) (StatusFunc, MonitorFunc) {
	if logger == nil {
		logger = slog.Default()
	}

	status := func(s AttemptStatus) error {
		if s.Acquired {
			logger.Debug("rate limiter admitted request",
				"limiter", s.Limiter,
				"attempt", s.Attempt,
				"wait_ms", s.Wait.Milliseconds(),
			)
			return nil
		}
		logger.Info("rate limiter blocked request",
			"limiter", s.Limiter,
			"attempt", s.Attempt+1,
			"max_attempts", s.MaxRetries+1,
			"backoff_ms", s.Wait.Milliseconds(),
		)
		return nil
	}

	monitor := func(s Snapshot) error {
		if !logger.Enabled(context.Background(), slog.LevelDebug) {
			return nil
		}
		logger.Debug("rate limiter metrics",
			"limiter", s.Name,
			"total", s.TotalRequests,
			"successful", s.SuccessfulRequests,
			"blocked", s.BlockedRequests,
			"failed", s.FailedRequests,
			"p50_wait_ms", s.P50WaitMs,
			"p99_wait_ms", s.P99WaitMs,
			"utilization", s.TokenUtilization,
		)
		return nil
	}

	return status, monitor
}
