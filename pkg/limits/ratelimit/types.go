package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by NewAdmissionLimiter for unusable settings.
var ErrInvalidConfig = errors.New("invalid rate limiter config")

// Defaults applied by NewAdmissionLimiter to zero-valued fields.
const (
	// DefaultWaitWindow is the number of recent wait times kept for percentiles.
	DefaultWaitWindow = 1000

	// DefaultJitter is the backoff jitter fraction (±10%).
	DefaultJitter = 0.10
)

// AdmissionConfig configures an AdmissionLimiter.
type AdmissionConfig struct {
	// RequestsPerMinute is the bucket capacity and steady-state rate. Must be > 0.
	RequestsPerMinute int `json:"requests_per_minute"`

	// MaxRetries is the number of retries after the first attempt. Must be >= 0.
	MaxRetries int `json:"max_retries"`

	// InitialBackoff is the delay before the first retry; it doubles per
	// attempt. Must be > 0.
	InitialBackoff time.Duration `json:"initial_backoff"`

	// MaxBackoff caps a single backoff delay. Zero means no cap.
	MaxBackoff time.Duration `json:"max_backoff,omitempty"`

	// WaitWindow bounds the wait-time sample used for percentiles.
	// Zero uses DefaultWaitWindow.
	WaitWindow int `json:"wait_window"`

	// Jitter is the relative backoff jitter in [0, 1). Nil uses DefaultJitter;
	// an explicit 0 disables jitter.
	Jitter *float64 `json:"jitter,omitempty"`
}

// JitterOf returns a pointer to v for AdmissionConfig.Jitter.
func JitterOf(v float64) *float64 {
	return &v
}

func (c *AdmissionConfig) applyDefaults() {
	if c.WaitWindow == 0 {
		c.WaitWindow = DefaultWaitWindow
	}
	if c.Jitter == nil {
		c.Jitter = JitterOf(DefaultJitter)
	} else {
		c.Jitter = JitterOf(*c.Jitter)
	}
}

// jitter returns the effective jitter fraction.
func (c AdmissionConfig) jitter() float64 {
	if c.Jitter == nil {
		return DefaultJitter
	}
	return *c.Jitter
}

// Validate checks the configuration.
func (c AdmissionConfig) Validate() error {
	switch {
	case c.RequestsPerMinute <= 0:
		return fmt.Errorf("%w: requests_per_minute must be positive, got %d", ErrInvalidConfig, c.RequestsPerMinute)
	case c.MaxRetries < 0:
		return fmt.Errorf("%w: max_retries must be non-negative, got %d", ErrInvalidConfig, c.MaxRetries)
	case c.InitialBackoff <= 0:
		return fmt.Errorf("%w: initial_backoff must be positive, got %s", ErrInvalidConfig, c.InitialBackoff)
	case c.MaxBackoff < 0:
		return fmt.Errorf("%w: max_backoff must be non-negative, got %s", ErrInvalidConfig, c.MaxBackoff)
	case c.WaitWindow < 0:
		return fmt.Errorf("%w: wait_window must be non-negative, got %d", ErrInvalidConfig, c.WaitWindow)
	case c.Jitter != nil && !(*c.Jitter >= 0 && *c.Jitter < 1):
		return fmt.Errorf("%w: jitter must be in [0, 1), got %v", ErrInvalidConfig, *c.Jitter)
	}
	return nil
}

// AttemptStatus describes one Acquire attempt.
type AttemptStatus struct {
	// Limiter is the limiter name.
	Limiter string

	// Attempt is the zero-based attempt index.
	Attempt int

	// MaxRetries is the configured retry budget.
	MaxRetries int

	// Acquired reports whether this attempt obtained a token.
	Acquired bool

	// Wait is the time since the call started when Acquired is true, and the
	// backoff about to be slept otherwise. It is zero for a final failed attempt.
	Wait time.Duration
}

// StatusFunc is called synchronously after every Acquire attempt.
// Errors and panics are logged and never affect the acquisition outcome.
type StatusFunc func(AttemptStatus) error

// MonitorFunc is called synchronously with the limiter metrics after every
// Acquire call. Errors and panics are logged and never affect the outcome.
type MonitorFunc func(Snapshot) error

// Snapshot is a point-in-time copy of an AdmissionLimiter's metrics.
type Snapshot struct {
	Name string `json:"name"`

	TotalRequests      int64 `json:"total_requests"`
	SuccessfulRequests int64 `json:"successful_requests"`
	FailedRequests     int64 `json:"failed_requests"`

	// BlockedRequests counts requests that found the bucket empty at least
	// once. BlockedAttempts counts every empty-bucket attempt.
	BlockedRequests int64 `json:"blocked_requests"`
	BlockedAttempts int64 `json:"blocked_attempts"`

	// CancelledRequests counts failures caused by context cancellation.
	CancelledRequests int64 `json:"cancelled_requests"`

	// CallbackFailures counts status/monitor callbacks that errored or panicked.
	CallbackFailures int64 `json:"callback_failures"`

	SuccessRate float64 `json:"success_rate"`
	BlockRate   float64 `json:"block_rate"`

	// Wait-time statistics over the most recent WaitWindow successes.
	AvgWaitMs float64 `json:"avg_wait_ms"`
	P50WaitMs float64 `json:"p50_wait_ms"`
	P90WaitMs float64 `json:"p90_wait_ms"`
	P99WaitMs float64 `json:"p99_wait_ms"`
	MaxWaitMs float64 `json:"max_wait_ms"`
	WaitCount int     `json:"wait_count"`

	CurrentTokens    float64 `json:"current_tokens"`
	Capacity         float64 `json:"capacity"`
	TokenUtilization float64 `json:"token_utilization"`

	// ObservedRPM is the number of requests admitted in the last minute.
	ObservedRPM int64 `json:"observed_rpm"`

	// RetryHistogram maps the attempt index on which a call finished to the
	// number of calls.
	RetryHistogram map[int]int64 `json:"retry_histogram"`

	FirstRequestAt time.Time `json:"first_request_at"`
	LastRequestAt  time.Time `json:"last_request_at"`
	TakenAt        time.Time `json:"taken_at"`
}
