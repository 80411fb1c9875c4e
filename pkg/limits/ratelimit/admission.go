package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const tracerName = "mercator-hq/tollgate/pkg/limits/ratelimit"

// AdmissionLimiter gates outbound requests with a token bucket.
//
// Capacity equals RequestsPerMinute and the bucket refills at
// RequestsPerMinute/60 tokens per second. Acquire makes up to MaxRetries+1
// attempts to take a token, sleeping with exponential backoff and jitter
// between attempts. Running out of retries is reported as false, not as an
// error.
//
// # Thread Safety
//
// AdmissionLimiter is safe for concurrent use. The bucket lock is held only
// for refill-and-take; backoff sleeps happen without any lock held, so
// callers in backoff never delay other callers.
type AdmissionLimiter struct {
	name   string
	cfg    AdmissionConfig
	bucket *TokenBucket
	clock  Clock
	rand   func() float64
	logger *slog.Logger
	tracer trace.Tracer

	onStatus  []StatusFunc
	onMonitor []MonitorFunc

	metrics *limiterMetrics

	// callbackLog throttles callback failure logs.
	callbackLog *rate.Sometimes
}

// Option configures an AdmissionLimiter.
type Option func(*AdmissionLimiter)

// WithClock sets the time source. Defaults to SystemClock.
func WithClock(clock Clock) Option {
	return func(l *AdmissionLimiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithRand sets the source of uniform values in [0, 1) used for jitter.
func WithRand(fn func() float64) Option {
	return func(l *AdmissionLimiter) {
		if fn != nil {
			l.rand = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *AdmissionLimiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithTracer sets the tracer. Defaults to the global otel tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(l *AdmissionLimiter) {
		if tracer != nil {
			l.tracer = tracer
		}
	}
}

// WithStatusCallback adds a callback invoked after every attempt.
func WithStatusCallback(fn StatusFunc) Option {
	return func(l *AdmissionLimiter) {
		if fn != nil {
			l.onStatus = append(l.onStatus, fn)
		}
	}
}

// WithMonitorCallback adds a callback invoked with the metrics snapshot after
// every Acquire call.
func WithMonitorCallback(fn MonitorFunc) Option {
	return func(l *AdmissionLimiter) {
		if fn != nil {
			l.onMonitor = append(l.onMonitor, fn)
		}
	}
}

// NewAdmissionLimiter creates a limiter with a full bucket.
func NewAdmissionLimiter(name string, cfg AdmissionConfig, opts ...Option) (*AdmissionLimiter, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &AdmissionLimiter{
		name:        name,
		cfg:         cfg,
		clock:       SystemClock{},
		rand:        rand.Float64,
		logger:      slog.Default().With("component", "ratelimit"),
		tracer:      otel.Tracer(tracerName),
		metrics:     newLimiterMetrics(cfg.WaitWindow),
		callbackLog: &rate.Sometimes{First: 3, Interval: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("limiter", name)

	capacity := float64(cfg.RequestsPerMinute)
	l.bucket = NewTokenBucket(capacity, capacity/60, l.clock)

	return l, nil
}

// Name returns the limiter name.
func (l *AdmissionLimiter) Name() string {
	return l.name
}

// Config returns the effective configuration.
func (l *AdmissionLimiter) Config() AdmissionConfig {
	cfg := l.cfg
	cfg.Jitter = JitterOf(cfg.jitter())
	return cfg
}

// Available returns the tokens currently available.
func (l *AdmissionLimiter) Available() float64 {
	return l.bucket.Available()
}

// Acquire waits for permission to issue one request.
//
// It returns true once a token has been taken, or false when every attempt
// found the bucket empty or ctx was cancelled during a backoff sleep. A
// cancelled call never consumes a token.
func (l *AdmissionLimiter) Acquire(ctx context.Context) bool {
	ctx, span := l.tracer.Start(ctx, "ratelimit.acquire",
		trace.WithAttributes(attribute.String("ratelimit.limiter", l.name)),
	)
	defer span.End()

	start := l.clock.Now()
	l.metrics.begin(start)

	acquired, attempt, cancelled := l.acquire(ctx, start)

	span.SetAttributes(
		attribute.Bool("ratelimit.acquired", acquired),
		attribute.Int("ratelimit.attempts", attempt+1),
		attribute.Bool("ratelimit.cancelled", cancelled),
	)

	l.notifyMonitor()
	return acquired
}

// acquire runs the attempt loop and returns the outcome and final attempt index.
func (l *AdmissionLimiter) acquire(ctx context.Context, start time.Time) (acquired bool, attempt int, cancelled bool) {
	if ctx.Err() != nil {
		l.metrics.failure(0, true)
		return false, 0, true
	}

	for attempt = 0; attempt <= l.cfg.MaxRetries; attempt++ {
		if l.bucket.Take(1) {
			now := l.clock.Now()
			wait := now.Sub(start)
			l.metrics.success(now, attempt, wait)
			l.notifyStatus(AttemptStatus{Attempt: attempt, Acquired: true, Wait: wait})
			return true, attempt, false
		}

		l.metrics.blockedAttempt(attempt == 0)

		if attempt == l.cfg.MaxRetries {
			l.notifyStatus(AttemptStatus{Attempt: attempt})
			break
		}

		backoff := l.backoff(attempt)
		l.notifyStatus(AttemptStatus{Attempt: attempt, Wait: backoff})

		if err := l.clock.Sleep(ctx, backoff); err != nil {
			l.metrics.failure(attempt, true)
			l.logger.DebugContext(ctx, "acquire cancelled during backoff",
				"attempt", attempt,
				"error", err,
			)
			return false, attempt, true
		}
	}

	l.metrics.failure(l.cfg.MaxRetries, false)
	l.logger.DebugContext(ctx, "acquire exhausted retries", "max_retries", l.cfg.MaxRetries)
	return false, l.cfg.MaxRetries, false
}

// backoff returns InitialBackoff * 2^attempt with ±Jitter applied, capped by
// MaxBackoff when set.
func (l *AdmissionLimiter) backoff(attempt int) time.Duration {
	base := float64(l.cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	d := base * (1 + l.cfg.jitter()*(2*l.rand()-1))

	if l.cfg.MaxBackoff > 0 && d > float64(l.cfg.MaxBackoff) {
		d = float64(l.cfg.MaxBackoff)
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Metrics returns a snapshot of the limiter's metrics.
func (l *AdmissionLimiter) Metrics() Snapshot {
	now := l.clock.Now()
	s := Snapshot{
		Name:          l.name,
		CurrentTokens: l.bucket.Available(),
		Capacity:      l.bucket.Capacity(),
		TakenAt:       now,
	}
	if s.Capacity > 0 {
		s.TokenUtilization = 1 - s.CurrentTokens/s.Capacity
	}
	l.metrics.fill(&s, now)
	return s
}

// Reset refills the bucket and clears all metrics.
func (l *AdmissionLimiter) Reset() {
	l.bucket.Reset()
	l.metrics.reset()
}

func (l *AdmissionLimiter) notifyStatus(status AttemptStatus) {
	if len(l.onStatus) == 0 {
		return
	}
	status.Limiter = l.name
	status.MaxRetries = l.cfg.MaxRetries
	for _, fn := range l.onStatus {
		l.invoke("status", func() error { return fn(status) })
	}
}

func (l *AdmissionLimiter) notifyMonitor() {
	if len(l.onMonitor) == 0 {
		return
	}
	snapshot := l.Metrics()
	for _, fn := range l.onMonitor {
		l.invoke("monitor", func() error { return fn(snapshot) })
	}
}

// invoke runs a callback, converting panics to errors. Failures are counted
// and logged at a throttled rate.
func (l *AdmissionLimiter) invoke(kind string, fn func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("callback panic: %v", r)
			}
		}()
		return fn()
	}()
	if err == nil {
		return
	}

	failures := l.metrics.callbackFailure()
	l.callbackLog.Do(func() {
		l.logger.Warn("rate limiter callback failed",
			"callback", kind,
			"failures", failures,
			"error", err,
		)
	})
}

// IsInvalidConfig reports whether err is a configuration error.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}
