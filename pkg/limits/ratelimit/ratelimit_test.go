package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a virtual clock whose Sleep advances time instantly.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration

	// onSleep, when set, runs before a sleep and may return an error.
	onSleep func(d time.Duration) error
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if c.onSleep != nil {
		if err := c.onSleep(d); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

// noJitter makes the jitter factor exactly 1.
func noJitter() float64 { return 0.5 }

func newTestLimiter(t *testing.T, cfg AdmissionConfig, clock *fakeClock, opts ...Option) *AdmissionLimiter {
	t.Helper()
	opts = append([]Option{WithClock(clock), WithRand(noJitter)}, opts...)
	l, err := NewAdmissionLimiter("test", cfg, opts...)
	if err != nil {
		t.Fatalf("NewAdmissionLimiter() error = %v", err)
	}
	return l
}

// ============================================================================
// Token Bucket Tests
// ============================================================================

func TestTokenBucket_TakeAndRefill(t *testing.T) {
	clock := newFakeClock()
	bucket := NewTokenBucket(10, 1, clock)

	for i := 0; i < 10; i++ {
		if !bucket.Take(1) {
			t.Fatalf("Take() #%d failed on a full bucket", i+1)
		}
	}
	if bucket.Take(1) {
		t.Error("Take() succeeded on an empty bucket")
	}

	clock.Advance(500 * time.Millisecond)
	if bucket.Take(1) {
		t.Error("Take() succeeded with only half a token")
	}

	clock.Advance(500 * time.Millisecond)
	if !bucket.Take(1) {
		t.Error("Take() failed after one token refilled")
	}
}

func TestTokenBucket_ImmediateTakesDecrementByOne(t *testing.T) {
	clock := newFakeClock()
	bucket := NewTokenBucket(60, 1, clock)

	bucket.Take(1)
	if got := bucket.Available(); got != 59 {
		t.Errorf("Available() after first take = %v, want 59", got)
	}
	bucket.Take(1)
	if got := bucket.Available(); got != 58 {
		t.Errorf("Available() after second take = %v, want 58", got)
	}
}

func TestTokenBucket_ClampedToCapacity(t *testing.T) {
	clock := newFakeClock()
	bucket := NewTokenBucket(10, 1, clock)

	bucket.Take(5)
	clock.Advance(time.Hour)

	if got := bucket.Available(); got != 10 {
		t.Errorf("Available() = %v, want capacity 10", got)
	}
}

func TestTokenBucket_ClockGoingBackwards(t *testing.T) {
	clock := newFakeClock()
	bucket := NewTokenBucket(10, 1, clock)

	bucket.Take(10)
	clock.Advance(-time.Minute)

	if got := bucket.Available(); got != 0 {
		t.Errorf("Available() = %v, want 0", got)
	}
	if bucket.Take(1) {
		t.Error("Take() should fail when the clock moves backwards")
	}
}

func TestTokenBucket_TimeUntilAvailable(t *testing.T) {
	clock := newFakeClock()
	bucket := NewTokenBucket(2, 2, clock)

	if d := bucket.TimeUntilAvailable(1); d != 0 {
		t.Errorf("TimeUntilAvailable() on full bucket = %v, want 0", d)
	}

	bucket.Take(2)
	if d := bucket.TimeUntilAvailable(1); d != 500*time.Millisecond {
		t.Errorf("TimeUntilAvailable() = %v, want 500ms", d)
	}

	bucket.Reset()
	if got := bucket.Available(); got != 2 {
		t.Errorf("Available() after Reset = %v, want 2", got)
	}
}

// ============================================================================
// Sliding Window Tests
// ============================================================================

func TestSlidingWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sw := NewSlidingWindow(time.Minute, time.Second)

	sw.Add(now, 3)
	sw.Add(now.Add(10*time.Second), 2)

	if got := sw.Sum(now.Add(30 * time.Second)); got != 5 {
		t.Errorf("Sum() = %d, want 5", got)
	}
	if got := sw.Sum(now.Add(65 * time.Second)); got != 2 {
		t.Errorf("Sum() after first bucket expired = %d, want 2", got)
	}
	if got := sw.Sum(now.Add(2 * time.Minute)); got != 0 {
		t.Errorf("Sum() after window = %d, want 0", got)
	}

	sw.Add(now, 1)
	sw.Reset()
	if got := sw.Sum(now); got != 0 {
		t.Errorf("Sum() after Reset = %d, want 0", got)
	}
}

// ============================================================================
// Admission Limiter Tests
// ============================================================================

func TestNewAdmissionLimiter_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     AdmissionConfig
		wantErr bool
	}{
		{name: "valid", cfg: AdmissionConfig{RequestsPerMinute: 60, MaxRetries: 3, InitialBackoff: time.Second}},
		{name: "zero retries", cfg: AdmissionConfig{RequestsPerMinute: 1, InitialBackoff: time.Millisecond}},
		{name: "zero rpm", cfg: AdmissionConfig{RequestsPerMinute: 0, InitialBackoff: time.Second}, wantErr: true},
		{name: "negative retries", cfg: AdmissionConfig{RequestsPerMinute: 60, MaxRetries: -1, InitialBackoff: time.Second}, wantErr: true},
		{name: "zero backoff", cfg: AdmissionConfig{RequestsPerMinute: 60}, wantErr: true},
		{name: "negative max backoff", cfg: AdmissionConfig{RequestsPerMinute: 60, InitialBackoff: time.Second, MaxBackoff: -1}, wantErr: true},
		{name: "negative window", cfg: AdmissionConfig{RequestsPerMinute: 60, InitialBackoff: time.Second, WaitWindow: -1}, wantErr: true},
		{name: "jitter too large", cfg: AdmissionConfig{RequestsPerMinute: 60, InitialBackoff: time.Second, Jitter: JitterOf(1)}, wantErr: true},
		{name: "negative jitter", cfg: AdmissionConfig{RequestsPerMinute: 60, InitialBackoff: time.Second, Jitter: JitterOf(-0.1)}, wantErr: true},
		{name: "jitter disabled", cfg: AdmissionConfig{RequestsPerMinute: 60, InitialBackoff: time.Second, Jitter: JitterOf(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAdmissionLimiter("test", tt.cfg)
			if tt.wantErr {
				if !IsInvalidConfig(err) {
					t.Errorf("error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAdmissionLimiter_Defaults(t *testing.T) {
	l, err := NewAdmissionLimiter("gemini", AdmissionConfig{RequestsPerMinute: 60, InitialBackoff: time.Second})
	if err != nil {
		t.Fatalf("NewAdmissionLimiter() error = %v", err)
	}

	cfg := l.Config()
	if cfg.WaitWindow != DefaultWaitWindow {
		t.Errorf("WaitWindow = %d, want %d", cfg.WaitWindow, DefaultWaitWindow)
	}
	if cfg.Jitter == nil || *cfg.Jitter != DefaultJitter {
		t.Errorf("Jitter = %v, want %v", cfg.Jitter, DefaultJitter)
	}
	if l.Name() != "gemini" {
		t.Errorf("Name() = %q, want gemini", l.Name())
	}
	if got := l.Available(); got != 60 {
		t.Errorf("Available() = %v, want full bucket 60", got)
	}
}

func TestAdmissionLimiter_SixtyOneRequests(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, AdmissionConfig{
		RequestsPerMinute: 60,
		MaxRetries:        3,
		InitialBackoff:    time.Second,
	}, clock)

	var lastWait time.Duration
	l.onStatus = append(l.onStatus, func(s AttemptStatus) error {
		if s.Acquired {
			lastWait = s.Wait
		}
		return nil
	})

	ctx := context.Background()
	for i := 0; i < 60; i++ {
		if !l.Acquire(ctx) {
			t.Fatalf("Acquire() #%d = false, want true", i+1)
		}
		if lastWait != 0 {
			t.Fatalf("Acquire() #%d waited %v, want immediate", i+1, lastWait)
		}
	}
	if len(clock.Slept()) != 0 {
		t.Fatalf("no backoff expected for the first 60 requests, slept %v", clock.Slept())
	}

	if !l.Acquire(ctx) {
		t.Fatal("Acquire() #61 = false, want true after backoff")
	}
	if lastWait < 900*time.Millisecond {
		t.Errorf("Acquire() #61 waited %v, want at least 900ms", lastWait)
	}
	if slept := clock.Slept(); len(slept) != 1 || slept[0] != time.Second {
		t.Errorf("slept = %v, want [1s]", slept)
	}

	m := l.Metrics()
	if m.TotalRequests != 61 || m.SuccessfulRequests != 61 || m.FailedRequests != 0 {
		t.Errorf("counts = total %d ok %d failed %d, want 61/61/0",
			m.TotalRequests, m.SuccessfulRequests, m.FailedRequests)
	}
	if m.BlockedRequests != 1 || m.BlockedAttempts != 1 {
		t.Errorf("blocked = %d/%d, want 1/1", m.BlockedRequests, m.BlockedAttempts)
	}
	if m.RetryHistogram[0] != 60 || m.RetryHistogram[1] != 1 {
		t.Errorf("RetryHistogram = %v, want {0:60 1:1}", m.RetryHistogram)
	}
	if m.P50WaitMs != 0 {
		t.Errorf("P50WaitMs = %v, want 0", m.P50WaitMs)
	}
	if m.P99WaitMs != 1000 {
		t.Errorf("P99WaitMs = %v, want 1000", m.P99WaitMs)
	}
	if m.CurrentTokens < 0 || m.CurrentTokens > m.Capacity {
		t.Errorf("CurrentTokens = %v outside [0, %v]", m.CurrentTokens, m.Capacity)
	}
}

func TestAdmissionLimiter_SixtyOneRequestsRealClock(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping real-time test in short mode")
	}

	l, err := NewAdmissionLimiter("real", AdmissionConfig{
		RequestsPerMinute: 600,
		MaxRetries:        3,
		InitialBackoff:    50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewAdmissionLimiter() error = %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 600; i++ {
		if !l.Acquire(ctx) {
			t.Fatalf("Acquire() #%d = false, want true", i+1)
		}
	}

	start := time.Now()
	ok := l.Acquire(ctx)
	elapsed := time.Since(start)

	if !ok {
		t.Fatal("Acquire() #601 = false, want true within retry budget")
	}
	if elapsed < 45*time.Millisecond {
		t.Errorf("Acquire() #601 took %v, want at least the first backoff (~50ms)", elapsed)
	}
}

func TestAdmissionLimiter_ExhaustsRetries(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, AdmissionConfig{
		RequestsPerMinute: 1,
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
	}, clock)

	ctx := context.Background()
	if !l.Acquire(ctx) {
		t.Fatal("first Acquire() = false, want true")
	}
	if l.Acquire(ctx) {
		t.Fatal("second Acquire() = true, want false after exhausting retries")
	}

	// No sleep after the final attempt.
	slept := clock.Slept()
	if len(slept) != 2 || slept[0] != time.Millisecond || slept[1] != 2*time.Millisecond {
		t.Errorf("slept = %v, want [1ms 2ms]", slept)
	}

	m := l.Metrics()
	if m.FailedRequests != 1 || m.SuccessfulRequests != 1 || m.TotalRequests != 2 {
		t.Errorf("counts = total %d ok %d failed %d, want 2/1/1",
			m.TotalRequests, m.SuccessfulRequests, m.FailedRequests)
	}
	if m.BlockedRequests != 1 || m.BlockedAttempts != 3 {
		t.Errorf("blocked = %d/%d, want 1/3", m.BlockedRequests, m.BlockedAttempts)
	}
	if m.SuccessfulRequests+m.FailedRequests > m.TotalRequests || m.BlockedRequests > m.TotalRequests {
		t.Errorf("metric invariants violated: %+v", m)
	}
	if m.RetryHistogram[2] != 1 {
		t.Errorf("RetryHistogram = %v, want failure recorded at attempt 2", m.RetryHistogram)
	}
	if m.BlockRate != 0.5 || m.SuccessRate != 0.5 {
		t.Errorf("rates = success %v block %v, want 0.5/0.5", m.SuccessRate, m.BlockRate)
	}
}

func TestAdmissionLimiter_BackoffJitterBounds(t *testing.T) {
	tests := []struct {
		name    string
		rand    float64
		attempt int
		want    time.Duration
	}{
		{name: "lower bound", rand: 0, attempt: 0, want: 900 * time.Millisecond},
		{name: "midpoint", rand: 0.5, attempt: 0, want: time.Second},
		{name: "second attempt", rand: 0.5, attempt: 1, want: 2 * time.Second},
		{name: "third attempt lower", rand: 0, attempt: 2, want: 3600 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.rand
			l, err := NewAdmissionLimiter("jitter", AdmissionConfig{
				RequestsPerMinute: 60,
				MaxRetries:        3,
				InitialBackoff:    time.Second,
			}, WithRand(func() float64 { return r }))
			if err != nil {
				t.Fatalf("NewAdmissionLimiter() error = %v", err)
			}
			if got := l.backoff(tt.attempt); got != tt.want {
				t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}

	l, _ := NewAdmissionLimiter("jitter", AdmissionConfig{RequestsPerMinute: 60, InitialBackoff: time.Second})
	for i := 0; i < 1000; i++ {
		d := l.backoff(0)
		if d < 900*time.Millisecond || d > 1100*time.Millisecond {
			t.Fatalf("backoff(0) = %v outside [900ms, 1100ms]", d)
		}
	}
}

func TestAdmissionLimiter_ZeroJitterDisablesJitter(t *testing.T) {
	for _, r := range []float64{0, 0.25, 0.999} {
		r := r
		l, err := NewAdmissionLimiter("exact", AdmissionConfig{
			RequestsPerMinute: 60,
			InitialBackoff:    time.Second,
			Jitter:            JitterOf(0),
		}, WithRand(func() float64 { return r }))
		if err != nil {
			t.Fatalf("NewAdmissionLimiter() error = %v", err)
		}
		if got := l.backoff(1); got != 2*time.Second {
			t.Errorf("rand %v: backoff(1) = %v, want exactly 2s", r, got)
		}
		if got := l.Config().Jitter; got == nil || *got != 0 {
			t.Errorf("Config().Jitter = %v, want 0", got)
		}
	}
}

func TestAdmissionLimiter_MaxBackoff(t *testing.T) {
	l, err := NewAdmissionLimiter("capped", AdmissionConfig{
		RequestsPerMinute: 60,
		MaxRetries:        10,
		InitialBackoff:    time.Second,
		MaxBackoff:        5 * time.Second,
	}, WithRand(noJitter))
	if err != nil {
		t.Fatalf("NewAdmissionLimiter() error = %v", err)
	}
	if got := l.backoff(8); got != 5*time.Second {
		t.Errorf("backoff(8) = %v, want capped 5s", got)
	}
}

func TestAdmissionLimiter_CancelledDuringBackoff(t *testing.T) {
	clock := newFakeClock()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock.onSleep = func(time.Duration) error {
		cancel()
		return context.Canceled
	}

	l := newTestLimiter(t, AdmissionConfig{
		RequestsPerMinute: 1,
		MaxRetries:        3,
		InitialBackoff:    time.Second,
	}, clock)

	if !l.Acquire(ctx) {
		t.Fatal("first Acquire() = false, want true")
	}
	if l.Acquire(ctx) {
		t.Fatal("Acquire() = true, want false after cancellation")
	}

	m := l.Metrics()
	if m.CancelledRequests != 1 || m.FailedRequests != 1 {
		t.Errorf("cancelled/failed = %d/%d, want 1/1", m.CancelledRequests, m.FailedRequests)
	}
	if m.CurrentTokens != 0 {
		t.Errorf("CurrentTokens = %v, want 0", m.CurrentTokens)
	}

	// Once time passes the token is still there for the next caller.
	clock.onSleep = nil
	clock.Advance(time.Minute)
	if !l.Acquire(context.Background()) {
		t.Error("Acquire() after refill = false, want true")
	}
}

func TestAdmissionLimiter_CancelledBeforeAcquire(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, AdmissionConfig{
		RequestsPerMinute: 10,
		MaxRetries:        1,
		InitialBackoff:    time.Second,
	}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if l.Acquire(ctx) {
		t.Error("Acquire() with cancelled context = true, want false")
	}
	if got := l.Available(); got != 10 {
		t.Errorf("Available() = %v, want 10 (no token consumed)", got)
	}
}

func TestAdmissionLimiter_CallbacksIsolated(t *testing.T) {
	clock := newFakeClock()
	var statuses []AttemptStatus
	var monitored int

	l := newTestLimiter(t, AdmissionConfig{
		RequestsPerMinute: 1,
		MaxRetries:        1,
		InitialBackoff:    time.Second,
	}, clock,
		WithStatusCallback(func(s AttemptStatus) error {
			statuses = append(statuses, s)
			return nil
		}),
		WithStatusCallback(func(AttemptStatus) error {
			panic("status callback bug")
		}),
		WithMonitorCallback(func(Snapshot) error {
			monitored++
			return errors.New("log shipper down")
		}),
	)

	ctx := context.Background()
	if !l.Acquire(ctx) {
		t.Fatal("first Acquire() = false, want true")
	}
	// Second call: attempt 0 blocks, sleeps 1s, attempt 1 misses (1/60 token).
	if l.Acquire(ctx) {
		t.Fatal("second Acquire() = true, want false")
	}

	if monitored != 2 {
		t.Errorf("monitor called %d times, want 2", monitored)
	}
	if len(statuses) != 3 {
		t.Fatalf("status called %d times, want 3: %+v", len(statuses), statuses)
	}
	if !statuses[0].Acquired || statuses[0].Limiter != "test" {
		t.Errorf("statuses[0] = %+v, want acquired on test", statuses[0])
	}
	if statuses[1].Acquired || statuses[1].Wait != time.Second || statuses[1].MaxRetries != 1 {
		t.Errorf("statuses[1] = %+v, want blocked with 1s backoff", statuses[1])
	}
	if statuses[2].Attempt != 1 || statuses[2].Wait != 0 {
		t.Errorf("statuses[2] = %+v, want final attempt without backoff", statuses[2])
	}

	// 3 panics from the status callback + 2 monitor errors.
	if got := l.Metrics().CallbackFailures; got != 5 {
		t.Errorf("CallbackFailures = %d, want 5", got)
	}
}

func TestAdmissionLimiter_Concurrent(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, AdmissionConfig{
		RequestsPerMinute: 100,
		MaxRetries:        0,
		InitialBackoff:    time.Second,
	}, clock)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 300; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Acquire(context.Background()) {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := admitted.Load(); got != 100 {
		t.Errorf("admitted = %d, want exactly 100", got)
	}

	m := l.Metrics()
	if m.TotalRequests != 300 || m.SuccessfulRequests != 100 || m.FailedRequests != 200 {
		t.Errorf("counts = total %d ok %d failed %d", m.TotalRequests, m.SuccessfulRequests, m.FailedRequests)
	}
	if m.CurrentTokens != 0 {
		t.Errorf("CurrentTokens = %v, want 0", m.CurrentTokens)
	}
	if m.TokenUtilization != 1 {
		t.Errorf("TokenUtilization = %v, want 1", m.TokenUtilization)
	}
}

func TestAdmissionLimiter_Metrics(t *testing.T) {
	clock := newFakeClock()
	l := newTestLimiter(t, AdmissionConfig{
		RequestsPerMinute: 60,
		MaxRetries:        1,
		InitialBackoff:    time.Second,
		WaitWindow:        3,
	}, clock)

	empty := l.Metrics()
	if empty.TotalRequests != 0 || empty.SuccessRate != 0 || empty.WaitCount != 0 {
		t.Errorf("initial metrics = %+v", empty)
	}
	if empty.TokenUtilization != 0 {
		t.Errorf("initial TokenUtilization = %v, want 0", empty.TokenUtilization)
	}

	start := clock.Now()
	for i := 0; i < 30; i++ {
		l.Acquire(context.Background())
	}

	m := l.Metrics()
	if m.TokenUtilization != 0.5 {
		t.Errorf("TokenUtilization = %v, want 0.5", m.TokenUtilization)
	}
	if m.WaitCount != 3 {
		t.Errorf("WaitCount = %d, want window size 3", m.WaitCount)
	}
	if m.ObservedRPM != 30 {
		t.Errorf("ObservedRPM = %d, want 30", m.ObservedRPM)
	}
	if m.SuccessRate != 1 {
		t.Errorf("SuccessRate = %v, want 1", m.SuccessRate)
	}
	if !m.FirstRequestAt.Equal(start) || !m.LastRequestAt.Equal(start) {
		t.Errorf("request timestamps = %v/%v, want %v", m.FirstRequestAt, m.LastRequestAt, start)
	}

	clock.Advance(2 * time.Minute)
	if got := l.Metrics().ObservedRPM; got != 0 {
		t.Errorf("ObservedRPM after two minutes = %d, want 0", got)
	}

	l.Reset()
	m = l.Metrics()
	if m.TotalRequests != 0 || m.CurrentTokens != 60 || len(m.RetryHistogram) != 0 {
		t.Errorf("metrics after Reset = %+v", m)
	}
}

func TestPercentile(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		p    float64
		want float64
	}{
		{p: 50, want: 5},
		{p: 90, want: 9},
		{p: 99, want: 10},
		{p: 0, want: 1},
		{p: 100, want: 10},
	}
	for _, tt := range tests {
		if got := percentile(values, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("percentile(nil) = %v, want 0", got)
	}
}

// ============================================================================
// Registry Tests
// ============================================================================

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	cfg := AdmissionConfig{RequestsPerMinute: 10, InitialBackoff: time.Second}

	for _, name := range []string{"openai", "anthropic"} {
		l, err := NewAdmissionLimiter(name, cfg)
		if err != nil {
			t.Fatalf("NewAdmissionLimiter() error = %v", err)
		}
		if err := r.Register(l); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}

	dup, _ := NewAdmissionLimiter("openai", cfg)
	if err := r.Register(dup); err == nil {
		t.Error("Register() of duplicate name should fail")
	}

	if names := r.Names(); len(names) != 2 || names[0] != "anthropic" || names[1] != "openai" {
		t.Errorf("Names() = %v, want [anthropic openai]", names)
	}
	if _, ok := r.Get("openai"); !ok {
		t.Error("Get(openai) not found")
	}
	if _, ok := r.Get("mistral"); ok {
		t.Error("Get(mistral) should not be found")
	}

	snaps := r.Snapshots()
	if len(snaps) != 2 || snaps[0].Name != "anthropic" || snaps[0].Capacity != 10 {
		t.Errorf("Snapshots() = %+v", snaps)
	}
}
