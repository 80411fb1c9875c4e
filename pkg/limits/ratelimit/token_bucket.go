package ratelimit

import (
	"math"
	"sync"
	"time"
)

// TokenBucket implements the token bucket rate limiting algorithm with
// fractional tokens.
//
// Tokens accumulate continuously at fillRate per second up to capacity.
// Refill is lazy: it is computed from the elapsed time whenever the bucket is
// touched, so no background goroutine is needed.
//
// # Algorithm
//
//  1. Add elapsed * fillRate tokens, clamped to capacity
//  2. If at least n tokens are available, consume them and allow
//  3. Otherwise reject without consuming anything
//
// # Thread Safety
//
// TokenBucket is safe for concurrent use. The mutex is held only for the
// refill-and-take step.
type TokenBucket struct {
	capacity   float64
	fillRate   float64
	tokens     float64
	lastRefill time.Time
	clock      Clock
	mu         sync.Mutex
}

// NewTokenBucket creates a full bucket.
//
// Parameters:
//   - capacity: maximum number of tokens (burst size)
//   - fillRate: tokens added per second
//   - clock: time source; nil uses SystemClock
//
// Example:
//
//	// 60 requests/minute: burst of 60, one token per second
//	bucket := NewTokenBucket(60, 1, nil)
func NewTokenBucket(capacity, fillRate float64, clock Clock) *TokenBucket {
	if clock == nil {
		clock = SystemClock{}
	}
	return &TokenBucket{
		capacity:   capacity,
		fillRate:   fillRate,
		tokens:     capacity,
		lastRefill: clock.Now(),
		clock:      clock,
	}
}

// Take refills the bucket and consumes n tokens if available.
// It reports whether the tokens were consumed.
func (tb *TokenBucket) Take(n float64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(tb.clock.Now())

	if tb.tokens >= n {
		tb.tokens -= n
		return true
	}
	return false
}

// Available returns the tokens that would be available now, without
// consuming any or advancing the refill timestamp.
func (tb *TokenBucket) Available() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	return tb.peekLocked(tb.clock.Now())
}

// Capacity returns the maximum number of tokens.
func (tb *TokenBucket) Capacity() float64 {
	return tb.capacity
}

// FillRate returns the refill rate in tokens per second.
func (tb *TokenBucket) FillRate() float64 {
	return tb.fillRate
}

// TimeUntilAvailable returns how long until n tokens are available.
// It returns 0 if they already are.
func (tb *TokenBucket) TimeUntilAvailable(n float64) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	available := tb.peekLocked(tb.clock.Now())
	if available >= n || tb.fillRate <= 0 {
		return 0
	}
	seconds := (n - available) / tb.fillRate
	return time.Duration(math.Ceil(seconds * float64(time.Second)))
}

// Reset refills the bucket to capacity.
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = tb.clock.Now()
}

// refillLocked adds tokens for the time elapsed since the last refill.
// Caller must hold tb.mu.
func (tb *TokenBucket) refillLocked(now time.Time) {
	tb.tokens = tb.peekLocked(now)
	if now.After(tb.lastRefill) {
		tb.lastRefill = now
	}
}

// peekLocked computes the refilled token count at now without storing it.
// A clock that moves backwards adds nothing. Caller must hold tb.mu.
func (tb *TokenBucket) peekLocked(now time.Time) float64 {
	tokens := tb.tokens
	if elapsed := now.Sub(tb.lastRefill); elapsed > 0 {
		tokens += elapsed.Seconds() * tb.fillRate
	}
	return math.Max(0, math.Min(tokens, tb.capacity))
}
