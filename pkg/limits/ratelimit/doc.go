// Package ratelimit implements token-bucket admission control for outbound
// LLM provider requests.
//
// # Overview
//
// An AdmissionLimiter guards one upstream resource. Callers invoke Acquire
// before each provider request; it returns true once a token has been taken
// and false when the retry budget is exhausted. Throttling is a normal
// outcome and never an error.
//
// # Algorithm
//
// The bucket holds up to RequestsPerMinute tokens and refills continuously at
// RequestsPerMinute/60 tokens per second. Refill is computed lazily from the
// monotonic clock on each attempt. When the bucket is empty Acquire sleeps
// for InitialBackoff * 2^attempt with ±10% jitter and tries again, for at
// most MaxRetries+1 attempts.
//
// # Metrics
//
// Every limiter tracks request counts, a bounded window of wait times for
// p50/p90/p99 estimates, a retry histogram and token utilization. Metrics
// returns a Snapshot copy. Status and monitor callbacks receive the same data
// synchronously; their failures are logged and never change the outcome of
// Acquire.
//
// # Usage
//
//	limiter, err := ratelimit.NewAdmissionLimiter("gemini", ratelimit.AdmissionConfig{
//		RequestsPerMinute: 60,
//		MaxRetries:        3,
//		InitialBackoff:    time.Second,
//	})
//	if err != nil {
//		return err
//	}
//
//	if !limiter.Acquire(ctx) {
//		return errThrottled
//	}
//	resp, err := client.Do(req)
//
// # Testing
//
// Clock abstracts Now and Sleep so tests can drive the limiter with virtual
// time. WithRand fixes the jitter source.
package ratelimit
