// Package limits groups request admission and its persistence.
//
// # Architecture
//
// The package is organized into sub-packages:
//
//   - ratelimit: token bucket admission limiters with exponential backoff,
//     jitter and per-limiter metrics
//   - storage: persistence backends (memory, SQLite) for limiter snapshots,
//     usage summaries and usage events
//   - snapshot: cron-driven scheduler that persists snapshots and prunes
//     old rows
//
// # Usage
//
//	limiter, err := ratelimit.NewAdmissionLimiter("openai", ratelimit.AdmissionConfig{
//	    RequestsPerMinute: 60,
//	    MaxRetries:        3,
//	    InitialBackoff:    time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//
//	if !limiter.Acquire(ctx) {
//	    return errThrottled
//	}
//
// # Thread Safety
//
// Limiters, backends and the scheduler are safe for concurrent use. A limiter
// never holds its lock while sleeping between attempts.
package limits
