// Package metrics provides Prometheus metrics collection for Tollgate.
//
// # Overview
//
// The Collector owns a Prometheus registry and exposes three integration
// points:
//
//   - StatusCallback: a ratelimit.StatusFunc recording attempts and waits
//   - WatchLimiters: exports limiter snapshots (request outcomes, bucket
//     level, wait percentiles) at scrape time
//   - RecordUsage: a costs.UsageSink recording cost and token counters
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	_ = collector.WatchLimiters(registry)
//
//	limiter, _ := ratelimit.NewAdmissionLimiter("openai", admission,
//		ratelimit.WithStatusCallback(collector.StatusCallback()))
//
//	accountant := costs.NewAccountant(table, costs.WithSinks(collector))
//
//	mux.Handle("/metrics", collector.Handler())
//
// # Cardinality Management
//
// Provider and model labels come from recorded events. After 10,000 distinct
// provider/model pairs, further models are reported as "other".
package metrics
