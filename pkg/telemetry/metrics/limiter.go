package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/tollgate/pkg/config"
	"mercator-hq/tollgate/pkg/limits/ratelimit"
)

// LimiterMetrics tracks per-attempt admission metrics fed by a limiter's
// status callback.
//
// Metrics:
//   - tollgate_limiter_attempts_total: Acquire attempts by limiter and result
//   - tollgate_limiter_wait_seconds: Wait of admitted requests (histogram)
type LimiterMetrics struct {
	attemptsTotal *prometheus.CounterVec
	waitSeconds   *prometheus.HistogramVec
}

// NewLimiterMetrics creates and registers limiter metrics with the provided registry.
func NewLimiterMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *LimiterMetrics {
	lm := &LimiterMetrics{
		attemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "limiter_attempts_total",
				Help:      "Token acquisition attempts by limiter and result",
			},
			[]string{"limiter", "result"},
		),

		waitSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "limiter_wait_seconds",
				Help:      "Time admitted requests waited for a token",
				Buckets:   cfg.WaitBuckets,
			},
			[]string{"limiter"},
		),
	}

	registry.MustRegister(
		lm.attemptsTotal,
		lm.waitSeconds,
	)

	return lm
}

// RecordAttempt records one Acquire attempt.
func (lm *LimiterMetrics) RecordAttempt(s ratelimit.AttemptStatus) {
	if s.Acquired {
		lm.attemptsTotal.WithLabelValues(s.Limiter, "acquired").Inc()
		lm.waitSeconds.WithLabelValues(s.Limiter).Observe(s.Wait.Seconds())
		return
	}
	lm.attemptsTotal.WithLabelValues(s.Limiter, "blocked").Inc()
}

// limiterSnapshotCollector exports limiter snapshots as const metrics at
// scrape time.
type limiterSnapshotCollector struct {
	limiters *ratelimit.Registry

	requests         *prometheus.Desc
	blockedRequests  *prometheus.Desc
	blockedAttempts  *prometheus.Desc
	callbackFailures *prometheus.Desc
	tokens           *prometheus.Desc
	capacity         *prometheus.Desc
	utilization      *prometheus.Desc
	observedRPM      *prometheus.Desc
	waitQuantile     *prometheus.Desc
	finishedAttempt  *prometheus.Desc
}

func newLimiterSnapshotCollector(cfg *config.MetricsConfig, limiters *ratelimit.Registry) *limiterSnapshotCollector {
	name := func(n string) string {
		return prometheus.BuildFQName(cfg.Namespace, cfg.Subsystem, n)
	}
	limiter := []string{"limiter"}

	return &limiterSnapshotCollector{
		limiters: limiters,
		requests: prometheus.NewDesc(name("limiter_requests_total"),
			"Acquire calls by limiter and outcome", []string{"limiter", "outcome"}, nil),
		blockedRequests: prometheus.NewDesc(name("limiter_blocked_requests_total"),
			"Acquire calls that found the bucket empty at least once", limiter, nil),
		blockedAttempts: prometheus.NewDesc(name("limiter_blocked_attempts_total"),
			"Attempts that found the bucket empty", limiter, nil),
		callbackFailures: prometheus.NewDesc(name("limiter_callback_failures_total"),
			"Status or monitor callbacks that failed", limiter, nil),
		tokens: prometheus.NewDesc(name("limiter_tokens_available"),
			"Tokens currently in the bucket", limiter, nil),
		capacity: prometheus.NewDesc(name("limiter_tokens_capacity"),
			"Bucket capacity", limiter, nil),
		utilization: prometheus.NewDesc(name("limiter_token_utilization"),
			"Fraction of the bucket in use", limiter, nil),
		observedRPM: prometheus.NewDesc(name("limiter_observed_rpm"),
			"Requests admitted during the last minute", limiter, nil),
		waitQuantile: prometheus.NewDesc(name("limiter_wait_quantile_seconds"),
			"Wait percentiles over the recent wait window", []string{"limiter", "quantile"}, nil),
		finishedAttempt: prometheus.NewDesc(name("limiter_finished_on_attempt_total"),
			"Acquire calls by the attempt index they finished on", []string{"limiter", "attempt"}, nil),
	}
}

func (c *limiterSnapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.blockedRequests
	ch <- c.blockedAttempts
	ch <- c.callbackFailures
	ch <- c.tokens
	ch <- c.capacity
	ch <- c.utilization
	ch <- c.observedRPM
	ch <- c.waitQuantile
	ch <- c.finishedAttempt
}

func (c *limiterSnapshotCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.limiters.Snapshots() {
		counter := func(desc *prometheus.Desc, v int64, labels ...string) {
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), append([]string{s.Name}, labels...)...)
		}
		gauge := func(desc *prometheus.Desc, v float64, labels ...string) {
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, append([]string{s.Name}, labels...)...)
		}

		counter(c.requests, s.SuccessfulRequests, "success")
		counter(c.requests, s.FailedRequests-s.CancelledRequests, "exhausted")
		counter(c.requests, s.CancelledRequests, "cancelled")
		counter(c.blockedRequests, s.BlockedRequests)
		counter(c.blockedAttempts, s.BlockedAttempts)
		counter(c.callbackFailures, s.CallbackFailures)

		gauge(c.tokens, s.CurrentTokens)
		gauge(c.capacity, s.Capacity)
		gauge(c.utilization, s.TokenUtilization)
		gauge(c.observedRPM, float64(s.ObservedRPM))

		gauge(c.waitQuantile, s.P50WaitMs/1000, "0.5")
		gauge(c.waitQuantile, s.P90WaitMs/1000, "0.9")
		gauge(c.waitQuantile, s.P99WaitMs/1000, "0.99")
		gauge(c.waitQuantile, s.MaxWaitMs/1000, "1")

		for attempt, n := range s.RetryHistogram {
			counter(c.finishedAttempt, n, strconv.Itoa(attempt))
		}
	}
}
