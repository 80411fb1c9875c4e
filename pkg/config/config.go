package config

import (
	"time"

	"mercator-hq/tollgate/pkg/limits/ratelimit"
)

// Config is the root configuration structure for Tollgate.
// It contains the named admission limiters, the pricing source, snapshot
// persistence and telemetry settings.
type Config struct {
	// Limiters maps a limiter name (usually a provider) to its settings.
	Limiters map[string]LimiterConfig `yaml:"limiters"`

	// Pricing configures where the pricing table is loaded from.
	Pricing PricingConfig `yaml:"pricing"`

	// Storage configures the snapshot and usage storage backend.
	Storage StorageConfig `yaml:"storage"`

	// Snapshots configures periodic persistence of limiter and usage state.
	Snapshots SnapshotsConfig `yaml:"snapshots"`

	// Telemetry contains configuration for logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LimiterConfig configures one admission limiter.
type LimiterConfig struct {
	// RequestsPerMinute is the bucket capacity and refill rate.
	// Required.
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// MaxRetries is the number of retries after the first attempt.
	// A pointer so that an explicit 0 is kept.
	// Default: 3
	MaxRetries *int `yaml:"max_retries"`

	// InitialBackoff is the delay before the first retry.
	// Default: 1s
	InitialBackoff time.Duration `yaml:"initial_backoff"`

	// MaxBackoff caps a single backoff delay. Zero means no cap.
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// WaitWindow is the number of recent waits kept for percentiles.
	// Default: 1000
	WaitWindow int `yaml:"wait_window"`

	// Jitter is the relative backoff jitter in [0, 1). A pointer so that an
	// explicit 0 disables jitter.
	// Default: 0.1
	Jitter *float64 `yaml:"jitter"`
}

// WithDefaults returns a copy of c with defaults applied to unset fields.
func (c LimiterConfig) WithDefaults() LimiterConfig {
	if c.MaxRetries == nil {
		retries := DefaultMaxRetries
		c.MaxRetries = &retries
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.WaitWindow == 0 {
		c.WaitWindow = DefaultWaitWindow
	}
	return c
}

// Admission converts the limiter settings, with defaults applied, to a
// ratelimit.AdmissionConfig.
func (c LimiterConfig) Admission() ratelimit.AdmissionConfig {
	c = c.WithDefaults()
	var jitter *float64
	if c.Jitter != nil {
		jitter = ratelimit.JitterOf(*c.Jitter)
	}
	return ratelimit.AdmissionConfig{
		RequestsPerMinute: c.RequestsPerMinute,
		MaxRetries:        *c.MaxRetries,
		InitialBackoff:    c.InitialBackoff,
		MaxBackoff:        c.MaxBackoff,
		WaitWindow:        c.WaitWindow,
		Jitter:            jitter,
	}
}

// PricingConfig configures the pricing table source.
type PricingConfig struct {
	// Path is a YAML or TOML pricing file. Empty uses the built-in table.
	Path string `yaml:"path"`

	// Watch reloads the pricing file when it changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// AllowInvertedTiers accepts long-context prices lower than the
	// standard tier. They are logged as warnings.
	// Default: false
	AllowInvertedTiers bool `yaml:"allow_inverted_tiers"`
}

// StorageConfig configures the storage backend.
type StorageConfig struct {
	// Backend specifies the storage backend to use.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Memory contains memory backend configuration.
	Memory MemoryConfig `yaml:"memory"`
}

// SQLiteConfig contains SQLite storage configuration.
type SQLiteConfig struct {
	// Path is the path to the SQLite database file.
	// Default: "data/tollgate.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// MemoryConfig contains memory backend configuration.
type MemoryConfig struct {
	// MaxEvents bounds the usage event journal. Oldest entries are evicted.
	// Default: 10000
	MaxEvents int `yaml:"max_events"`

	// MaxSnapshots bounds the snapshots kept per limiter.
	// Default: 1000
	MaxSnapshots int `yaml:"max_snapshots"`
}

// SnapshotsConfig configures the snapshot scheduler.
type SnapshotsConfig struct {
	// Enabled controls whether snapshots are taken while serving.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Schedule is a cron expression or descriptor.
	// Default: "@every 1m"
	Schedule string `yaml:"schedule"`

	// Retention is how long snapshots and usage events are kept.
	// Zero keeps everything.
	// Default: 720h
	Retention time.Duration `yaml:"retention"`

	// FlushOnStop writes a final snapshot at shutdown.
	// Default: true
	FlushOnStop *bool `yaml:"flush_on_stop"`
}

// IsEnabled reports whether snapshots are enabled.
func (c SnapshotsConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// ShouldFlushOnStop reports whether a final snapshot is written at shutdown.
func (c SnapshotsConfig) ShouldFlushOnStop() bool {
	return c.FlushOnStop == nil || *c.FlushOnStop
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// ListenAddress is where `tollgate serve` exposes metrics and health.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "tollgate"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	Subsystem string `yaml:"subsystem"`

	// WaitBuckets defines histogram buckets for admission waits (seconds).
	// Default: [0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30]
	WaitBuckets []float64 `yaml:"wait_buckets"`

	// CostBuckets defines histogram buckets for per-request cost (USD).
	// Default: [0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5]
	CostBuckets []float64 `yaml:"cost_buckets"`
}

// IsEnabled reports whether metrics are collected.
func (c MetricsConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio", "parent_based"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is the service name in traces.
	// Default: "tollgate"
	ServiceName string `yaml:"service_name"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health check endpoints are served.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`
}

// IsEnabled reports whether health endpoints are served.
func (c HealthConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}
