package config

import "time"

// Default values for configuration fields.
const (
	// Limiter defaults
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = time.Second
	DefaultWaitWindow     = 1000

	// Storage defaults
	DefaultStorageBackend           = "memory"
	DefaultSQLitePath               = "data/tollgate.db"
	DefaultSQLiteDriver             = "sqlite"
	DefaultSQLiteBusyTimeout        = 5 * time.Second
	DefaultSQLiteCheckpointInterval = 5 * time.Minute
	DefaultMemoryMaxEvents          = 10000
	DefaultMemoryMaxSnapshots       = 1000

	// Snapshot defaults
	DefaultSnapshotSchedule  = "@every 1m"
	DefaultSnapshotRetention = 30 * 24 * time.Hour

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultPrometheusPath       = "/metrics"
	DefaultMetricsNamespace     = "tollgate"
	DefaultTracingSampler       = "ratio"
	DefaultTracingSamplingRate  = 1.0
	DefaultTracingTimeout       = 10 * time.Second
	DefaultTracingServiceName   = "tollgate"
	DefaultLivenessPath         = "/health"
	DefaultReadinessPath        = "/ready"
)

// Default histogram buckets.
var (
	DefaultWaitBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30}
	DefaultCostBuckets = []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
)

// Default returns a configuration with every default applied and no limiters.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Limiter defaults - applied to each limiter
	for name, limiter := range cfg.Limiters {
		cfg.Limiters[name] = limiter.WithDefaults()
	}

	applyStorageDefaults(&cfg.Storage)

	if cfg.Snapshots.Schedule == "" {
		cfg.Snapshots.Schedule = DefaultSnapshotSchedule
	}
	if cfg.Snapshots.Retention == 0 {
		cfg.Snapshots.Retention = DefaultSnapshotRetention
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyStorageDefaults(cfg *StorageConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultStorageBackend
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultSQLitePath
	}
	if cfg.SQLite.Driver == "" {
		cfg.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.SQLite.CheckpointInterval == 0 {
		cfg.SQLite.CheckpointInterval = DefaultSQLiteCheckpointInterval
	}
	if cfg.Memory.MaxEvents == 0 {
		cfg.Memory.MaxEvents = DefaultMemoryMaxEvents
	}
	if cfg.Memory.MaxSnapshots == 0 {
		cfg.Memory.MaxSnapshots = DefaultMemoryMaxSnapshots
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}

	if cfg.Metrics.ListenAddress == "" {
		cfg.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Metrics.WaitBuckets) == 0 {
		cfg.Metrics.WaitBuckets = append([]float64(nil), DefaultWaitBuckets...)
	}
	if len(cfg.Metrics.CostBuckets) == 0 {
		cfg.Metrics.CostBuckets = append([]float64(nil), DefaultCostBuckets...)
	}

	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Tracing.Timeout == 0 {
		cfg.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}

	if cfg.Health.LivenessPath == "" {
		cfg.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Health.ReadinessPath == "" {
		cfg.Health.ReadinessPath = DefaultReadinessPath
	}
}
