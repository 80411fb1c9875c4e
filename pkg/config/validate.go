package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "storage.backend").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// HasField reports whether any error refers to field.
func (e ValidationError) HasField(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateLimiters(cfg.Limiters)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateSnapshots(&cfg.Snapshots)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateLimiters validates every limiter in name order so errors are stable.
func validateLimiters(limiters map[string]LimiterConfig) []FieldError {
	var errs []FieldError

	names := make([]string, 0, len(limiters))
	for name := range limiters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		limiter := limiters[name]
		prefix := "limiters." + name

		if strings.TrimSpace(name) == "" {
			errs = append(errs, FieldError{
				Field:   "limiters",
				Message: "limiter name must not be empty",
			})
		}
		if limiter.RequestsPerMinute <= 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".requests_per_minute",
				Message: "requests per minute must be positive",
			})
		}
		if limiter.MaxRetries != nil && *limiter.MaxRetries < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".max_retries",
				Message: "max retries must be non-negative",
			})
		}
		if limiter.InitialBackoff <= 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".initial_backoff",
				Message: "initial backoff must be positive",
			})
		}
		if limiter.MaxBackoff < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".max_backoff",
				Message: "max backoff must be non-negative",
			})
		}
		if limiter.WaitWindow < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".wait_window",
				Message: "wait window must be non-negative",
			})
		}
		if limiter.Jitter != nil && !(*limiter.Jitter >= 0 && *limiter.Jitter < 1) {
			errs = append(errs, FieldError{
				Field:   prefix + ".jitter",
				Message: "jitter must be in [0, 1)",
			})
		}
	}

	return errs
}

// validateStorage validates storage configuration.
func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if cfg.Backend == "" {
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: "backend is required",
		})
	} else if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}

	switch cfg.Backend {
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.path",
				Message: "SQLite path is required when backend is 'sqlite'",
			})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite' or 'sqlite3'", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.busy_timeout",
				Message: "busy timeout must be positive",
			})
		}
		if cfg.SQLite.CheckpointInterval < 0 {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.checkpoint_interval",
				Message: "checkpoint interval must be positive",
			})
		}
	case "memory":
		if cfg.Memory.MaxEvents < 0 {
			errs = append(errs, FieldError{
				Field:   "storage.memory.max_events",
				Message: "max events must be non-negative",
			})
		}
		if cfg.Memory.MaxSnapshots < 0 {
			errs = append(errs, FieldError{
				Field:   "storage.memory.max_snapshots",
				Message: "max snapshots must be non-negative",
			})
		}
	}

	return errs
}

// validateSnapshots validates snapshot scheduling.
func validateSnapshots(cfg *SnapshotsConfig) []FieldError {
	var errs []FieldError

	if !cfg.IsEnabled() {
		return nil
	}

	if cfg.Schedule == "" {
		errs = append(errs, FieldError{
			Field:   "snapshots.schedule",
			Message: "schedule is required when snapshots are enabled",
		})
	} else if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "snapshots.schedule",
			Message: fmt.Sprintf("invalid cron schedule %q: %v", cfg.Schedule, err),
		})
	}
	if cfg.Retention < 0 {
		errs = append(errs, FieldError{
			Field:   "snapshots.retention",
			Message: "retention must be non-negative",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	// Validate metrics endpoint
	if cfg.Metrics.IsEnabled() {
		if cfg.Metrics.ListenAddress == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.listen_address",
				Message: "listen address is required when metrics are enabled",
			})
		}
		if cfg.Metrics.Path == "" || cfg.Metrics.Path[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with /",
			})
		}
		if !sort.Float64sAreSorted(cfg.Metrics.WaitBuckets) {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.wait_buckets",
				Message: "buckets must be sorted in increasing order",
			})
		}
		if !sort.Float64sAreSorted(cfg.Metrics.CostBuckets) {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.cost_buckets",
				Message: "buckets must be sorted in increasing order",
			})
		}
	}

	// Validate tracing configuration
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true, "parent_based": true}
	if cfg.Tracing.Sampler != "" && !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', 'ratio', or 'parent_based'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	// Validate health check paths
	if cfg.Health.IsEnabled() {
		if cfg.Health.LivenessPath == "" || cfg.Health.LivenessPath[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.liveness_path",
				Message: "liveness path must start with /",
			})
		}
		if cfg.Health.ReadinessPath == "" || cfg.Health.ReadinessPath[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.readiness_path",
				Message: "readiness path must start with /",
			})
		}
	}

	return errs
}
