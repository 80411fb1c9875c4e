package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// envPrefix is the prefix of every environment override.
const envPrefix = "TOLLGATE_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// Unknown keys are rejected. The configuration is not modified by environment
// variables; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention TOLLGATE_SECTION_FIELD (e.g., TOLLGATE_STORAGE_BACKEND).
// Environment variables always take precedence over file-based configuration.
//
// An empty path starts from the defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed values are reported rather than silently ignored.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	env := envReader{errs: &errs}

	// Pricing overrides
	env.str("PRICING_PATH", &cfg.Pricing.Path)
	env.boolean("PRICING_WATCH", &cfg.Pricing.Watch)
	env.boolean("PRICING_ALLOW_INVERTED_TIERS", &cfg.Pricing.AllowInvertedTiers)

	// Storage overrides
	env.str("STORAGE_BACKEND", &cfg.Storage.Backend)
	env.str("STORAGE_SQLITE_PATH", &cfg.Storage.SQLite.Path)
	env.str("STORAGE_SQLITE_DRIVER", &cfg.Storage.SQLite.Driver)
	env.duration("STORAGE_SQLITE_BUSY_TIMEOUT", &cfg.Storage.SQLite.BusyTimeout)
	env.integer("STORAGE_MEMORY_MAX_EVENTS", &cfg.Storage.Memory.MaxEvents)

	// Snapshot overrides
	env.optionalBool("SNAPSHOTS_ENABLED", &cfg.Snapshots.Enabled)
	env.str("SNAPSHOTS_SCHEDULE", &cfg.Snapshots.Schedule)
	env.duration("SNAPSHOTS_RETENTION", &cfg.Snapshots.Retention)

	// Telemetry overrides
	env.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	env.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	env.optionalBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	env.str("TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	env.str("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	env.boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	env.str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	env.float("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)

	// Limiter overrides, for limiters present in the file:
	// TOLLGATE_LIMITERS_<NAME>_<FIELD>
	for name, limiter := range cfg.Limiters {
		prefix := "LIMITERS_" + envName(name) + "_"
		env.integer(prefix+"REQUESTS_PER_MINUTE", &limiter.RequestsPerMinute)
		env.optionalInt(prefix+"MAX_RETRIES", &limiter.MaxRetries)
		env.duration(prefix+"INITIAL_BACKOFF", &limiter.InitialBackoff)
		env.duration(prefix+"MAX_BACKOFF", &limiter.MaxBackoff)
		env.optionalFloat(prefix+"JITTER", &limiter.Jitter)
		cfg.Limiters[name] = limiter
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment overrides: %w", errors.Join(errs...))
	}
	return nil
}

// envName maps a limiter name to its environment form: "gemini-pro" -> "GEMINI_PRO".
func envName(name string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if r == '-' || r == '.' || r == ' ' {
			return '_'
		}
		return r
	}, name))
}

// envReader reads TOLLGATE_* variables into configuration fields.
type envReader struct {
	errs *[]error
}

func (e envReader) lookup(key string) (string, bool) {
	val := os.Getenv(envPrefix + key)
	return val, val != ""
}

func (e envReader) fail(key, val string, err error) {
	*e.errs = append(*e.errs, fmt.Errorf("%s%s=%q: %w", envPrefix, key, val, err))
}

func (e envReader) str(key string, dst *string) {
	if val, ok := e.lookup(key); ok {
		*dst = val
	}
}

func (e envReader) boolean(key string, dst *bool) {
	if val, ok := e.lookup(key); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			e.fail(key, val, err)
			return
		}
		*dst = b
	}
}

func (e envReader) optionalBool(key string, dst **bool) {
	var b bool
	if _, ok := e.lookup(key); !ok {
		return
	}
	before := len(*e.errs)
	e.boolean(key, &b)
	if len(*e.errs) == before {
		*dst = &b
	}
}

func (e envReader) integer(key string, dst *int) {
	if val, ok := e.lookup(key); ok {
		i, err := strconv.Atoi(val)
		if err != nil {
			e.fail(key, val, err)
			return
		}
		*dst = i
	}
}

func (e envReader) optionalInt(key string, dst **int) {
	var i int
	if _, ok := e.lookup(key); !ok {
		return
	}
	before := len(*e.errs)
	e.integer(key, &i)
	if len(*e.errs) == before {
		*dst = &i
	}
}

func (e envReader) float(key string, dst *float64) {
	if val, ok := e.lookup(key); ok {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			e.fail(key, val, err)
			return
		}
		*dst = f
	}
}

func (e envReader) optionalFloat(key string, dst **float64) {
	var f float64
	if _, ok := e.lookup(key); !ok {
		return
	}
	before := len(*e.errs)
	e.float(key, &f)
	if len(*e.errs) == before {
		*dst = &f
	}
}

func (e envReader) duration(key string, dst *time.Duration) {
	if val, ok := e.lookup(key); ok {
		d, err := time.ParseDuration(val)
		if err != nil {
			e.fail(key, val, err)
			return
		}
		*dst = d
	}
}
