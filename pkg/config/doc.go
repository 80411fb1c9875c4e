// Package config provides configuration management for Tollgate.
//
// This package handles loading, validating, and defaulting configuration from
// YAML files with environment variable overrides. Configuration is returned
// as an explicit *Config value; there is no package-level instance.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("tollgate.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("tollgate.yaml")
//
// Unknown keys in the file are rejected.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention TOLLGATE_SECTION_FIELD.
// For example:
//
//   - TOLLGATE_STORAGE_BACKEND overrides storage.backend
//   - TOLLGATE_LIMITERS_OPENAI_REQUESTS_PER_MINUTE overrides limiters.openai.requests_per_minute
//   - TOLLGATE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Limiter overrides apply only to limiters declared in the file. A value
// that cannot be parsed is an error.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
package config
