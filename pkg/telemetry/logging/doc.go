// Package logging provides structured logging built on log/slog.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON, text, and console formats
//   - Context-aware logging with request, provider, model, limiter and
//     usage event IDs
//   - Trace and span IDs from the active OpenTelemetry span
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	logger.SetDefault()
//
//	ctx = logging.WithLimiter(ctx, "openai")
//	logger.InfoContext(ctx, "admitted")  // includes limiter=openai
//
// Subsystems take a *slog.Logger. Pass logger.WithComponent("name"), or let
// them fall back to slog.Default(); either way records logged with a context
// carry the context fields.
package logging
