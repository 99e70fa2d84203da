// Package observability provides production-grade observability features
// for the analytics core: structured logging, metrics, and distributed
// tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds scope context to a logger.
// Returns a new logger with session_id and screen fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "sess-123", "lobby")
//	enriched.Info("scope mounted") // includes session_id, screen
func EnrichLogger(logger *slog.Logger, sessionID, screen string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("session_id", sessionID),
		slog.String("screen", screen),
	)
}

// LogScopeMounted logs a provider boundary coming up.
func LogScopeMounted(logger *slog.Logger, sessionID, screen string) {
	if logger == nil {
		return
	}
	logger.Info("analytics scope mounted",
		slog.String("session_id", sessionID),
		slog.String("screen", screen),
	)
}

// LogScopeUnmounted logs a provider boundary tearing down.
func LogScopeUnmounted(logger *slog.Logger, sessionID, screen string) {
	if logger == nil {
		return
	}
	logger.Info("analytics scope unmounted",
		slog.String("session_id", sessionID),
		slog.String("screen", screen),
	)
}

// LogEventDelivered logs a successful sink hand-off.
func LogEventDelivered(logger *slog.Logger, eventID, action string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("event delivered",
		slog.String("event_id", eventID),
		slog.String("action", action),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogEventDropped logs an event discarded before reaching the sink (non-fatal).
func LogEventDropped(logger *slog.Logger, eventID, action, reason string) {
	if logger == nil {
		return
	}
	logger.Warn("event dropped",
		slog.String("event_id", eventID),
		slog.String("action", action),
		slog.String("reason", reason),
	)
}

// LogDeliveryError logs a sink failure (non-fatal, never retried here).
func LogDeliveryError(logger *slog.Logger, eventID, action string, err error) {
	if logger == nil {
		return
	}
	logger.Error("event delivery failed",
		slog.String("event_id", eventID),
		slog.String("action", action),
		slog.String("error", err.Error()),
	)
}

// LogDoubleFinalize logs a second Log() call on one builder.
// This is a logic error at the call site, reported rather than thrown into
// the interaction path.
func LogDoubleFinalize(logger *slog.Logger, action string) {
	if logger == nil {
		return
	}
	logger.Warn("builder finalized twice",
		slog.String("action", action),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
