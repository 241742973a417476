// Package observability provides structured logging, metrics, and tracing
// for graphbuilder: editor mutations, re-derivation, validation, and code
// generation.
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

// EnrichLogger adds project and target context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "support-copilot", "python")
//	enriched.Info("rendering") // includes project, target
func EnrichLogger(logger *slog.Logger, project, target string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("project", project),
		slog.String("target", target),
	)
}

// LogMutation logs one applied editor mutation.
func LogMutation(logger *slog.Logger, op, id string) {
	if logger == nil {
		return
	}
	logger.Debug("graph mutated",
		slog.String("op", op),
		slog.String("id", id),
	)
}

// LogDerive logs the outcome of re-derivation after a mutation: how many
// edges and nodes were replaced by the normalizer and inference engine.
func LogDerive(logger *slog.Logger, op string, edgesChanged, nodesChanged int) {
	if logger == nil {
		return
	}
	logger.Debug("graph re-derived",
		slog.String("op", op),
		slog.Int("edges_changed", edgesChanged),
		slog.Int("nodes_changed", nodesChanged),
	)
}

// LogValidation logs a validation pass. Findings are logged at warn level,
// a clean graph at debug.
func LogValidation(logger *slog.Logger, project string, messages []string) {
	if logger == nil {
		return
	}
	if len(messages) == 0 {
		logger.Debug("graph valid", slog.String("project", project))
		return
	}
	logger.Warn("graph has issues",
		slog.String("project", project),
		slog.Int("issues", len(messages)),
		slog.Any("messages", messages),
	)
}

// LogGenerate logs a completed code generation.
func LogGenerate(logger *slog.Logger, target string, sizeBytes int, durationMs float64, cached bool) {
	if logger == nil {
		return
	}
	logger.Info("code generated",
		slog.String("target", target),
		slog.Int("size_bytes", sizeBytes),
		slog.Float64("duration_ms", durationMs),
		slog.Bool("cached", cached),
	)
}

// LogGenerateError logs a failed code generation.
func LogGenerateError(logger *slog.Logger, target string, err error) {
	if logger == nil {
		return
	}
	logger.Error("code generation failed",
		slog.String("target", target),
		slog.String("error", err.Error()),
	)
}

// LogSnapshot logs a stored document revision.
func LogSnapshot(logger *slog.Logger, project string, revision int64, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("snapshot saved",
		slog.String("project", project),
		slog.Int64("revision", revision),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogSnapshotError logs snapshot failure (non-fatal).
func LogSnapshotError(logger *slog.Logger, project string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("snapshot failed",
		slog.String("project", project),
		slog.String("operation", op),
		slog.String("error", err.Error()),
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
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
