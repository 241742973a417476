package graphbuilder

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/observability"
)

// editorConfig holds Editor dependencies.
type editorConfig struct {
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	inferrer *Inferrer
	newID    func() string
}

// defaultEditorConfig returns a silent editor minting random UUIDs.
func defaultEditorConfig() editorConfig {
	return editorConfig{
		metrics:  observability.NoopMetrics{},
		inferrer: defaultInferrer,
		newID:    uuid.NewString,
	}
}

// EditorOption configures an Editor.
type EditorOption func(*editorConfig)

// WithLogger enables structured logging of mutations and re-derivation.
// A nil logger disables logging (the default).
//
// Example:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
//	ed := graphbuilder.NewEditor(graphbuilder.WithLogger(logger))
func WithLogger(logger *slog.Logger) EditorOption {
	return func(c *editorConfig) {
		c.logger = logger
	}
}

// WithMetrics records mutation counts. Default: no-op.
func WithMetrics(recorder observability.MetricsRecorder) EditorOption {
	return func(c *editorConfig) {
		if recorder != nil {
			c.metrics = recorder
		}
	}
}

// WithInferrer replaces the role inference engine.
func WithInferrer(in *Inferrer) EditorOption {
	return func(c *editorConfig) {
		if in != nil {
			c.inferrer = in
		}
	}
}

// WithIDGenerator replaces the id minting function. Default: uuid.NewString.
func WithIDGenerator(fn func() string) EditorOption {
	return func(c *editorConfig) {
		if fn != nil {
			c.newID = fn
		}
	}
}
