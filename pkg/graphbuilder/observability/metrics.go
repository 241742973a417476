package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records graphbuilder metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordMutation records an editor mutation and how many elements its
	// re-derivation replaced.
	RecordMutation(ctx context.Context, op string, edgesChanged, nodesChanged int)

	// RecordValidation records a validation pass with its issue count.
	RecordValidation(ctx context.Context, project string, issues int)

	// RecordGeneration records one target rendering with its size, duration and error status.
	RecordGeneration(ctx context.Context, target string, sizeBytes int, duration time.Duration, err error)

	// RecordCacheLookup records a generation cache lookup.
	RecordCacheLookup(ctx context.Context, target string, hit bool)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	mutations        metric.Int64Counter
	derivedChanges   metric.Int64Counter
	validationIssues metric.Int64Histogram
	generateBytes    metric.Int64Histogram
	generateLatency  metric.Float64Histogram
	generateErrors   metric.Int64Counter
	cacheHits        metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("graphbuilder")

	mutations, err := meter.Int64Counter("graphbuilder.mutations",
		metric.WithDescription("Number of editor mutations"),
	)
	if err != nil {
		return nil, err
	}

	derivedChanges, err := meter.Int64Counter("graphbuilder.derived.changes",
		metric.WithDescription("Number of nodes and edges replaced by re-derivation"),
	)
	if err != nil {
		return nil, err
	}

	validationIssues, err := meter.Int64Histogram("graphbuilder.validation.issues",
		metric.WithDescription("Validation issues per pass"),
	)
	if err != nil {
		return nil, err
	}

	generateBytes, err := meter.Int64Histogram("graphbuilder.generate.bytes",
		metric.WithDescription("Generated source size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	generateLatency, err := meter.Float64Histogram("graphbuilder.generate.latency_ms",
		metric.WithDescription("Code generation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	generateErrors, err := meter.Int64Counter("graphbuilder.generate.errors",
		metric.WithDescription("Number of failed code generations"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter("graphbuilder.cache.hits",
		metric.WithDescription("Generation cache lookups, by hit status"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		mutations:        mutations,
		derivedChanges:   derivedChanges,
		validationIssues: validationIssues,
		generateBytes:    generateBytes,
		generateLatency:  generateLatency,
		generateErrors:   generateErrors,
		cacheHits:        cacheHits,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordMutation records an editor mutation.
func (m *otelMetrics) RecordMutation(ctx context.Context, op string, edgesChanged, nodesChanged int) {
	attrs := metric.WithAttributes(attribute.String("op", op))
	m.mutations.Add(ctx, 1, attrs)
	if changed := edgesChanged + nodesChanged; changed > 0 {
		m.derivedChanges.Add(ctx, int64(changed), attrs)
	}
}

// RecordValidation records a validation pass.
func (m *otelMetrics) RecordValidation(ctx context.Context, project string, issues int) {
	m.validationIssues.Record(ctx, int64(issues),
		metric.WithAttributes(attribute.String("project", project)))
}

// RecordGeneration records one target rendering.
func (m *otelMetrics) RecordGeneration(ctx context.Context, target string, sizeBytes int, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("target", target))
	m.generateLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		m.generateErrors.Add(ctx, 1, attrs)
		return
	}
	m.generateBytes.Record(ctx, int64(sizeBytes), attrs)
}

// RecordCacheLookup records a generation cache lookup.
func (m *otelMetrics) RecordCacheLookup(ctx context.Context, target string, hit bool) {
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target", target),
		attribute.Bool("hit", hit),
	))
}
