package codegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/observability"
)

// ErrInvalidGraph indicates a strict export refused a graph with validation issues.
var ErrInvalidGraph = errors.New("graph has validation issues")

// File is one generated source file.
type File struct {
	Target  string
	Name    string
	Content string
	// Cached reports whether the content came from the cache.
	Cached bool
}

// Result is the outcome of one export: validation findings plus the
// generated files, in target order.
type Result struct {
	Project string
	Issues  graphbuilder.Issues
	Files   []File
}

// Exporter normalizes, validates and renders documents for a fixed set of
// targets. It is safe for concurrent use when its Cache is.
type Exporter struct {
	targets  []string
	banner   []string
	inferrer *graphbuilder.Inferrer
	cache    *Cache
	strict   bool
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithTargets sets the targets rendered by Export. Default: every registered target.
func WithTargets(names ...string) ExporterOption {
	return func(x *Exporter) {
		x.targets = names
	}
}

// WithExportBanner sets the banner passed to every target.
func WithExportBanner(lines ...string) ExporterOption {
	return func(x *Exporter) {
		x.banner = lines
	}
}

// WithExportInferrer sets the inference engine used to normalize documents.
func WithExportInferrer(in *graphbuilder.Inferrer) ExporterOption {
	return func(x *Exporter) {
		if in != nil {
			x.inferrer = in
		}
	}
}

// WithCache memoizes renderings across exports.
func WithCache(c *Cache) ExporterOption {
	return func(x *Exporter) {
		x.cache = c
	}
}

// WithStrict makes Export fail with ErrInvalidGraph when validation reports issues.
// By default generation proceeds best-effort.
func WithStrict(strict bool) ExporterOption {
	return func(x *Exporter) {
		x.strict = strict
	}
}

// WithExportLogger enables structured logging. Nil disables it.
func WithExportLogger(logger *slog.Logger) ExporterOption {
	return func(x *Exporter) {
		x.logger = logger
	}
}

// WithExportMetrics sets the metrics recorder. Nil disables metrics.
//
// Use observability.NewMetricsRecorder() for OpenTelemetry metrics.
func WithExportMetrics(m observability.MetricsRecorder) ExporterOption {
	return func(x *Exporter) {
		if m == nil {
			m = observability.NoopMetrics{}
		}
		x.metrics = m
	}
}

// WithExportSpans sets the span manager. Nil disables tracing.
func WithExportSpans(sm observability.SpanManager) ExporterOption {
	return func(x *Exporter) {
		if sm == nil {
			sm = observability.NoopSpanManager{}
		}
		x.spans = sm
	}
}

// NewExporter creates an exporter.
//
// Example:
//
//	x := codegen.NewExporter(
//	    codegen.WithTargets("python"),
//	    codegen.WithExportLogger(logger),
//	    codegen.WithExportMetrics(observability.NewMetricsRecorder()),
//	)
//	res, err := x.Export(ctx, doc)
func NewExporter(opts ...ExporterOption) *Exporter {
	x := &Exporter{
		banner:   DefaultBanner,
		inferrer: graphbuilder.NewInferrer(),
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(x)
	}
	if len(x.targets) == 0 {
		x.targets = Targets()
	}
	return x
}

// Export normalizes the document's graph, validates it, and renders every
// configured target. Validation issues are returned in the result; they
// only fail the export in strict mode. Unknown targets and broken
// invariants fail the export.
func (x *Exporter) Export(ctx context.Context, doc *graphbuilder.Document) (res *Result, err error) {
	g := x.inferrer.Normalize(doc.Graph())
	project := doc.Name
	if project == "" {
		project = "graph"
	}

	ctx, span := x.spans.StartExportSpan(ctx, project, len(g.Nodes))
	defer func() { x.spans.EndSpanWithError(span, err) }()

	var vopts []graphbuilder.ValidateOption
	if doc.Entry != "" {
		vopts = append(vopts, graphbuilder.WithEntry(doc.Entry))
	}
	res = &Result{Project: project, Issues: graphbuilder.Validate(g.Nodes, g.Edges, vopts...)}
	observability.LogValidation(x.logger, project, res.Issues.Messages())
	x.metrics.RecordValidation(ctx, project, len(res.Issues))
	if x.strict && len(res.Issues) > 0 {
		return res, fmt.Errorf("%w: %w", ErrInvalidGraph, res.Issues.Err())
	}

	o := Options{Project: project, Banner: x.banner, Entry: doc.Entry}
	for _, name := range x.targets {
		file, err := x.render(ctx, name, g, o)
		if err != nil {
			return res, err
		}
		res.Files = append(res.Files, file)
	}
	return res, nil
}

func (x *Exporter) render(ctx context.Context, name string, g *graphbuilder.Graph, o Options) (file File, err error) {
	t, err := Lookup(name)
	if err != nil {
		return File{}, err
	}
	logger := observability.EnrichLogger(x.logger, o.Project, t.Name())

	ctx, span := x.spans.StartGenerateSpan(ctx, t.Name())
	defer func() { x.spans.EndSpanWithError(span, err) }()

	start := time.Now()
	done := observability.TimedOperation()
	var (
		out    []byte
		cached bool
	)
	if x.cache != nil {
		out, cached, err = x.cache.generate(ctx, t, g, o)
	} else {
		out, err = generate(t, g, o)
	}
	x.metrics.RecordGeneration(ctx, t.Name(), len(out), time.Since(start), err)
	if err != nil {
		observability.LogGenerateError(logger, t.Name(), err)
		return File{}, fmt.Errorf("generate %s: %w", t.Name(), err)
	}
	if cached {
		x.spans.AddSpanEvent(ctx, "cache_hit", attribute.String("target", t.Name()))
	}
	observability.LogGenerate(logger, t.Name(), len(out), done(), cached)

	return File{
		Target:  t.Name(),
		Name:    t.FileName(o.Project),
		Content: string(out),
		Cached:  cached,
	}, nil
}
