package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/catalog"
	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/codegen"
	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/config"
	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/observability"
	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/snapshot"
)

// defaultConfigFile is read from the working directory when --config is not given.
const defaultConfigFile = "graphbuilder.yaml"

// errIssues marks a run that completed but found validation issues.
var errIssues = errors.New("validation issues found")

// Globals are flags shared by every command.
type Globals struct {
	Config    string           `short:"c" type:"path" help:"Configuration file (default ./graphbuilder.yaml when present)."`
	LogLevel  string           `enum:"debug,info,warn,error" default:"warn" help:"Log level (${enum})."`
	LogFormat string           `enum:"text,json" default:"text" help:"Log format (${enum})."`
	Telemetry bool             `help:"Record OpenTelemetry metrics and spans through the global providers."`
	Version   kong.VersionFlag `help:"Print version and exit."`
}

// CLI is the kong command tree.
type CLI struct {
	Globals

	Generate  GenerateCmd  `cmd:"" help:"Generate program skeletons from a graph document."`
	Validate  ValidateCmd  `cmd:"" help:"Normalize a graph document and report issues."`
	Templates TemplatesCmd `cmd:"" help:"List or instantiate starter templates."`
	Tools     ToolsCmd     `cmd:"" help:"List the tool catalog."`
	Watch     WatchCmd     `cmd:"" help:"Regenerate whenever a graph document changes."`
	Snapshots SnapshotsCmd `cmd:"" help:"Inspect stored document revisions."`
}

// app is the runtime environment bound into every command's Run method.
type app struct {
	ctx      context.Context
	settings config.Settings
	logger   *slog.Logger
	stdout   io.Writer
	stderr   io.Writer
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("graphbuilder"),
		kong.Description("Validate agent workflow graphs and generate LangGraph skeletons."),
		kong.Writers(stdout, stderr),
		kong.Vars{"version": version},
	)
	if err != nil {
		fmt.Fprintln(stderr, "graphbuilder:", err)
		return 2
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintln(stderr, "graphbuilder:", err)
		return 2
	}

	a, err := newApp(ctx, cli.Globals, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "graphbuilder:", err)
		return 1
	}

	if err := kctx.Run(a); err != nil {
		fmt.Fprintln(stderr, "graphbuilder:", err)
		return 1
	}
	return 0
}

func newApp(ctx context.Context, g Globals, stdout, stderr io.Writer) (*app, error) {
	logger, err := newLogger(stderr, g.LogLevel, g.LogFormat)
	if err != nil {
		return nil, err
	}

	settings, err := loadSettings(g.Config)
	if err != nil {
		return nil, err
	}

	a := &app{
		ctx:      ctx,
		settings: settings,
		logger:   logger,
		stdout:   stdout,
		stderr:   stderr,
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
	}
	if g.Telemetry {
		a.metrics = observability.NewMetricsRecorder()
		a.spans = observability.NewSpanManager()
	}
	return a, nil
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func loadSettings(path string) (config.Settings, error) {
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return config.DefaultSettings(), nil
		}
		path = defaultConfigFile
	}
	settings, err := config.Load(path)
	if err != nil {
		return config.Settings{}, fmt.Errorf("load %s: %w", path, err)
	}

	// File references in a config file are relative to it.
	dir := filepath.Dir(path)
	settings.OutputDir = resolvePath(dir, settings.OutputDir)
	settings.ToolsFile = resolvePath(dir, settings.ToolsFile)
	settings.TemplatesGlob = resolvePath(dir, settings.TemplatesGlob)
	settings.SnapshotPath = resolvePath(dir, settings.SnapshotPath)
	return settings, nil
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// toolCatalog returns the configured tool catalog, or the default library.
func (a *app) toolCatalog() (*catalog.ToolCatalog, error) {
	if a.settings.ToolsFile == "" {
		return catalog.DefaultTools(), nil
	}
	data, err := os.ReadFile(a.settings.ToolsFile)
	if err != nil {
		return nil, fmt.Errorf("read tools: %w", err)
	}
	tools, err := catalog.LoadTools(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.settings.ToolsFile, err)
	}
	return catalog.NewToolCatalog(tools...)
}

// templateCatalog returns the default templates overlaid with any loaded
// from the configured glob. Loaded templates replace defaults with the same id.
func (a *app) templateCatalog() (*catalog.TemplateCatalog, error) {
	templates := catalog.DefaultTemplates().All()
	if a.settings.TemplatesGlob == "" {
		return catalog.NewTemplateCatalog(templates...)
	}

	base, pattern := doublestar.SplitPattern(a.settings.TemplatesGlob)
	loaded, err := catalog.LoadTemplatesFS(os.DirFS(base), pattern)
	if err != nil {
		return nil, fmt.Errorf("load templates %s: %w", a.settings.TemplatesGlob, err)
	}

	index := make(map[string]int, len(templates))
	for i, t := range templates {
		index[t.ID] = i
	}
	for _, t := range loaded {
		if i, ok := index[t.ID]; ok {
			templates[i] = t
			continue
		}
		index[t.ID] = len(templates)
		templates = append(templates, t)
	}
	return catalog.NewTemplateCatalog(templates...)
}

// exporter builds an Exporter from the settings. Empty targets fall back
// to the configured ones.
func (a *app) exporter(targets []string, strict bool, cache *codegen.Cache) (*codegen.Exporter, error) {
	if len(targets) == 0 {
		targets = a.settings.Targets
	}
	for _, name := range targets {
		if _, err := codegen.Lookup(name); err != nil {
			return nil, fmt.Errorf("%w (have %s)", err, strings.Join(codegen.Targets(), ", "))
		}
	}
	in, err := a.settings.Inferrer()
	if err != nil {
		return nil, err
	}

	opts := []codegen.ExporterOption{
		codegen.WithTargets(targets...),
		codegen.WithExportInferrer(in),
		codegen.WithStrict(strict || a.settings.Strict),
		codegen.WithExportLogger(a.logger),
		codegen.WithExportMetrics(a.metrics),
		codegen.WithExportSpans(a.spans),
	}
	if len(a.settings.Banner) > 0 {
		opts = append(opts, codegen.WithExportBanner(a.settings.Banner...))
	}
	if cache != nil {
		opts = append(opts, codegen.WithCache(cache))
	}
	return codegen.NewExporter(opts...), nil
}

// snapshotStore opens the configured store. Callers close it.
func (a *app) snapshotStore() (snapshot.Store, error) {
	if a.settings.SnapshotPath == "" {
		return nil, errors.New("no snapshot store configured (set snapshots.path)")
	}
	if err := os.MkdirAll(filepath.Dir(a.settings.SnapshotPath), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return snapshot.NewSQLiteStore(a.settings.SnapshotPath, snapshot.WithLogger(a.logger))
}
