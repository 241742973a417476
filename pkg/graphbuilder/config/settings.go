package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
)

// ErrInvalidSettings indicates a configuration that cannot drive the CLI.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the typed view of a graphbuilder configuration file:
//
//	project: support-copilot
//	entry: triage
//	codegen:
//	  targets: [python, typescript]
//	  output: ./generated
//	  banner: ["${project}: generated by graphbuilder"]
//	  strict: true
//	inference:
//	  memory_tools: [db-query, notion]
//	  memory_pattern: '(?i)\b(memory|history)\b'
//	  sticky_roles: false
//	catalog:
//	  tools: tools.yaml
//	  templates: "templates/**/*.yaml"
//	snapshots:
//	  path: .graphbuilder/snapshots.db
//	watch:
//	  debounce: 250ms
type Settings struct {
	Project string `validate:"required"`
	Entry   string

	Targets   []string `validate:"required,min=1,dive,required"`
	OutputDir string   `validate:"required"`
	Banner    []string
	Strict    bool

	// MemoryTools is nil when the configuration does not name any, leaving
	// the inference defaults in place.
	MemoryTools   []string
	MemoryPattern string
	StickyRoles   bool

	ToolsFile     string
	TemplatesGlob string

	SnapshotPath string

	WatchDebounce time.Duration `validate:"gte=0"`
}

// DefaultSettings returns the settings used when no configuration file is given.
func DefaultSettings() Settings {
	return Settings{
		Project:       "graph",
		Targets:       []string{"python", "typescript"},
		OutputDir:     ".",
		WatchDebounce: 200 * time.Millisecond,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// SettingsFrom extracts Settings from cfg on top of DefaultSettings and
// validates them.
func SettingsFrom(cfg Config) (Settings, error) {
	s := DefaultSettings()
	s.Project = cfg.String("project", s.Project)
	s.Entry = cfg.String("entry", s.Entry)

	codegen := cfg.Sub("codegen")
	s.Targets = codegen.StringSlice("targets", s.Targets)
	s.OutputDir = codegen.String("output", s.OutputDir)
	s.Banner = codegen.StringSlice("banner", s.Banner)
	s.Strict = codegen.Bool("strict", s.Strict)

	inference := cfg.Sub("inference")
	s.MemoryTools = inference.StringSlice("memory_tools", s.MemoryTools)
	s.MemoryPattern = inference.String("memory_pattern", s.MemoryPattern)
	s.StickyRoles = inference.Bool("sticky_roles", s.StickyRoles)

	s.ToolsFile = cfg.String("catalog.tools", s.ToolsFile)
	s.TemplatesGlob = cfg.String("catalog.templates", s.TemplatesGlob)
	s.SnapshotPath = cfg.String("snapshots.path", s.SnapshotPath)
	s.WatchDebounce = cfg.Duration("watch.debounce", s.WatchDebounce)

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Load reads a configuration file and extracts Settings from it.
func Load(path string) (Settings, error) {
	cfg, err := FromFile(path)
	if err != nil {
		return Settings{}, err
	}
	return SettingsFrom(cfg)
}

// Validate checks required fields and that the memory pattern compiles.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		msgs := make([]string, len(fieldErrs))
		for i, fe := range fieldErrs {
			msgs[i] = fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag())
		}
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(msgs, "; "))
	}
	if s.MemoryPattern != "" {
		if _, err := regexp.Compile(s.MemoryPattern); err != nil {
			return fmt.Errorf("%w: memory_pattern: %w", ErrInvalidSettings, err)
		}
	}
	return nil
}

// Inferrer builds the role inference engine the settings describe.
func (s Settings) Inferrer() (*graphbuilder.Inferrer, error) {
	var opts []graphbuilder.InferOption
	if s.MemoryTools != nil {
		opts = append(opts, graphbuilder.WithMemoryTools(s.MemoryTools...))
	}
	if s.MemoryPattern != "" {
		re, err := regexp.Compile(s.MemoryPattern)
		if err != nil {
			return nil, fmt.Errorf("%w: memory_pattern: %w", ErrInvalidSettings, err)
		}
		opts = append(opts, graphbuilder.WithMemoryPattern(re))
	}
	opts = append(opts, graphbuilder.WithStickyRoles(s.StickyRoles))
	return graphbuilder.NewInferrer(opts...), nil
}
