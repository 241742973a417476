package codegen

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
)

// DefaultBanner is the header written when no banner is configured.
var DefaultBanner = []string{"Generated by graphbuilder from ${project} (${target}). Fill in the node bodies."}

// Options controls code generation.
type Options struct {
	// Project names the generated program. Default: "graph".
	Project string
	// Banner lines are written as a header comment. ${project}, ${target}
	// and ${nodes} are expanded; unknown variables are kept as written.
	Banner []string
	// Entry overrides the entry node id. Ignored when no such node exists.
	Entry string
}

// Option is a functional option for Generate.
type Option func(*Options)

// WithProject sets the project name.
func WithProject(name string) Option {
	return func(o *Options) {
		o.Project = name
	}
}

// WithBanner replaces the header comment lines. An empty banner omits the header.
//
// Example:
//
//	src, err := codegen.Generate("python", g,
//	    codegen.WithBanner("${project}: generated, do not edit"))
func WithBanner(lines ...string) Option {
	return func(o *Options) {
		o.Banner = lines
	}
}

// WithEntry selects the entry node when several nodes lack predecessors.
func WithEntry(nodeID string) Option {
	return func(o *Options) {
		o.Entry = nodeID
	}
}

func buildOptions(opts []Option) Options {
	o := Options{Project: "graph", Banner: DefaultBanner}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Project == "" {
		o.Project = "graph"
	}
	return o
}

// Generate renders g with the named target.
//
// Generation does not require a prior Validate: a graph without an entry
// gets no START edge, and missing or duplicate route keys are derived. An
// edge referencing a missing node or a node without the agent role is a
// broken invariant and returns an *graphbuilder.InvariantError.
//
// Example:
//
//	src, err := codegen.Generate("typescript", ed.Graph(), codegen.WithProject("support-copilot"))
func Generate(target string, g *graphbuilder.Graph, opts ...Option) (string, error) {
	t, err := Lookup(target)
	if err != nil {
		return "", err
	}
	out, err := generate(t, g, buildOptions(opts))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// MustGenerate is like Generate but panics on error.
func MustGenerate(target string, g *graphbuilder.Graph, opts ...Option) string {
	src, err := Generate(target, g, opts...)
	if err != nil {
		panic(fmt.Sprintf("codegen: %v", err))
	}
	return src
}

func generate(t Target, g *graphbuilder.Graph, o Options) ([]byte, error) {
	p, err := BuildPlan(g)
	if err != nil {
		return nil, err
	}
	p.Project = o.Project
	if o.Entry != "" {
		for _, u := range p.Units {
			if u.ID == o.Entry {
				p.Entry = u.Name
				break
			}
		}
	}
	p.Banner = expandBanner(o.Banner, map[string]string{
		"project": o.Project,
		"target":  t.Name(),
		"nodes":   strconv.Itoa(len(p.Units)),
	})
	return t.Render(p)
}

// bannerVar matches ${name}.
var bannerVar = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

func expandBanner(lines []string, vars map[string]string) []string {
	if len(lines) == 0 {
		return nil
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = bannerVar.ReplaceAllStringFunc(line, func(match string) string {
			if v, ok := vars[match[2:len(match)-1]]; ok {
				return v
			}
			return match
		})
	}
	return out
}
