package codegen

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry maps target names and aliases to renderers.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	targets map[string]Target
	aliases map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		targets: make(map[string]Target),
		aliases: make(map[string]string),
	}
}

// Register adds or replaces a target under its name and the given aliases.
// Names are case-insensitive.
func (r *Registry) Register(t Target, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := strings.ToLower(t.Name())
	r.targets[name] = t
	for _, alias := range aliases {
		r.aliases[strings.ToLower(alias)] = name
	}
}

// Lookup resolves a target name or alias.
func (r *Registry) Lookup(name string) (Target, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	defer r.mu.RUnlock()
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	t, ok := r.targets[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, name)
	}
	return t, nil
}

// Names returns the canonical target names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.targets))
	for name := range r.targets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var defaultRegistry = func() *Registry {
	r := NewRegistry()
	r.Register(Python{}, "py")
	r.Register(TypeScript{}, "ts", "js", "javascript")
	return r
}()

// Register adds a target to the default registry.
func Register(t Target, aliases ...string) {
	defaultRegistry.Register(t, aliases...)
}

// Lookup resolves a target name or alias in the default registry.
func Lookup(name string) (Target, error) {
	return defaultRegistry.Lookup(name)
}

// Targets returns the canonical names in the default registry.
func Targets() []string {
	return defaultRegistry.Names()
}
