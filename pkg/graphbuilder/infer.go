package graphbuilder

import (
	"regexp"
	"slices"
)

// memoryVocabulary matches the whole words that mark a node as memory-related.
var memoryVocabulary = regexp.MustCompile(`(?i)\b(memory|context|history|store|persist|recall|retrieve|knowledge|cache)\b`)

// DefaultMemoryTools are the tool ids that imply the memory role.
var DefaultMemoryTools = []string{"db-query", "notion"}

// Signal is one structural rule of the inference engine. When Active
// reports true for a node, Role is added to the node's derived roles.
type Signal struct {
	// Role is the role the signal contributes.
	Role Role
	// Name identifies the signal in explanations ("tools", "fan-out", ...).
	Name string
	// Active reports whether the signal fires for a node with the given out-degree.
	Active func(n *Node, outDegree int) bool
}

// Activation records why a node holds a role.
type Activation struct {
	Role Role
	// Source is "declared" for user-declared roles, otherwise the signal name.
	Source string
}

// Inferrer derives node roles from declared roles plus an ordered list of
// signals. Create with NewInferrer; an Inferrer is immutable and safe for
// concurrent use.
type Inferrer struct {
	signals       []Signal
	extra         []Signal
	memoryTools   map[string]bool
	memoryPattern *regexp.Regexp
	sticky        bool
}

// InferOption configures an Inferrer.
type InferOption func(*Inferrer)

// WithMemoryTools replaces the set of tool ids that imply the memory role.
func WithMemoryTools(ids ...string) InferOption {
	return func(in *Inferrer) {
		in.memoryTools = make(map[string]bool, len(ids))
		for _, id := range ids {
			in.memoryTools[id] = true
		}
	}
}

// WithMemoryPattern replaces the vocabulary pattern matched against
// "label description". A nil pattern disables the vocabulary signal.
func WithMemoryPattern(re *regexp.Regexp) InferOption {
	return func(in *Inferrer) {
		in.memoryPattern = re
	}
}

// WithStickyRoles folds previously derived roles back into the declared set,
// so a role stays once any signal has produced it. By default derived roles
// follow the live signals.
func WithStickyRoles(enabled bool) InferOption {
	return func(in *Inferrer) {
		in.sticky = enabled
	}
}

// WithSignal appends a custom signal after the built-in ones.
func WithSignal(s Signal) InferOption {
	return func(in *Inferrer) {
		if s.Active != nil && s.Role.Valid() {
			in.extra = append(in.extra, s)
		}
	}
}

// NewInferrer creates an inferrer with the built-in signals:
//
//	agent   always
//	tool    tools is non-empty
//	router  out-degree > 1
//	memory  label/description vocabulary, or a memory tool attached
func NewInferrer(opts ...InferOption) *Inferrer {
	in := &Inferrer{memoryPattern: memoryVocabulary}
	WithMemoryTools(DefaultMemoryTools...)(in)
	for _, opt := range opts {
		opt(in)
	}
	in.signals = append(in.builtinSignals(), in.extra...)
	return in
}

var defaultInferrer = NewInferrer()

func (in *Inferrer) builtinSignals() []Signal {
	return []Signal{
		{Role: RoleAgent, Name: "always", Active: func(*Node, int) bool { return true }},
		{Role: RoleTool, Name: "tools", Active: func(n *Node, _ int) bool { return len(n.Tools) > 0 }},
		{Role: RoleRouter, Name: "fan-out", Active: func(_ *Node, out int) bool { return out > 1 }},
		{Role: RoleMemory, Name: "vocabulary", Active: func(n *Node, _ int) bool {
			return in.memoryPattern != nil && in.memoryPattern.MatchString(n.Label+" "+n.Description)
		}},
		{Role: RoleMemory, Name: "memory-tool", Active: func(n *Node, _ int) bool {
			return slices.ContainsFunc(n.Tools, func(id string) bool { return in.memoryTools[id] })
		}},
	}
}

// Signals returns the inferrer's signals in evaluation order.
func (in *Inferrer) Signals() []Signal {
	return slices.Clone(in.signals)
}

// Sticky reports whether derived roles are folded into the declared set.
func (in *Inferrer) Sticky() bool {
	return in.sticky
}

// InferRoles recomputes derived roles with the default inferrer.
func InferRoles(nodes []*Node, edges []*Edge) []*Node {
	return defaultInferrer.Infer(nodes, edges)
}

// Infer recomputes each node's roles as the canonical union of its declared
// roles and the active signals. Nodes whose role sequence is already correct
// are returned by reference; others are replaced by updated copies.
func (in *Inferrer) Infer(nodes []*Node, edges []*Edge) []*Node {
	if nodes == nil {
		return nil
	}
	outCount := OutDegrees(edges)
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = in.inferNode(n, outCount[n.ID])
	}
	return out
}

func (in *Inferrer) inferNode(n *Node, outDegree int) *Node {
	merged := make([]Role, 0, len(n.DeclaredRoles)+len(n.Roles)+len(in.signals))
	merged = append(merged, n.DeclaredRoles...)
	if in.sticky {
		merged = append(merged, n.Roles...)
	}
	for _, s := range in.signals {
		if s.Active(n, outDegree) {
			merged = append(merged, s.Role)
		}
	}

	next := CanonicalRoles(merged)
	if slices.Equal(next, n.Roles) {
		return n
	}
	cp := n.Clone()
	cp.Roles = next
	return cp
}

// Explain lists, in canonical role order, every reason the node holds
// each of its roles given the current edges.
func (in *Inferrer) Explain(n *Node, edges []*Edge) []Activation {
	outDegree := OutDegrees(edges)[n.ID]
	var acts []Activation
	for _, role := range canonicalRoles {
		if HasRole(n.DeclaredRoles, role) {
			acts = append(acts, Activation{Role: role, Source: "declared"})
		}
		if in.sticky && HasRole(n.Roles, role) && !HasRole(n.DeclaredRoles, role) {
			acts = append(acts, Activation{Role: role, Source: "sticky"})
		}
		for _, s := range in.signals {
			if s.Role == role && s.Active(n, outDegree) {
				acts = append(acts, Activation{Role: role, Source: s.Name})
			}
		}
	}
	return acts
}

// LiveSignal reports whether any signal currently backs role on n.
func (in *Inferrer) LiveSignal(n *Node, role Role, edges []*Edge) bool {
	outDegree := OutDegrees(edges)[n.ID]
	for _, s := range in.signals {
		if s.Role == role && s.Active(n, outDegree) {
			return true
		}
	}
	return false
}
