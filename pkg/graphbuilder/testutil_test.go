package graphbuilder

import (
	"fmt"
)

// Test fixtures shared across tests

// node builds an agent node with the given tools.
func node(id, label string, tools ...string) *Node {
	return &Node{
		ID:            id,
		Label:         label,
		Tools:         tools,
		DeclaredRoles: []Role{RoleAgent},
	}
}

// edge builds a normal edge.
func edge(id, source, target string) *Edge {
	return &Edge{ID: id, Source: source, Target: target}
}

// sequentialIDs returns an id generator yielding prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// newTestEditor returns an editor with deterministic ids.
func newTestEditor(opts ...EditorOption) *Editor {
	return NewEditor(append([]EditorOption{WithIDGenerator(sequentialIDs("id"))}, opts...)...)
}

// kinds returns the edge kinds in order.
func kinds(edges []*Edge) []EdgeKind {
	out := make([]EdgeKind, len(edges))
	for i, e := range edges {
		out[i] = e.Kind
	}
	return out
}

// routeKeys returns the route keys in order.
func routeKeys(edges []*Edge) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.RouteKey
	}
	return out
}

// diamond returns A→B, A→C, B→D, C→D.
func diamond() *Graph {
	return &Graph{
		Nodes: []*Node{
			node("a", "Planner"),
			node("b", "Billing"),
			node("c", "Support"),
			node("d", "Writer"),
		},
		Edges: []*Edge{
			edge("e1", "a", "b"),
			edge("e2", "a", "c"),
			edge("e3", "b", "d"),
			edge("e4", "c", "d"),
		},
	}
}
