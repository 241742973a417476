package graphbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFingerprint tests which changes move the digest.
func TestFingerprint(t *testing.T) {
	base := Normalize(diamond())
	want := Fingerprint(base)
	assert.Len(t, want, 64)
	assert.Equal(t, want, Fingerprint(base.Clone()), "stable across copies")

	tests := []struct {
		name    string
		mutate  func(g *Graph)
		changes bool
	}{
		{"position", func(g *Graph) { g.Nodes[0].Position = Position{X: 999} }, false},
		{"meta", func(g *Graph) { g.Nodes[0].Meta = map[string]any{"color": "red"} }, false},
		{"declared roles", func(g *Graph) { g.Nodes[0].DeclaredRoles = nil }, false},
		{"label", func(g *Graph) { g.Nodes[0].Label = "Planner 2" }, true},
		{"description", func(g *Graph) { g.Nodes[1].Description = "Handles invoices." }, true},
		{"tools", func(g *Graph) { g.Nodes[1].Tools = []string{"email"} }, true},
		{"roles", func(g *Graph) { g.Nodes[1].Roles = []Role{RoleAgent, RoleMemory} }, true},
		{"route key", func(g *Graph) { g.Edges[0].RouteKey = "pay" }, true},
		{"edge target", func(g *Graph) { g.Edges[3].Target = "b" }, true},
		{"node order", func(g *Graph) { g.Nodes[0], g.Nodes[1] = g.Nodes[1], g.Nodes[0] }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := base.Clone()
			tt.mutate(g)
			if tt.changes {
				assert.NotEqual(t, want, Fingerprint(g))
			} else {
				assert.Equal(t, want, Fingerprint(g))
			}
		})
	}
}

// TestFingerprint_Empty tests the empty graph digest is stable.
func TestFingerprint_Empty(t *testing.T) {
	assert.Equal(t, Fingerprint(&Graph{}), Fingerprint(&Graph{Nodes: []*Node{}, Edges: []*Edge{}}))
}
