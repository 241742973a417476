package codegen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
)

func unitNamesOf(p *Plan) []string {
	out := make([]string, len(p.Units))
	for i, u := range p.Units {
		out[i] = u.Name
	}
	return out
}

func TestBuildPlan_SupportGraph(t *testing.T) {
	p, err := BuildPlan(supportGraph())
	require.NoError(t, err)

	assert.Equal(t, []string{"triage", "billing", "tech_support", "reply"}, unitNamesOf(p))
	assert.Equal(t, "triage", p.Entry)
	assert.Equal(t, []Wire{
		{Source: "billing", Target: "reply"},
		{Source: "tech_support", Target: "reply"},
	}, p.Wires)
	require.Len(t, p.Routers, 1)
	assert.Equal(t, Router{
		Source: "triage",
		Routes: []Route{
			{Key: "billing", Target: "billing"},
			{Key: "tech_support", Target: "tech_support"},
		},
	}, p.Routers[0])
	assert.Equal(t, []string{"reply"}, p.Terminals)

	triage := p.Unit("triage")
	require.NotNil(t, triage)
	assert.Equal(t, "billing", triage.Default)
	assert.Equal(t, []string{"web-search"}, triage.Tools)
	assert.Equal(t, []graphbuilder.Role{graphbuilder.RoleAgent, graphbuilder.RoleTool, graphbuilder.RoleRouter}, triage.Roles)
	assert.Empty(t, p.Unit("billing").Default)
	assert.Nil(t, p.Unit("missing"))
}

func TestBuildPlan_TopologicalOrder(t *testing.T) {
	tests := []struct {
		name  string
		nodes []*graphbuilder.Node
		edges []*graphbuilder.Edge
		want  []string
		entry string
	}{
		{
			name:  "reverse IR order",
			nodes: []*graphbuilder.Node{agent("c", "C"), agent("b", "B"), agent("a", "A")},
			edges: []*graphbuilder.Edge{link("e1", "a", "b"), link("e2", "b", "c")},
			want:  []string{"a", "b", "c"},
			entry: "a",
		},
		{
			name:  "ties keep IR order",
			nodes: []*graphbuilder.Node{agent("x", "X"), agent("y", "Y"), agent("z", "Z")},
			edges: []*graphbuilder.Edge{link("e1", "y", "z")},
			want:  []string{"x", "y", "z"},
			entry: "x",
		},
		{
			name:  "cycle broken at earliest node",
			nodes: []*graphbuilder.Node{agent("b", "B"), agent("a", "A")},
			edges: []*graphbuilder.Edge{link("e1", "a", "b"), link("e2", "b", "a")},
			want:  []string{"b", "a"},
			entry: "",
		},
		{
			name:  "self loop",
			nodes: []*graphbuilder.Node{agent("a", "A")},
			edges: []*graphbuilder.Edge{link("e1", "a", "a")},
			want:  []string{"a"},
			entry: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := BuildPlan(canonical(tt.nodes, tt.edges))
			require.NoError(t, err)
			assert.Equal(t, tt.want, unitNamesOf(p))
			assert.Equal(t, tt.entry, p.Entry)
		})
	}
}

func TestBuildPlan_UnitNames(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		ids    []string
		want   []string
	}{
		{
			name:   "label slugs",
			labels: []string{"Research Agent", "Write-Up!"},
			want:   []string{"research_agent", "write_up"},
		},
		{
			name:   "duplicate labels are suffixed",
			labels: []string{"Writer", "Writer", "writer"},
			want:   []string{"writer", "writer_2", "writer_3"},
		},
		{
			name:   "state keys are not shadowed",
			labels: []string{"Messages", "Route"},
			want:   []string{"messages_2", "route_2"},
		},
		{
			name:   "empty label falls back to id prefix",
			labels: []string{"", "   "},
			ids:    []string{"7f3a9c21-aaaa", "Node-42"},
			want:   []string{"node_7f3a9c", "node_node_4"},
		},
		{
			name:   "no usable label or id",
			labels: []string{"!!!", "???"},
			ids:    []string{"***", "---"},
			want:   []string{"node_1", "node_2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes := make([]*graphbuilder.Node, len(tt.labels))
			for i, label := range tt.labels {
				id := string(rune('a' + i))
				if tt.ids != nil {
					id = tt.ids[i]
				}
				nodes[i] = agent(id, label)
			}
			p, err := BuildPlan(canonical(nodes, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, unitNamesOf(p))
		})
	}
}

func TestBuildPlan_RouteKeys(t *testing.T) {
	t.Run("missing keys are derived", func(t *testing.T) {
		g := canonical(
			[]*graphbuilder.Node{agent("a", "A"), agent("b", "Billing"), agent("c", "")},
			[]*graphbuilder.Edge{link("e1", "a", "b"), link("edge-xyz-123", "a", "c")},
		)
		for _, e := range g.Edges {
			e.RouteKey = ""
		}
		p, err := BuildPlan(g)
		require.NoError(t, err)
		require.Len(t, p.Routers, 1)
		assert.Equal(t, []Route{
			{Key: "billing", Target: "billing"},
			{Key: "route_edge-x", Target: "node_c"},
		}, p.Routers[0].Routes)
	})

	t.Run("duplicate keys are suffixed", func(t *testing.T) {
		g := canonical(
			[]*graphbuilder.Node{agent("a", "A"), agent("b", "B"), agent("c", "C")},
			[]*graphbuilder.Edge{link("e1", "a", "b"), link("e2", "a", "c")},
		)
		for _, e := range g.Edges {
			e.RouteKey = "next"
		}
		p, err := BuildPlan(g)
		require.NoError(t, err)
		require.Len(t, p.Routers, 1)
		assert.Equal(t, []string{"next", "next_2"}, []string{p.Routers[0].Routes[0].Key, p.Routers[0].Routes[1].Key})
		assert.Equal(t, "next", p.Unit("a").Default)
	})
}

func TestBuildPlan_RoutersOrderedBySource(t *testing.T) {
	g := canonical(
		[]*graphbuilder.Node{agent("s", "Start"), agent("m", "Middle"), agent("x", "X"), agent("y", "Y"), agent("z", "Z")},
		[]*graphbuilder.Edge{
			link("e1", "m", "y"),
			link("e2", "m", "z"),
			link("e3", "s", "m"),
			link("e4", "s", "x"),
		},
	)
	p, err := BuildPlan(g)
	require.NoError(t, err)
	require.Len(t, p.Routers, 2)
	assert.Equal(t, "start", p.Routers[0].Source)
	assert.Equal(t, "middle", p.Routers[1].Source)
	assert.ElementsMatch(t, []string{"x", "y", "z"}, p.Terminals)
}

func TestBuildPlan_InvariantErrors(t *testing.T) {
	tests := []struct {
		name   string
		graph  *graphbuilder.Graph
		nodeID string
		edgeID string
	}{
		{
			name:   "node without agent role",
			graph:  &graphbuilder.Graph{Nodes: []*graphbuilder.Node{agent("a", "A")}},
			nodeID: "a",
		},
		{
			name: "dangling target",
			graph: canonical(
				[]*graphbuilder.Node{agent("a", "A")},
				[]*graphbuilder.Edge{link("e1", "a", "ghost")},
			),
			edgeID: "e1",
		},
		{
			name: "corrupt role",
			graph: &graphbuilder.Graph{Nodes: []*graphbuilder.Node{{
				ID:    "a",
				Roles: []graphbuilder.Role{graphbuilder.RoleAgent, graphbuilder.Role(9)},
			}}},
			nodeID: "a",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPlan(tt.graph)
			require.Error(t, err)
			assert.True(t, errors.Is(err, graphbuilder.ErrInvariant))

			var invErr *graphbuilder.InvariantError
			require.True(t, errors.As(err, &invErr))
			assert.Equal(t, tt.nodeID, invErr.NodeID)
			assert.Equal(t, tt.edgeID, invErr.EdgeID)
		})
	}
}

func TestBuildPlan_EmptyGraph(t *testing.T) {
	p, err := BuildPlan(&graphbuilder.Graph{})
	require.NoError(t, err)
	assert.Empty(t, p.Units)
	assert.Empty(t, p.Entry)
	assert.Empty(t, p.Terminals)
}
