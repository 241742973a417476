package codegen

import (
	"context"
	"sync"
	"time"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/observability"
)

// agent builds a node that declares only the agent role.
func agent(id, label string, tools ...string) *graphbuilder.Node {
	return &graphbuilder.Node{
		ID:            id,
		Label:         label,
		Tools:         tools,
		DeclaredRoles: []graphbuilder.Role{graphbuilder.RoleAgent},
	}
}

func link(id, source, target string) *graphbuilder.Edge {
	return &graphbuilder.Edge{ID: id, Source: source, Target: target}
}

// canonical normalizes nodes and edges the way the editor would.
func canonical(nodes []*graphbuilder.Node, edges []*graphbuilder.Edge) *graphbuilder.Graph {
	return graphbuilder.Normalize(&graphbuilder.Graph{Nodes: nodes, Edges: edges})
}

// supportGraph returns Triage branching to Billing and Tech Support, both
// joining at Reply.
func supportGraph() *graphbuilder.Graph {
	return canonical(
		[]*graphbuilder.Node{
			agent("triage", "Triage", "web-search"),
			agent("billing", "Billing"),
			agent("tech", "Tech Support"),
			agent("reply", "Reply"),
		},
		[]*graphbuilder.Edge{
			link("e1", "triage", "billing"),
			link("e2", "triage", "tech"),
			link("e3", "billing", "reply"),
			link("e4", "tech", "reply"),
		},
	)
}

type recordingMetrics struct {
	observability.NoopMetrics
	mu          sync.Mutex
	validations []int
	generated   []string
	failed      []string
	hits        int
	misses      int
}

func (m *recordingMetrics) RecordValidation(_ context.Context, _ string, issues int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validations = append(m.validations, issues)
}

func (m *recordingMetrics) RecordGeneration(_ context.Context, target string, _ int, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failed = append(m.failed, target)
		return
	}
	m.generated = append(m.generated, target)
}

func (m *recordingMetrics) RecordCacheLookup(_ context.Context, _ string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}
