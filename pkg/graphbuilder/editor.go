package graphbuilder

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/observability"
)

// DefaultNodeDescription is the description given to nodes added without one.
const DefaultNodeDescription = "Describe what this node should do."

// Editor owns one graph and applies canvas mutation events to it, one at a
// time, re-deriving edge kinds, route keys and roles after each.
//
// Nodes and edges are copy-on-write: a mutation replaces the affected
// element instead of changing it, so snapshots returned by Graph stay valid
// and untouched elements keep their identity across mutations.
//
// Editor is NOT safe for concurrent use. The owner serializes mutations.
type Editor struct {
	cfg   editorConfig
	graph *Graph
}

// NewEditor creates an editor holding an empty graph.
func NewEditor(opts ...EditorOption) *Editor {
	cfg := defaultEditorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Editor{cfg: cfg, graph: &Graph{}}
}

// Inferrer returns the editor's role inference engine.
func (ed *Editor) Inferrer() *Inferrer {
	return ed.cfg.inferrer
}

// Load replaces the graph, for example with a template snapshot or a
// document read from disk, and normalizes it. Nodes that carry roles but
// declare none have those roles declared first (see DeclareRoles).
func (ed *Editor) Load(g *Graph) {
	next := &Graph{
		Nodes: DeclareRoles(g.Nodes),
		Edges: slices.Clone(g.Edges),
	}
	ed.commit("load", "", next)
}

// Graph returns a snapshot of the current canonical graph. The slices are
// fresh; the elements are shared and must be treated as read-only.
func (ed *Editor) Graph() *Graph {
	return &Graph{
		Nodes: slices.Clone(ed.graph.Nodes),
		Edges: slices.Clone(ed.graph.Edges),
	}
}

// Document wraps the current graph for serialization.
func (ed *Editor) Document(name string) *Document {
	return NewDocument(name, ed.Graph())
}

// Node returns the current node with the given id, or nil.
func (ed *Editor) Node(id string) *Node {
	return ed.graph.Node(id)
}

// Edge returns the current edge with the given id, or nil.
func (ed *Editor) Edge(id string) *Edge {
	return ed.graph.Edge(id)
}

// AddNode creates a node with a fresh id and the given initial role.
// An empty label becomes "<Role> node"; an empty description becomes
// DefaultNodeDescription.
func (ed *Editor) AddNode(role Role, label, description string, tools ...string) *Node {
	if strings.TrimSpace(label) == "" {
		name := role.String()
		label = strings.ToUpper(name[:1]) + name[1:] + " node"
	}
	if strings.TrimSpace(description) == "" {
		description = DefaultNodeDescription
	}
	index := len(ed.graph.Nodes)
	n := &Node{
		ID:            ed.cfg.newID(),
		Label:         label,
		Description:   description,
		Tools:         slices.Clone(tools),
		DeclaredRoles: []Role{role},
		Position:      Position{X: 140 + float64(index)*30, Y: 120 + float64(index)*40},
	}

	next := ed.Graph()
	next.Nodes = append(next.Nodes, n)
	ed.commit("add_node", n.ID, next)
	return ed.graph.Node(n.ID)
}

// InsertNode adds a fully specified node, keeping its id.
func (ed *Editor) InsertNode(n Node) (*Node, error) {
	if n.ID == "" {
		return nil, &MutationError{Op: "insert_node", Err: ErrEmptyID}
	}
	if ed.graph.Node(n.ID) != nil {
		return nil, &MutationError{Op: "insert_node", ID: n.ID, Err: ErrDuplicateID}
	}
	next := ed.Graph()
	next.Nodes = append(next.Nodes, n.Clone())
	ed.commit("insert_node", n.ID, next)
	return ed.graph.Node(n.ID), nil
}

// MoveNode updates a node's canvas position. Derived fields are unaffected.
func (ed *Editor) MoveNode(id string, pos Position) error {
	return ed.updateNode("move_node", id, func(n *Node) {
		n.Position = pos
	})
}

// UpdateNode applies fn to a copy of the node and re-derives. The node id
// cannot be changed through fn.
//
// Example:
//
//	err := ed.UpdateNode(id, func(n *graphbuilder.Node) {
//	    n.Label = "Triage"
//	    n.Description = "Classify intent."
//	})
func (ed *Editor) UpdateNode(id string, fn func(n *Node)) error {
	return ed.updateNode("update_node", id, fn)
}

// SetTools replaces the node's tool references.
func (ed *Editor) SetTools(id string, tools ...string) error {
	return ed.updateNode("set_tools", id, func(n *Node) {
		n.Tools = slices.Clone(tools)
	})
}

// ToggleTool attaches the tool if absent, otherwise removes every
// occurrence of it.
func (ed *Editor) ToggleTool(id, toolID string) error {
	return ed.updateNode("toggle_tool", id, func(n *Node) {
		if slices.Contains(n.Tools, toolID) {
			n.Tools = slices.DeleteFunc(n.Tools, func(t string) bool { return t == toolID })
			return
		}
		n.Tools = append(n.Tools, toolID)
	})
}

// SetDeclaredRoles replaces the node's declared roles. Derived roles backed
// by a live signal are kept regardless.
func (ed *Editor) SetDeclaredRoles(id string, roles ...Role) error {
	for _, r := range roles {
		if !r.Valid() {
			return &MutationError{Op: "set_roles", ID: id, Err: fmt.Errorf("%w: %d", ErrUnknownRole, int(r))}
		}
	}
	return ed.updateNode("set_roles", id, func(n *Node) {
		n.DeclaredRoles = CanonicalRoles(roles)
		if ed.cfg.inferrer.Sticky() {
			n.Roles = nil
		}
	})
}

// AddRole declares an additional role on the node.
func (ed *Editor) AddRole(id string, role Role) error {
	if !role.Valid() {
		return &MutationError{Op: "add_role", ID: id, Err: fmt.Errorf("%w: %d", ErrUnknownRole, int(role))}
	}
	return ed.updateNode("add_role", id, func(n *Node) {
		n.DeclaredRoles = CanonicalRoles(append(slices.Clone(n.DeclaredRoles), role))
	})
}

// RemoveRole withdraws a declared role. The removal only shows in the
// derived roles when no structural signal backs the role: removing "tool"
// from a node that still has tools leaves it in place. The agent role
// cannot be removed.
func (ed *Editor) RemoveRole(id string, role Role) error {
	if role == RoleAgent {
		return &MutationError{Op: "remove_role", ID: id, Err: ErrRoleLocked}
	}
	return ed.updateNode("remove_role", id, func(n *Node) {
		drop := func(r Role) bool { return r == role }
		n.DeclaredRoles = slices.DeleteFunc(n.DeclaredRoles, drop)
		if ed.cfg.inferrer.Sticky() {
			n.Roles = slices.DeleteFunc(n.Roles, drop)
		}
	})
}

// RemoveNode deletes a node and every edge touching it. Neighbouring
// edges are reclassified by the following normalization.
func (ed *Editor) RemoveNode(id string) error {
	if ed.graph.Node(id) == nil {
		return &MutationError{Op: "remove_node", ID: id, Err: ErrNodeNotFound}
	}
	next := ed.Graph()
	next.Nodes = slices.DeleteFunc(next.Nodes, func(n *Node) bool { return n.ID == id })
	next.Edges = slices.DeleteFunc(next.Edges, func(e *Edge) bool { return e.Source == id || e.Target == id })
	ed.commit("remove_node", id, next)
	return nil
}

// Connect adds an edge from source to target with a fresh id. Connecting
// two nodes that are already connected in that direction returns the
// existing edge.
func (ed *Editor) Connect(source, target string) (*Edge, error) {
	for _, e := range ed.graph.Edges {
		if e.Source == source && e.Target == target {
			return e, nil
		}
	}
	return ed.ConnectEdge(Edge{Source: source, Target: target})
}

// ConnectEdge adds a fully specified edge. A missing id is minted; kind
// and route key are re-derived like any other edge.
func (ed *Editor) ConnectEdge(e Edge) (*Edge, error) {
	if err := ed.requireEndpoints("connect", e.ID, e.Source, e.Target); err != nil {
		return nil, err
	}
	if e.ID == "" {
		e.ID = ed.cfg.newID()
	} else if ed.graph.Edge(e.ID) != nil {
		return nil, &MutationError{Op: "connect", ID: e.ID, Err: ErrDuplicateID}
	}

	next := ed.Graph()
	next.Edges = append(next.Edges, e.Clone())
	ed.commit("connect", e.ID, next)
	return ed.graph.Edge(e.ID), nil
}

// RerouteEdge moves an edge to new endpoints.
func (ed *Editor) RerouteEdge(id, source, target string) error {
	if err := ed.requireEndpoints("reroute_edge", id, source, target); err != nil {
		return err
	}
	return ed.updateEdge("reroute_edge", id, func(e *Edge) {
		e.Source = source
		e.Target = target
	})
}

// SetRouteKey renames the route key of a conditional edge. An empty key
// clears it so the default is derived again.
func (ed *Editor) SetRouteKey(id, key string) error {
	e := ed.graph.Edge(id)
	if e == nil {
		return &MutationError{Op: "set_route_key", ID: id, Err: ErrEdgeNotFound}
	}
	if e.Kind != EdgeConditional {
		return &MutationError{Op: "set_route_key", ID: id, Err: ErrRouteKeyOnNormal}
	}
	return ed.updateEdge("set_route_key", id, func(e *Edge) {
		e.RouteKey = strings.TrimSpace(key)
	})
}

// SetEdgeKind applies the inspector's edge-kind toggle.
//
// Marking an edge conditional while its source still has a single outgoing
// edge preselects it: the edge becomes conditional with a default route key
// for this mutation only. The next normalization keeps it conditional (and
// keeps its key) only if a second branch has been added by then; otherwise
// it is demoted again. Marking a preselected edge normal ends the window at
// once. Marking a branching edge normal is rejected with ErrEdgeKindDerived.
func (ed *Editor) SetEdgeKind(id string, kind EdgeKind) error {
	e := ed.graph.Edge(id)
	if e == nil {
		return &MutationError{Op: "set_edge_kind", ID: id, Err: ErrEdgeNotFound}
	}
	branching := OutDegrees(ed.graph.Edges)[e.Source] > 1

	switch kind {
	case EdgeNormal:
		if branching {
			return &MutationError{Op: "set_edge_kind", ID: id, Err: ErrEdgeKindDerived}
		}
		if e.Kind == EdgeNormal {
			return nil
		}
		// Ends a preselect: normalization demotes the lone edge.
		return ed.updateEdge("set_edge_kind", id, func(e *Edge) {
			e.Kind = EdgeNormal
			e.RouteKey = ""
		})
	case EdgeConditional:
		if branching || e.Kind == EdgeConditional {
			return nil
		}
		if err := ed.requireEndpoints("set_edge_kind", id, e.Source, e.Target); err != nil {
			return err
		}
		cp := e.Clone()
		cp.Kind = EdgeConditional
		if cp.RouteKey == "" {
			ordinal := slices.Index(ed.graph.Edges, e) + 1
			cp.RouteKey = DefaultRouteKey(ed.graph.Node(e.Target).Label, e.ID, ordinal)
		}
		next := ed.Graph()
		next.Edges[position(next.Edges, id)] = cp
		// Preselect: no normalization in this mutation.
		ed.graph = next
		observability.LogMutation(ed.cfg.logger, "preselect_conditional", id)
		ed.cfg.metrics.RecordMutation(context.Background(), "set_edge_kind", 1, 0)
		return nil
	default:
		return &MutationError{Op: "set_edge_kind", ID: id, Err: fmt.Errorf("%w: %d", ErrUnknownEdgeKind, int(kind))}
	}
}

// RemoveEdge deletes an edge. Its source's remaining edges are
// reclassified by the following normalization.
func (ed *Editor) RemoveEdge(id string) error {
	if ed.graph.Edge(id) == nil {
		return &MutationError{Op: "remove_edge", ID: id, Err: ErrEdgeNotFound}
	}
	next := ed.Graph()
	next.Edges = slices.DeleteFunc(next.Edges, func(e *Edge) bool { return e.ID == id })
	ed.commit("remove_edge", id, next)
	return nil
}

func (ed *Editor) updateNode(op, id string, fn func(n *Node)) error {
	i := slices.IndexFunc(ed.graph.Nodes, func(n *Node) bool { return n.ID == id })
	if i < 0 {
		return &MutationError{Op: op, ID: id, Err: ErrNodeNotFound}
	}
	cp := ed.graph.Nodes[i].Clone()
	fn(cp)
	cp.ID = id

	next := ed.Graph()
	next.Nodes[i] = cp
	ed.commit(op, id, next)
	return nil
}

func (ed *Editor) updateEdge(op, id string, fn func(e *Edge)) error {
	i := position(ed.graph.Edges, id)
	if i < 0 {
		return &MutationError{Op: op, ID: id, Err: ErrEdgeNotFound}
	}
	cp := ed.graph.Edges[i].Clone()
	fn(cp)
	cp.ID = id

	next := ed.Graph()
	next.Edges[i] = cp
	ed.commit(op, id, next)
	return nil
}

func (ed *Editor) requireEndpoints(op, id, source, target string) error {
	if ed.graph.Node(source) == nil {
		return &MutationError{Op: op, ID: id, Err: fmt.Errorf("%w: source %q", ErrNodeNotFound, source)}
	}
	if ed.graph.Node(target) == nil {
		return &MutationError{Op: op, ID: id, Err: fmt.Errorf("%w: target %q", ErrNodeNotFound, target)}
	}
	return nil
}

// commit normalizes next and installs it as the current graph.
func (ed *Editor) commit(op, id string, next *Graph) {
	normalized := ed.cfg.inferrer.Normalize(next)
	changedEdges := countReplaced(next.Edges, normalized.Edges)
	changedNodes := countReplaced(next.Nodes, normalized.Nodes)
	ed.graph = normalized

	observability.LogMutation(ed.cfg.logger, op, id)
	observability.LogDerive(ed.cfg.logger, op, changedEdges, changedNodes)
	ed.cfg.metrics.RecordMutation(context.Background(), op, changedEdges, changedNodes)
}

func position(edges []*Edge, id string) int {
	return slices.IndexFunc(edges, func(e *Edge) bool { return e.ID == id })
}

// countReplaced counts positions where the derived slice holds a different element.
func countReplaced[T any](before, after []*T) int {
	n := 0
	for i := range after {
		if i >= len(before) || before[i] != after[i] {
			n++
		}
	}
	return n
}
