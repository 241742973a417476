package graphbuilder

import "encoding/json"

// DocumentVersion is the version written into serialized documents.
const DocumentVersion = "1.0"

// Position is the canvas location of a node. The core never reads it.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is one unit of the workflow: an agent, optionally holding tools,
// routing to several successors, or managing memory.
//
// Roles is derived by the inference engine. DeclaredRoles holds what the
// user (or template) asked for and is never discarded by inference.
type Node struct {
	ID            string         `json:"id" yaml:"id"`
	Label         string         `json:"label" yaml:"label"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
	Tools         []string       `json:"tools,omitempty" yaml:"tools,omitempty"`
	Roles         []Role         `json:"roles,omitempty" yaml:"roles,omitempty"`
	DeclaredRoles []Role         `json:"declaredRoles,omitempty" yaml:"declaredRoles,omitempty"`
	Position      Position       `json:"position" yaml:"position"`
	Meta          map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// UniqueTools returns the node's tool ids with duplicates removed,
// keeping first-seen order.
func (n *Node) UniqueTools() []string {
	if len(n.Tools) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(n.Tools))
	out := make([]string, 0, len(n.Tools))
	for _, id := range n.Tools {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// HasRole reports whether the node's derived roles include r.
func (n *Node) HasRole(r Role) bool {
	return HasRole(n.Roles, r)
}

// Clone returns a copy of n that shares no slices or maps with it.
// Meta values are copied shallowly.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := *n
	cp.Tools = cloneSlice(n.Tools)
	cp.Roles = cloneSlice(n.Roles)
	cp.DeclaredRoles = cloneSlice(n.DeclaredRoles)
	if n.Meta != nil {
		cp.Meta = make(map[string]any, len(n.Meta))
		for k, v := range n.Meta {
			cp.Meta[k] = v
		}
	}
	return &cp
}

// UnmarshalJSON decodes a node and treats the roles of a node that
// declares none as declared.
func (n *Node) UnmarshalJSON(data []byte) error {
	type plain Node
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*n = Node(p)
	if len(n.DeclaredRoles) == 0 && len(n.Roles) > 0 {
		n.DeclaredRoles = cloneSlice(n.Roles)
	}
	return nil
}

// DeclareRoles prepares nodes read from outside the editor. A node that
// carries Roles but no DeclaredRoles is replaced by a copy declaring those
// roles, so inference keeps what the user set. Other nodes are returned as
// is, and the input slice is not modified.
func DeclareRoles(nodes []*Node) []*Node {
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		if n != nil && len(n.DeclaredRoles) == 0 && len(n.Roles) > 0 {
			cp := n.Clone()
			cp.DeclaredRoles = cloneSlice(n.Roles)
			n = cp
		}
		out[i] = n
	}
	return out
}

// Edge is a control-flow transition from Source to Target.
// RouteKey is set only when Kind is EdgeConditional.
type Edge struct {
	ID       string   `json:"id,omitempty" yaml:"id,omitempty"`
	Source   string   `json:"source" yaml:"source"`
	Target   string   `json:"target" yaml:"target"`
	Kind     EdgeKind `json:"kind" yaml:"kind"`
	RouteKey string   `json:"routeKey,omitempty" yaml:"routeKey,omitempty"`
}

// Clone returns a copy of e.
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}
	cp := *e
	return &cp
}

// Graph is the intermediate representation shared by every pass.
// Slices hold pointers so callers can detect untouched elements by identity.
type Graph struct {
	Nodes []*Node
	Edges []*Edge
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Edge returns the edge with the given id, or nil.
func (g *Graph) Edge(id string) *Edge {
	for _, e := range g.Edges {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Clone deep-copies the graph.
func (g *Graph) Clone() *Graph {
	cp := &Graph{
		Nodes: make([]*Node, len(g.Nodes)),
		Edges: make([]*Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		cp.Nodes[i] = n.Clone()
	}
	for i, e := range g.Edges {
		cp.Edges[i] = e.Clone()
	}
	return cp
}

// Document is the serialized form of a graph, as written by the canvas
// and read by the CLI.
type Document struct {
	Version string  `json:"version" yaml:"version"`
	Name    string  `json:"name" yaml:"name"`
	Entry   string  `json:"entry,omitempty" yaml:"entry,omitempty"`
	Nodes   []*Node `json:"nodes" yaml:"nodes"`
	Edges   []*Edge `json:"edges" yaml:"edges"`
}

// NewDocument wraps a graph for serialization.
func NewDocument(name string, g *Graph) *Document {
	return &Document{
		Version: DocumentVersion,
		Name:    name,
		Nodes:   g.Nodes,
		Edges:   g.Edges,
	}
}

// Graph returns the document's nodes and edges as a Graph.
// The slices are shared, not copied.
func (d *Document) Graph() *Graph {
	return &Graph{Nodes: d.Nodes, Edges: d.Edges}
}

// OutDegrees counts outgoing edges per source id.
func OutDegrees(edges []*Edge) map[string]int {
	counts := make(map[string]int, len(edges))
	for _, e := range edges {
		counts[e.Source]++
	}
	return counts
}

// InDegrees counts incoming edges per target id, ignoring edges whose
// endpoints are not both present in nodes.
func InDegrees(nodes []*Node, edges []*Edge) map[string]int {
	ids := nodeIndex(nodes)
	counts := make(map[string]int, len(nodes))
	for _, e := range edges {
		if ids[e.Source] == nil || ids[e.Target] == nil {
			continue
		}
		counts[e.Target]++
	}
	return counts
}

// EntryCandidates returns the nodes with in-degree 0, in IR order.
func EntryCandidates(nodes []*Node, edges []*Edge) []*Node {
	in := InDegrees(nodes, edges)
	var out []*Node
	for _, n := range nodes {
		if in[n.ID] == 0 {
			out = append(out, n)
		}
	}
	return out
}

// nodeIndex maps node ids to nodes. The first node wins on duplicates.
func nodeIndex(nodes []*Node) map[string]*Node {
	idx := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		if _, ok := idx[n.ID]; !ok {
			idx[n.ID] = n
		}
	}
	return idx
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
