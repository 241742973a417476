package codegen

import (
	"slices"
	"strconv"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
)

// stateKeys are the state channels every skeleton declares. Node names may
// not shadow them.
var stateKeys = []string{"messages", "route"}

// Unit is one node projected for rendering.
type Unit struct {
	// ID is the node id.
	ID string
	// Name is the node name used in the graph wiring. Unique within a plan.
	Name        string
	Label       string
	Description string
	// Tools are the node's tool ids, duplicates removed.
	Tools []string
	Roles []graphbuilder.Role
	// Default is the route key a router unit returns when nothing else decides.
	Default string
}

// Route maps one route key to a target unit name.
type Route struct {
	Key    string
	Target string
}

// Router is the routing table of one branching unit.
type Router struct {
	Source string
	Routes []Route
}

// Default returns the first route key, used as the runtime fallback.
func (r Router) Default() string {
	if len(r.Routes) == 0 {
		return ""
	}
	return r.Routes[0].Key
}

// Wire is an unconditional transition between two units.
type Wire struct {
	Source string
	Target string
}

// Plan is the target-independent projection of a graph: what every
// renderer emits, in emission order.
type Plan struct {
	// Project names the generated program.
	Project string
	// Banner holds header comment lines, already expanded.
	Banner []string
	// Units are in topological order.
	Units []Unit
	// Entry is the entry unit name, empty when every node has a predecessor.
	Entry   string
	Wires   []Wire
	Routers []Router
	// Terminals are the units without outgoing edges, wired to END.
	Terminals []string
}

// Unit returns the unit with the given name, or nil.
func (p *Plan) Unit(name string) *Unit {
	for i := range p.Units {
		if p.Units[i].Name == name {
			return &p.Units[i]
		}
	}
	return nil
}

// BuildPlan walks g once and produces the rendering plan shared by every
// target.
//
// Units are ordered topologically (ties and cycle remainders in IR order).
// Conditional edges become routing tables keyed by route key; a missing key
// is derived the way the normalizer derives it and a duplicate is suffixed,
// so a plan is always renderable. An edge whose endpoint is missing, a
// node without the agent role, or a corrupt role value is an
// *graphbuilder.InvariantError.
func BuildPlan(g *graphbuilder.Graph) (*Plan, error) {
	if err := graphbuilder.CheckInvariants(g.Nodes, g.Edges); err != nil {
		return nil, err
	}

	names := unitNames(g.Nodes)
	order := topoOrder(g.Nodes, g.Edges)
	rank := make(map[string]int, len(order))
	for i, idx := range order {
		rank[names[idx]] = i
	}

	p := &Plan{Units: make([]Unit, 0, len(g.Nodes))}
	firstIndex := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		if _, ok := firstIndex[n.ID]; !ok {
			firstIndex[n.ID] = i
		}
	}
	nameOf := func(id string) string { return names[firstIndex[id]] }

	if entries := graphbuilder.EntryCandidates(g.Nodes, g.Edges); len(entries) > 0 {
		p.Entry = nameOf(entries[0].ID)
	}

	routers := make(map[string]*Router)
	var routerOrder []string
	taken := make(map[string]map[string]bool)
	outDegree := make(map[string]int)
	for i, e := range g.Edges {
		src, dst := nameOf(e.Source), nameOf(e.Target)
		outDegree[src]++
		if e.Kind != graphbuilder.EdgeConditional {
			p.Wires = append(p.Wires, Wire{Source: src, Target: dst})
			continue
		}
		r, ok := routers[src]
		if !ok {
			r = &Router{Source: src}
			routers[src] = r
			routerOrder = append(routerOrder, src)
			taken[src] = make(map[string]bool)
		}
		key := e.RouteKey
		if key == "" {
			key = graphbuilder.DefaultRouteKey(g.Nodes[firstIndex[e.Target]].Label, e.ID, i+1)
		}
		key = graphbuilder.UniqueKey(key, taken[src])
		taken[src][key] = true
		r.Routes = append(r.Routes, Route{Key: key, Target: dst})
	}

	byRank := func(a, b string) int { return rank[a] - rank[b] }
	slices.SortStableFunc(p.Wires, func(a, b Wire) int { return byRank(a.Source, b.Source) })
	slices.SortStableFunc(routerOrder, byRank)
	for _, src := range routerOrder {
		p.Routers = append(p.Routers, *routers[src])
	}

	for _, idx := range order {
		n := g.Nodes[idx]
		u := Unit{
			ID:          n.ID,
			Name:        names[idx],
			Label:       n.Label,
			Description: n.Description,
			Tools:       n.UniqueTools(),
			Roles:       slices.Clone(n.Roles),
		}
		if r, ok := routers[u.Name]; ok {
			u.Default = r.Default()
		}
		p.Units = append(p.Units, u)
		if outDegree[u.Name] == 0 {
			p.Terminals = append(p.Terminals, u.Name)
		}
	}
	return p, nil
}

// unitNames assigns each node a unique name: the slug of its label, else
// "node_" plus a slug of its id prefix, else "node_<position>".
func unitNames(nodes []*graphbuilder.Node) []string {
	taken := make(map[string]bool, len(nodes)+len(stateKeys))
	for _, k := range stateKeys {
		taken[k] = true
	}
	names := make([]string, len(nodes))
	for i, n := range nodes {
		base := graphbuilder.Slug(n.Label)
		if base == "" {
			if id := graphbuilder.Slug(idPrefix(n.ID)); id != "" {
				base = "node_" + id
			} else {
				base = "node_" + strconv.Itoa(i+1)
			}
		}
		names[i] = graphbuilder.UniqueKey(base, taken)
		taken[names[i]] = true
	}
	return names
}

func idPrefix(id string) string {
	r := []rune(id)
	if len(r) > 6 {
		r = r[:6]
	}
	return string(r)
}

// topoOrder returns node indexes in Kahn order. Among ready nodes the one
// earliest in IR order goes first; when only cycles remain, the earliest
// remaining node is emitted to break them.
func topoOrder(nodes []*graphbuilder.Node, edges []*graphbuilder.Edge) []int {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, ok := index[n.ID]; !ok {
			index[n.ID] = i
		}
	}
	inDegree := make([]int, len(nodes))
	successors := make([][]int, len(nodes))
	for _, e := range edges {
		s, t := index[e.Source], index[e.Target]
		successors[s] = append(successors[s], t)
		inDegree[t]++
	}

	emitted := make([]bool, len(nodes))
	order := make([]int, 0, len(nodes))
	for len(order) < len(nodes) {
		next := -1
		for i := range nodes {
			if !emitted[i] && inDegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			for i := range nodes {
				if !emitted[i] {
					next = i
					break
				}
			}
		}
		emitted[next] = true
		order = append(order, next)
		for _, t := range successors[next] {
			inDegree[t]--
		}
	}
	return order
}
