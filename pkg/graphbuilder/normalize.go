package graphbuilder

// NormalizeEdges recomputes every edge's kind and route key from the
// current topology. An edge is conditional exactly when its source has more
// than one outgoing edge; conditional edges keep a non-empty route key or get
// a default one, normal edges lose theirs.
//
// Edge order is preserved and edges that need no change are returned by
// reference. The function is total and idempotent; endpoints that do not
// resolve to a node are left for Validate to report.
func NormalizeEdges(edges []*Edge, nodes []*Node) []*Edge {
	if edges == nil {
		return nil
	}

	outCount := OutDegrees(edges)
	idx := nodeIndex(nodes)

	// Keys already held per branching source, so defaults never collide with them.
	taken := make(map[string]map[string]bool)
	for _, e := range edges {
		if outCount[e.Source] > 1 && e.RouteKey != "" {
			keysOf(taken, e.Source)[e.RouteKey] = true
		}
	}

	out := make([]*Edge, len(edges))
	for i, e := range edges {
		if outCount[e.Source] <= 1 {
			if e.Kind == EdgeNormal && e.RouteKey == "" {
				out[i] = e
				continue
			}
			cp := e.Clone()
			cp.Kind = EdgeNormal
			cp.RouteKey = ""
			out[i] = cp
			continue
		}

		key := e.RouteKey
		if key == "" {
			label := ""
			if target := idx[e.Target]; target != nil {
				label = target.Label
			}
			keys := keysOf(taken, e.Source)
			key = UniqueKey(DefaultRouteKey(label, e.ID, i+1), keys)
			keys[key] = true
		}
		if e.Kind == EdgeConditional && e.RouteKey == key {
			out[i] = e
			continue
		}
		cp := e.Clone()
		cp.Kind = EdgeConditional
		cp.RouteKey = key
		out[i] = cp
	}
	return out
}

// Normalize runs the edge normalizer and then role inference with the
// default inferrer, returning the canonical graph.
func Normalize(g *Graph) *Graph {
	return defaultInferrer.Normalize(g)
}

// Normalize runs the edge normalizer and then this inferrer.
func (in *Inferrer) Normalize(g *Graph) *Graph {
	edges := NormalizeEdges(g.Edges, g.Nodes)
	return &Graph{
		Nodes: in.Infer(g.Nodes, edges),
		Edges: edges,
	}
}

func keysOf(taken map[string]map[string]bool, source string) map[string]bool {
	keys, ok := taken[source]
	if !ok {
		keys = make(map[string]bool)
		taken[source] = keys
	}
	return keys
}
