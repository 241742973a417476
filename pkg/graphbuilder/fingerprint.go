package graphbuilder

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

type fingerprintNode struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Tools       []string `json:"tools"`
	Roles       []int    `json:"roles"`
}

type fingerprintEdge struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Kind     int    `json:"kind"`
	RouteKey string `json:"routeKey"`
}

// Fingerprint returns a stable SHA-256 hex digest of everything code
// generation reads from g.
//
// The digest changes when node identity, labels, descriptions, tools,
// roles, edge endpoints, kinds, route keys, or element order change. It is
// unaffected by positions, metadata, and declared roles that inference
// already reflects in Roles.
func Fingerprint(g *Graph) string {
	payload := struct {
		Nodes []fingerprintNode `json:"nodes"`
		Edges []fingerprintEdge `json:"edges"`
	}{
		Nodes: make([]fingerprintNode, len(g.Nodes)),
		Edges: make([]fingerprintEdge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		roles := make([]int, len(n.Roles))
		for j, r := range n.Roles {
			roles[j] = int(r)
		}
		payload.Nodes[i] = fingerprintNode{
			ID:          n.ID,
			Label:       n.Label,
			Description: n.Description,
			Tools:       cloneSlice(n.Tools),
			Roles:       roles,
		}
	}
	for i, e := range g.Edges {
		payload.Edges[i] = fingerprintEdge{
			ID:       e.ID,
			Source:   e.Source,
			Target:   e.Target,
			Kind:     int(e.Kind),
			RouteKey: e.RouteKey,
		}
	}

	// Strings and ints only; Marshal cannot fail.
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
