package catalog

import (
	"slices"

	"github.com/google/uuid"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
)

// Canvas layout of instantiated templates: a left-to-right zigzag.
const (
	layoutOriginX = 140
	layoutOriginY = 140
	layoutStepX   = 240
	layoutStepY   = 120
)

type instantiateConfig struct {
	newID    func() string
	inferrer *graphbuilder.Inferrer
}

// InstantiateOption configures Instantiate.
type InstantiateOption func(*instantiateConfig)

// WithIDGenerator replaces the id minting function. Default: uuid.NewString.
func WithIDGenerator(fn func() string) InstantiateOption {
	return func(c *instantiateConfig) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// WithInferrer sets the role inference engine used to normalize the result.
func WithInferrer(in *graphbuilder.Inferrer) InstantiateOption {
	return func(c *instantiateConfig) {
		if in != nil {
			c.inferrer = in
		}
	}
}

// Instantiate builds a canonical graph from t. Every node and edge gets a
// fresh id, each node declares its template kind, and nodes are laid out
// in a zigzag. The result is already normalized.
func Instantiate(t Template, opts ...InstantiateOption) (*graphbuilder.Graph, error) {
	cfg := instantiateConfig{
		newID:    uuid.NewString,
		inferrer: graphbuilder.NewInferrer(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	g := &graphbuilder.Graph{
		Nodes: make([]*graphbuilder.Node, len(t.Nodes)),
		Edges: make([]*graphbuilder.Edge, len(t.Edges)),
	}
	for i, tn := range t.Nodes {
		g.Nodes[i] = &graphbuilder.Node{
			ID:            cfg.newID(),
			Label:         tn.Label,
			Description:   tn.Description,
			Tools:         slices.Clone(tn.Tools),
			DeclaredRoles: []graphbuilder.Role{tn.Kind},
			Position: graphbuilder.Position{
				X: layoutOriginX + float64(i)*layoutStepX,
				Y: layoutOriginY + float64(i%2)*layoutStepY,
			},
		}
	}
	for i, te := range t.Edges {
		g.Edges[i] = &graphbuilder.Edge{
			ID:       cfg.newID(),
			Source:   g.Nodes[te.Source].ID,
			Target:   g.Nodes[te.Target].ID,
			Kind:     te.Kind,
			RouteKey: te.RouteKey,
		}
	}
	return cfg.inferrer.Normalize(g), nil
}

// InstantiateDocument is Instantiate wrapped in a document named after the
// template, with its first node as entry.
func InstantiateDocument(t Template, opts ...InstantiateOption) (*graphbuilder.Document, error) {
	g, err := Instantiate(t, opts...)
	if err != nil {
		return nil, err
	}
	doc := graphbuilder.NewDocument(t.Name, g)
	doc.Entry = g.Nodes[0].ID
	return doc, nil
}
