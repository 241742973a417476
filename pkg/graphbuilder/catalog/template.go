package catalog

import (
	"fmt"
	"slices"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
)

// TemplateNode is a node of a template. Kind becomes the node's declared role.
type TemplateNode struct {
	Kind        graphbuilder.Role `json:"kind" yaml:"kind" validate:"role"`
	Label       string            `json:"label" yaml:"label" validate:"required,max=80"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Tools       []string          `json:"tools,omitempty" yaml:"tools,omitempty" validate:"dive,slug"`
}

// TemplateEdge connects two template nodes by index. Kind and RouteKey are
// hints; normalization decides the final values.
type TemplateEdge struct {
	Source   int                   `json:"source" yaml:"source" validate:"gte=0"`
	Target   int                   `json:"target" yaml:"target" validate:"gte=0"`
	Kind     graphbuilder.EdgeKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	RouteKey string                `json:"routeKey,omitempty" yaml:"routeKey,omitempty"`
}

// Template is a reusable starting graph.
type Template struct {
	ID          string         `json:"id" yaml:"id" validate:"required,slug"`
	Name        string         `json:"name" yaml:"name" validate:"required,max=64"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty" validate:"max=280"`
	Nodes       []TemplateNode `json:"nodes" yaml:"nodes" validate:"required,min=1,dive"`
	Edges       []TemplateEdge `json:"edges,omitempty" yaml:"edges,omitempty" validate:"dive"`
}

// Validate checks the template's fields and that every edge index names a node.
func (t Template) Validate() error {
	if err := validateStruct("template", t.ID, t); err != nil {
		return err
	}
	for i, e := range t.Edges {
		if e.Source >= len(t.Nodes) || e.Target >= len(t.Nodes) {
			return fmt.Errorf("%w: template %q: edge %d: node index out of range (have %d nodes)",
				ErrInvalidRecord, t.ID, i, len(t.Nodes))
		}
	}
	return nil
}

// Tools returns every tool id the template references, first-seen order.
func (t Template) Tools() []string {
	var ids []string
	for _, n := range t.Nodes {
		for _, id := range n.Tools {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func (t Template) clone() Template {
	cp := t
	cp.Nodes = make([]TemplateNode, len(t.Nodes))
	for i, n := range t.Nodes {
		n.Tools = slices.Clone(n.Tools)
		cp.Nodes[i] = n
	}
	cp.Edges = slices.Clone(t.Edges)
	return cp
}

// TemplateCatalog is an ordered, read-only set of templates.
type TemplateCatalog struct {
	templates []Template
	byID      map[string]int
}

// NewTemplateCatalog validates templates and indexes them by id.
func NewTemplateCatalog(templates ...Template) (*TemplateCatalog, error) {
	c := &TemplateCatalog{
		templates: make([]Template, 0, len(templates)),
		byID:      make(map[string]int, len(templates)),
	}
	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, ok := c.byID[t.ID]; ok {
			return nil, fmt.Errorf("%w: template %q", ErrDuplicateID, t.ID)
		}
		c.byID[t.ID] = len(c.templates)
		c.templates = append(c.templates, t.clone())
	}
	return c, nil
}

// Lookup returns the template with the given id.
func (c *TemplateCatalog) Lookup(id string) (Template, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Template{}, false
	}
	return c.templates[i].clone(), true
}

// All returns the templates in catalog order.
func (c *TemplateCatalog) All() []Template {
	out := make([]Template, len(c.templates))
	for i, t := range c.templates {
		out[i] = t.clone()
	}
	return out
}

// Len returns the number of templates.
func (c *TemplateCatalog) Len() int {
	return len(c.templates)
}

var defaultTemplates = []Template{
	{
		ID:          "research-sprint",
		Name:        "Research Sprint",
		Description: "Research → gather sources → synthesize in one pass.",
		Nodes: []TemplateNode{
			{Kind: graphbuilder.RoleAgent, Label: "Lead Researcher", Description: "Define scope, questions, and guardrails.", Tools: []string{"web-search"}},
			{Kind: graphbuilder.RoleTool, Label: "Source Collector", Description: "Pull relevant sources and surface citations.", Tools: []string{"web-search"}},
			{Kind: graphbuilder.RoleAgent, Label: "Synthesizer", Description: "Turn sources into a concise narrative.", Tools: []string{"doc-summarizer"}},
		},
		Edges: []TemplateEdge{{Source: 0, Target: 1}, {Source: 1, Target: 2}},
	},
	{
		ID:          "support-copilot",
		Name:        "Support Copilot",
		Description: "Triage → resolve → update CRM with follow-ups.",
		Nodes: []TemplateNode{
			{Kind: graphbuilder.RoleAgent, Label: "Triage Agent", Description: "Classify intent and extract key details.", Tools: []string{"ticketing"}},
			{Kind: graphbuilder.RoleAgent, Label: "Resolution Agent", Description: "Draft reply and decide next steps.", Tools: []string{"email"}},
			{Kind: graphbuilder.RoleTool, Label: "CRM Sync", Description: "Update CRM with ticket status and notes.", Tools: []string{"crm-update"}},
		},
		Edges: []TemplateEdge{{Source: 0, Target: 1}, {Source: 1, Target: 2}},
	},
	{
		ID:          "prd-builder",
		Name:        "Product Requirements",
		Description: "Capture intent → draft PRD → share with team.",
		Nodes: []TemplateNode{
			{Kind: graphbuilder.RoleAgent, Label: "PM Copilot", Description: "Clarify goals, constraints, and success metrics.", Tools: []string{"calendar"}},
			{Kind: graphbuilder.RoleAgent, Label: "PRD Writer", Description: "Draft a crisp PRD with user stories.", Tools: []string{"notion"}},
		},
		Edges: []TemplateEdge{{Source: 0, Target: 1}},
	},
}

// DefaultTemplates returns the built-in template library.
func DefaultTemplates() *TemplateCatalog {
	c, err := NewTemplateCatalog(defaultTemplates...)
	if err != nil {
		panic(fmt.Sprintf("catalog: default templates: %v", err))
	}
	return c
}
