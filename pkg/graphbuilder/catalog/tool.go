package catalog

import (
	"fmt"
	"slices"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
)

// Category groups tools in the canvas palette.
type Category string

// Tool categories, in palette order.
const (
	CategoryResearch      Category = "research"
	CategoryAutomation    Category = "automation"
	CategoryCollaboration Category = "collaboration"
	CategoryData          Category = "data"
	CategoryOps           Category = "ops"
)

// Categories returns every category in palette order.
func Categories() []Category {
	return []Category{CategoryResearch, CategoryAutomation, CategoryCollaboration, CategoryData, CategoryOps}
}

// Tool is a capability a node can hold. Nodes reference tools by ID.
type Tool struct {
	ID          string   `json:"id" yaml:"id" validate:"required,slug"`
	Name        string   `json:"name" yaml:"name" validate:"required,max=64"`
	Description string   `json:"description" yaml:"description" validate:"max=280"`
	Category    Category `json:"category" yaml:"category" validate:"required,oneof=research automation collaboration data ops"`
}

// Validate checks the tool's fields.
func (t Tool) Validate() error {
	return validateStruct("tool", t.ID, t)
}

// ToolCatalog is an ordered, read-only set of tools.
type ToolCatalog struct {
	tools []Tool
	byID  map[string]int
}

// NewToolCatalog validates tools and indexes them by id, keeping their order.
func NewToolCatalog(tools ...Tool) (*ToolCatalog, error) {
	c := &ToolCatalog{
		tools: make([]Tool, 0, len(tools)),
		byID:  make(map[string]int, len(tools)),
	}
	for _, t := range tools {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, ok := c.byID[t.ID]; ok {
			return nil, fmt.Errorf("%w: tool %q", ErrDuplicateID, t.ID)
		}
		c.byID[t.ID] = len(c.tools)
		c.tools = append(c.tools, t)
	}
	return c, nil
}

// Lookup returns the tool with the given id.
func (c *ToolCatalog) Lookup(id string) (Tool, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Tool{}, false
	}
	return c.tools[i], true
}

// Has reports whether id is in the catalog.
func (c *ToolCatalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// All returns the tools in catalog order.
func (c *ToolCatalog) All() []Tool {
	return slices.Clone(c.tools)
}

// Len returns the number of tools.
func (c *ToolCatalog) Len() int {
	return len(c.tools)
}

// CategoryGroup is one palette section.
type CategoryGroup struct {
	Category Category
	Tools    []Tool
}

// ByCategory groups tools by category in palette order, keeping catalog
// order within a group. Empty categories are omitted.
func (c *ToolCatalog) ByCategory() []CategoryGroup {
	var groups []CategoryGroup
	for _, cat := range Categories() {
		var members []Tool
		for _, t := range c.tools {
			if t.Category == cat {
				members = append(members, t)
			}
		}
		if len(members) > 0 {
			groups = append(groups, CategoryGroup{Category: cat, Tools: members})
		}
	}
	return groups
}

// DisplayNames returns the display name of each tool the node holds, in
// order. Ids missing from the catalog are shown verbatim.
func (c *ToolCatalog) DisplayNames(n *graphbuilder.Node) []string {
	tools := n.UniqueTools()
	names := make([]string, len(tools))
	for i, id := range tools {
		if t, ok := c.Lookup(id); ok {
			names[i] = t.Name
		} else {
			names[i] = id
		}
	}
	return names
}

// StaleReferences reports every tool id a node holds that the catalog
// does not know, once per node and id.
func (c *ToolCatalog) StaleReferences(nodes []*graphbuilder.Node) graphbuilder.Issues {
	var issues graphbuilder.Issues
	for _, n := range nodes {
		for _, id := range n.UniqueTools() {
			if c.Has(id) {
				continue
			}
			name := n.ID
			if n.Label != "" {
				name = fmt.Sprintf("%q", n.Label)
			}
			issues = append(issues, graphbuilder.Issue{
				Code:    graphbuilder.IssueStaleTool,
				Message: fmt.Sprintf("node %s references unknown tool %q", name, id),
				NodeID:  n.ID,
			})
		}
	}
	return issues
}

var defaultTools = []Tool{
	{ID: "web-search", Name: "Web Search", Description: "Search the web and return relevant sources.", Category: CategoryResearch},
	{ID: "doc-summarizer", Name: "Doc Summarizer", Description: "Condense long content into key points.", Category: CategoryResearch},
	{ID: "db-query", Name: "DB Query", Description: "Run parameterized queries on a database.", Category: CategoryData},
	{ID: "crm-update", Name: "CRM Update", Description: "Create or update CRM records.", Category: CategoryCollaboration},
	{ID: "calendar", Name: "Calendar", Description: "Schedule or move meetings.", Category: CategoryCollaboration},
	{ID: "email", Name: "Email", Description: "Draft and send customer-ready emails.", Category: CategoryCollaboration},
	{ID: "notion", Name: "Notion", Description: "Write specs and notes to a workspace.", Category: CategoryCollaboration},
	{ID: "ticketing", Name: "Ticketing", Description: "Create or update support tickets.", Category: CategoryOps},
	{ID: "webhook", Name: "Webhook", Description: "Trigger external workflows over HTTP.", Category: CategoryAutomation},
}

// DefaultTools returns the built-in tool library.
func DefaultTools() *ToolCatalog {
	c, err := NewToolCatalog(defaultTools...)
	if err != nil {
		panic(fmt.Sprintf("catalog: default tools: %v", err))
	}
	return c
}
