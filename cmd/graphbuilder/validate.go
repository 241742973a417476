package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/observability"
)

// ValidateCmd normalizes a document and reports validation issues plus
// references to tools missing from the catalog. It fails when any are found.
type ValidateCmd struct {
	Document string `arg:"" type:"existingfile" help:"Graph document (.yaml, .yml or .json)."`
	Entry    string `help:"Entry node id, overriding the document."`
	Format   string `short:"f" enum:"text,json" default:"text" help:"Output format (${enum})."`
	Roles    bool   `help:"Also print each node's roles and the signals behind them."`
}

type validateReport struct {
	Project string              `json:"project"`
	Valid   bool                `json:"valid"`
	Issues  graphbuilder.Issues `json:"issues"`
	Roles   []nodeRoles         `json:"roles,omitempty"`
}

type nodeRoles struct {
	ID          string                    `json:"id"`
	Label       string                    `json:"label"`
	Activations []graphbuilder.Activation `json:"activations"`
}

func (c *ValidateCmd) Run(a *app) error {
	doc, err := readDocument(c.Document)
	if err != nil {
		return err
	}
	applyOverrides(doc, "", c.Entry, a.settings.Entry)

	in, err := a.settings.Inferrer()
	if err != nil {
		return err
	}
	tools, err := a.toolCatalog()
	if err != nil {
		return err
	}

	g := in.Normalize(doc.Graph())
	var opts []graphbuilder.ValidateOption
	if doc.Entry != "" {
		opts = append(opts, graphbuilder.WithEntry(doc.Entry))
	}
	issues := graphbuilder.Validate(g.Nodes, g.Edges, opts...)
	issues = append(issues, tools.StaleReferences(g.Nodes)...)
	observability.LogValidation(a.logger, doc.Name, issues.Messages())
	a.metrics.RecordValidation(a.ctx, doc.Name, len(issues))

	report := validateReport{Project: doc.Name, Valid: len(issues) == 0, Issues: issues}
	if c.Roles {
		for _, n := range g.Nodes {
			report.Roles = append(report.Roles, nodeRoles{ID: n.ID, Label: n.Label, Activations: in.Explain(n, g.Edges)})
		}
	}

	if c.Format == "json" {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		c.printText(a, report)
	}

	if !report.Valid {
		return fmt.Errorf("%s: %w", doc.Name, errIssues)
	}
	return nil
}

func (c *ValidateCmd) printText(a *app, r validateReport) {
	if r.Valid {
		fmt.Fprintf(a.stdout, "%s: valid\n", r.Project)
	} else {
		fmt.Fprintf(a.stdout, "%s: %d issue(s)\n", r.Project, len(r.Issues))
		printIssues(a.stdout, r.Issues)
	}
	if len(r.Roles) == 0 {
		return
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tROLE\tSOURCE")
	for _, n := range r.Roles {
		name := n.Label
		if name == "" {
			name = n.ID
		}
		for _, act := range n.Activations {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", name, act.Role, act.Source)
		}
	}
	tw.Flush()
}
