package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/catalog"
)

// TemplatesCmd groups the template subcommands.
type TemplatesCmd struct {
	List TemplatesListCmd `cmd:"" default:"1" help:"List available templates."`
	New  TemplatesNewCmd  `cmd:"" help:"Instantiate a template as a new graph document."`
}

// TemplatesListCmd prints the template catalog.
type TemplatesListCmd struct{}

func (c *TemplatesListCmd) Run(a *app) error {
	templates, err := a.templateCatalog()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tNODES\tTOOLS")
	for _, t := range templates.All() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", t.ID, t.Name, len(t.Nodes), strings.Join(t.Tools(), ", "))
	}
	return tw.Flush()
}

// TemplatesNewCmd writes a freshly instantiated template.
type TemplatesNewCmd struct {
	ID     string `arg:"" help:"Template id."`
	Name   string `short:"n" help:"Document name (default: template name)."`
	Output string `short:"o" type:"path" help:"Write to this file instead of stdout."`
	Format string `short:"f" enum:"yaml,json" default:"yaml" help:"Document format (${enum})."`
}

func (c *TemplatesNewCmd) Run(a *app) error {
	templates, err := a.templateCatalog()
	if err != nil {
		return err
	}
	t, ok := templates.Lookup(c.ID)
	if !ok {
		var ids []string
		for _, t := range templates.All() {
			ids = append(ids, t.ID)
		}
		return fmt.Errorf("unknown template %q (have %s)", c.ID, strings.Join(ids, ", "))
	}

	in, err := a.settings.Inferrer()
	if err != nil {
		return err
	}
	doc, err := catalog.InstantiateDocument(t, catalog.WithInferrer(in))
	if err != nil {
		return err
	}
	if c.Name != "" {
		doc.Name = c.Name
	}

	if c.Output == "" {
		return writeDocument(a.stdout, doc, c.Format)
	}
	f, err := os.Create(c.Output)
	if err != nil {
		return err
	}
	if err := writeDocument(f, doc, c.Format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, c.Output)
	return nil
}

// ToolsCmd prints the tool catalog grouped by category.
type ToolsCmd struct {
	Category string `help:"Only list tools in this category."`
}

func (c *ToolsCmd) Run(a *app) error {
	tools, err := a.toolCatalog()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tID\tNAME\tDESCRIPTION")
	for _, group := range tools.ByCategory() {
		if c.Category != "" && string(group.Category) != c.Category {
			continue
		}
		for _, t := range group.Tools {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", group.Category, t.ID, t.Name, t.Description)
		}
	}
	return tw.Flush()
}
