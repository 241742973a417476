package main

import (
	"fmt"
	"io"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/codegen"
)

// GenerateCmd renders a document for one or more targets.
type GenerateCmd struct {
	Document string   `arg:"" type:"existingfile" help:"Graph document (.yaml, .yml or .json)."`
	Targets  []string `name:"target" short:"t" help:"Targets to generate (default from config)."`
	Out      string   `short:"o" type:"path" help:"Output directory (default from config)."`
	Project  string   `short:"p" help:"Project name (default: document name)."`
	Entry    string   `help:"Entry node id, overriding the document."`
	Strict   bool     `help:"Refuse to generate when validation finds issues."`
	Stdout   bool     `help:"Print generated files instead of writing them."`
}

func (c *GenerateCmd) Run(a *app) error {
	doc, err := readDocument(c.Document)
	if err != nil {
		return err
	}
	applyOverrides(doc, c.Project, c.Entry, a.settings.Entry)

	x, err := a.exporter(c.Targets, c.Strict, nil)
	if err != nil {
		return err
	}
	res, err := x.Export(a.ctx, doc)
	if err != nil {
		return err
	}
	if len(res.Issues) > 0 {
		fmt.Fprintf(a.stderr, "%s: %d issue(s)\n", res.Project, len(res.Issues))
		printIssues(a.stderr, res.Issues)
	}

	if c.Stdout {
		return printFiles(a.stdout, res.Files)
	}
	out := c.Out
	if out == "" {
		out = a.settings.OutputDir
	}
	paths, err := writeFiles(out, res.Files)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(a.stdout, p)
	}
	return nil
}

// applyOverrides sets the project name and entry. Flags win over the
// document, and the configured entry applies only when the document has none.
func applyOverrides(doc *graphbuilder.Document, project, entry, configEntry string) {
	if project != "" {
		doc.Name = project
	}
	switch {
	case entry != "":
		doc.Entry = entry
	case doc.Entry == "" && configEntry != "":
		doc.Entry = configEntry
	}
}

func printFiles(w io.Writer, files []codegen.File) error {
	for i, f := range files {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "==> %s <==\n%s", f.Name, f.Content); err != nil {
			return err
		}
	}
	return nil
}
