package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/snapshot"
)

// SnapshotsCmd groups the snapshot subcommands.
type SnapshotsCmd struct {
	List   SnapshotsListCmd   `cmd:"" default:"withargs" help:"List projects, or the revisions of one project."`
	Show   SnapshotsShowCmd   `cmd:"" help:"Print a stored document revision."`
	Delete SnapshotsDeleteCmd `cmd:"" help:"Delete every revision of a project."`
}

// SnapshotsListCmd lists projects or revisions.
type SnapshotsListCmd struct {
	Project string `arg:"" optional:"" help:"Project to list revisions for."`
}

func (c *SnapshotsListCmd) Run(a *app) error {
	store, err := a.snapshotStore()
	if err != nil {
		return err
	}
	defer store.Close()

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	if c.Project == "" {
		projects, err := store.Projects()
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "PROJECT\tREVISIONS\tLATEST")
		for _, p := range projects {
			infos, err := store.List(p)
			if err != nil {
				return err
			}
			latest := infos[len(infos)-1]
			fmt.Fprintf(tw, "%s\t%d\t%s\n", p, len(infos), latest.Timestamp.Local().Format(time.DateTime))
		}
		return tw.Flush()
	}

	infos, err := store.List(c.Project)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return fmt.Errorf("project %q: %w", c.Project, snapshot.ErrNotFound)
	}
	fmt.Fprintln(tw, "REVISION\tSAVED\tSIZE\tDIGEST")
	for _, info := range infos {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", info.Revision, info.Timestamp.Local().Format(time.DateTime), info.Size, info.Digest[:12])
	}
	return tw.Flush()
}

// SnapshotsShowCmd prints one revision as a document.
type SnapshotsShowCmd struct {
	Project  string `arg:"" help:"Project name."`
	Revision int64  `short:"r" help:"Revision (default latest)."`
	Format   string `short:"f" enum:"yaml,json" default:"yaml" help:"Document format (${enum})."`
}

func (c *SnapshotsShowCmd) Run(a *app) error {
	store, err := a.snapshotStore()
	if err != nil {
		return err
	}
	defer store.Close()

	doc, _, err := snapshot.LoadDocument(store, c.Project, c.Revision)
	if err != nil {
		return fmt.Errorf("project %q: %w", c.Project, err)
	}
	return writeDocument(a.stdout, doc, c.Format)
}

// SnapshotsDeleteCmd removes a project's revisions.
type SnapshotsDeleteCmd struct {
	Project string `arg:"" help:"Project name."`
}

func (c *SnapshotsDeleteCmd) Run(a *app) error {
	store, err := a.snapshotStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteProject(c.Project); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "deleted %s\n", c.Project)
	return nil
}
