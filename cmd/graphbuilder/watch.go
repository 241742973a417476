package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/codegen"
	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/snapshot"
)

// WatchCmd regenerates on every saved change to a document and, when a
// snapshot store is configured, records each changed revision.
type WatchCmd struct {
	Document string        `arg:"" type:"existingfile" help:"Graph document to watch."`
	Targets  []string      `name:"target" short:"t" help:"Targets to generate (default from config)."`
	Out      string        `short:"o" type:"path" help:"Output directory (default from config)."`
	Debounce time.Duration `help:"Quiet period before regenerating (default from config)."`
}

func (c *WatchCmd) Run(a *app) error {
	cache := codegen.NewCache(codegen.WithCacheMetrics(a.metrics))
	x, err := a.exporter(c.Targets, false, cache)
	if err != nil {
		return err
	}

	var store snapshot.Store
	if a.settings.SnapshotPath != "" {
		store, err = a.snapshotStore()
		if err != nil {
			return err
		}
		defer store.Close()
	}

	out := c.Out
	if out == "" {
		out = a.settings.OutputDir
	}
	debounce := c.Debounce
	if debounce <= 0 {
		debounce = a.settings.WatchDebounce
	}

	rebuild := func(ctx context.Context) error {
		doc, err := readDocument(c.Document)
		if err != nil {
			return err
		}
		applyOverrides(doc, "", "", a.settings.Entry)

		res, err := x.Export(ctx, doc)
		if err != nil {
			return err
		}
		if len(res.Issues) > 0 {
			printIssues(a.stderr, res.Issues)
		}
		paths, err := writeFiles(out, res.Files)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(a.stdout, p)
		}

		if store != nil {
			info, err := snapshot.SaveDocument(store, doc)
			switch {
			case errors.Is(err, snapshot.ErrUnchanged):
			case err != nil:
				return err
			default:
				fmt.Fprintf(a.stdout, "saved %s revision %d\n", info.Project, info.Revision)
			}
		}
		return nil
	}

	w := &fileWatcher{path: c.Document, debounce: debounce, rebuild: rebuild, logger: a.logger}
	return w.Run(a.ctx)
}

// fileWatcher calls rebuild once at start and again after each burst of
// writes to path has been quiet for debounce. Rebuild errors are logged,
// not returned.
type fileWatcher struct {
	path     string
	debounce time.Duration
	rebuild  func(context.Context) error
	logger   *slog.Logger
}

// Run blocks until ctx is done.
func (w *fileWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	// The directory, not the file: editors save by renaming over it.
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("watching", slog.String("path", w.path), slog.Duration("debounce", w.debounce))

	w.runOnce(ctx)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", slog.String("error", err.Error()))

		case <-fire:
			fire = nil
			w.runOnce(ctx)
		}
	}
}

func (w *fileWatcher) runOnce(ctx context.Context) {
	if err := w.rebuild(ctx); err != nil {
		w.logger.Error("rebuild failed", slog.String("path", w.path), slog.String("error", err.Error()))
	}
}
