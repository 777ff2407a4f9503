package analysis

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"workfocus/internal/session"
	"workfocus/internal/source"
	"workfocus/internal/workitem"
)

type ScanOptions struct {
	// Force fetches from the source even when a fresh snapshot exists.
	Force bool
	// AllowStale reuses a snapshot older than the freshness window.
	AllowStale bool
}

type ScanReport struct {
	Items        []workitem.WorkItem
	Events       []workitem.Event
	Dependencies map[string][]string
	Outcome      Outcome
	// Resumed is true when the items came from the session snapshot.
	Resumed bool
}

// Workflow ties a source, the session snapshot and the orchestrator into one
// scan.
type Workflow struct {
	Source       source.Source
	Events       source.EventSource
	Session      *session.State
	Orchestrator *Orchestrator
	Logger       *zap.Logger
}

func (w *Workflow) logger() *zap.Logger {
	if w.Logger == nil {
		return zap.NewNop()
	}
	return w.Logger
}

// Scan loads the work items, computes their dependencies and analyzes them.
// A fresh snapshot is reused unless opts.Force is set; a stale one only with
// opts.AllowStale. An unreachable source yields an empty batch and leaves the
// stored snapshot alone.
func (w *Workflow) Scan(ctx context.Context, opts ScanOptions) (ScanReport, error) {
	if w.Session == nil {
		return ScanReport{}, ErrNoSession
	}
	if w.Orchestrator == nil {
		return ScanReport{}, fmt.Errorf("scan: orchestrator is required")
	}
	log := w.logger()

	var report ScanReport
	_, scanned := w.Session.LastScan()
	switch {
	case scanned && !opts.Force && w.Session.WithinFreshnessWindow():
		report.Resumed = true
	case scanned && !opts.Force && opts.AllowStale:
		log.Info("reusing stale snapshot")
		report.Resumed = true
	}

	items, events, err := w.fetch(ctx, report.Resumed)
	if err != nil {
		return ScanReport{}, err
	}
	if report.Resumed {
		items = w.Session.Items()
	} else if items != nil {
		if err := w.Session.RecordScan(items); err != nil {
			return ScanReport{}, err
		}
	}
	report.Items = items
	report.Events = events

	report.Dependencies = map[string][]string{}
	if len(items) > 0 {
		deps, err := w.Orchestrator.Dependencies(items)
		if err != nil {
			return ScanReport{}, err
		}
		report.Dependencies = deps
	}
	report.Outcome = w.Orchestrator.Analyze(ctx, items, events)

	log.Info("scan complete",
		zap.Int("items", len(items)),
		zap.Bool("resumed", report.Resumed),
		zap.Stringer("state", report.Outcome.State))
	return report, nil
}

// fetch loads events and, unless resuming, items concurrently. A nil item
// slice means the source was unavailable.
func (w *Workflow) fetch(ctx context.Context, resumed bool) ([]workitem.WorkItem, []workitem.Event, error) {
	log := w.logger()
	var (
		items  []workitem.WorkItem
		events []workitem.Event
	)
	g, gctx := errgroup.WithContext(ctx)
	if !resumed && w.Source != nil {
		g.Go(func() error {
			fetched, err := w.Source.Fetch(gctx)
			if errors.Is(err, source.ErrSourceUnavailable) {
				log.Warn("work item source unavailable", zap.Error(err))
				return nil
			}
			if err != nil {
				return fmt.Errorf("fetch items: %w", err)
			}
			if fetched == nil {
				fetched = []workitem.WorkItem{}
			}
			items = fetched
			return nil
		})
	}
	if w.Events != nil {
		g.Go(func() error {
			evs, err := w.Events.Events(gctx)
			if err != nil {
				log.Warn("event source failed", zap.Error(err))
				return nil
			}
			events = evs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return items, events, nil
}
