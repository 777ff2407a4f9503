// Package source defines how work items and auxiliary events enter the
// engine. Concrete tracker clients live outside this module; the File source
// reads an exported snapshot so the engine can run against any tracker that
// can dump its items.
package source

import (
	"context"
	"errors"

	"workfocus/internal/workitem"
)

// ErrSourceUnavailable marks a source that could not be reached or read.
var ErrSourceUnavailable = errors.New("source unavailable")

// Source yields the current work items and accepts notes on them.
type Source interface {
	Fetch(ctx context.Context) ([]workitem.WorkItem, error)
	PostNote(ctx context.Context, id, text string) (bool, error)
}

// EventSource yields auxiliary scheduling events.
type EventSource interface {
	Events(ctx context.Context) ([]workitem.Event, error)
}

// NoEvents is an EventSource with nothing scheduled.
type NoEvents struct{}

func (NoEvents) Events(context.Context) ([]workitem.Event, error) { return nil, nil }
