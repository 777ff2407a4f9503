package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"workfocus/internal/workitem"
)

// File reads items and events from a YAML (or JSON) export:
//
//	items:
//	  - id: OPS-1
//	    title: Fix login
//	    priority: P1
//	    created: 2026-01-02T15:04:05Z
//	    updated: 2026-01-03
//	events:
//	  - summary: standup
//	    start: 2026-01-05T09:00:00Z
//	    end: 2026-01-05T09:15:00Z
//
// Notes posted through PostNote are appended to a sidecar file next to it.
type File struct {
	path string
	mu   sync.Mutex
}

type fileDoc struct {
	Items  []fileItem  `yaml:"items"`
	Events []fileEvent `yaml:"events"`
}

type fileItem struct {
	ID           string   `yaml:"id"`
	Title        string   `yaml:"title"`
	Body         string   `yaml:"body"`
	Priority     string   `yaml:"priority"`
	Status       string   `yaml:"status"`
	Owner        string   `yaml:"owner"`
	Created      string   `yaml:"created"`
	Updated      string   `yaml:"updated"`
	CommentCount int      `yaml:"comment_count"`
	Labels       []string `yaml:"labels"`
	Category     string   `yaml:"category"`
}

type fileEvent struct {
	Summary string `yaml:"summary"`
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
}

type noteRecord struct {
	ID     string    `yaml:"id"`
	Text   string    `yaml:"text"`
	Posted time.Time `yaml:"posted"`
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) NotesPath() string {
	return f.path + ".notes.yaml"
}

func (f *File) read() (fileDoc, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return fileDoc{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	var doc fileDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fileDoc{}, fmt.Errorf("%w: parse %s: %v", ErrSourceUnavailable, f.path, err)
	}
	return doc, nil
}

func (f *File) Fetch(ctx context.Context) ([]workitem.WorkItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	items := make([]workitem.WorkItem, 0, len(doc.Items))
	seen := make(map[string]bool, len(doc.Items))
	for i, fi := range doc.Items {
		id := strings.TrimSpace(fi.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: item %d has no id", ErrSourceUnavailable, i)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate item id %s", ErrSourceUnavailable, id)
		}
		seen[id] = true
		created, err := parseTime(fi.Created)
		if err != nil {
			return nil, fmt.Errorf("%w: item %s created: %v", ErrSourceUnavailable, id, err)
		}
		updated, err := parseTime(fi.Updated)
		if err != nil {
			return nil, fmt.Errorf("%w: item %s updated: %v", ErrSourceUnavailable, id, err)
		}
		if updated.IsZero() {
			updated = created
		}
		items = append(items, workitem.WorkItem{
			ID:           id,
			Title:        fi.Title,
			Body:         fi.Body,
			Priority:     fi.Priority,
			Status:       fi.Status,
			Owner:        fi.Owner,
			Created:      created,
			Updated:      updated,
			CommentCount: fi.CommentCount,
			Labels:       fi.Labels,
			Category:     fi.Category,
		})
	}
	return items, nil
}

func (f *File) Events(ctx context.Context) ([]workitem.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	events := make([]workitem.Event, 0, len(doc.Events))
	for _, fe := range doc.Events {
		start, err := parseTime(fe.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: event %q start: %v", ErrSourceUnavailable, fe.Summary, err)
		}
		end, err := parseTime(fe.End)
		if err != nil {
			return nil, fmt.Errorf("%w: event %q end: %v", ErrSourceUnavailable, fe.Summary, err)
		}
		events = append(events, workitem.Event{Summary: fe.Summary, Start: start, End: end})
	}
	return events, nil
}

// PostNote appends a note document to the sidecar notes file.
func (f *File) PostNote(ctx context.Context, id, text string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	if err := enc.Encode(noteRecord{ID: id, Text: text, Posted: time.Now().UTC()}); err != nil {
		return false, fmt.Errorf("encode note: %w", err)
	}
	if err := enc.Close(); err != nil {
		return false, fmt.Errorf("encode note: %w", err)
	}

	out, err := os.OpenFile(f.NotesPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer out.Close()
	if _, err := out.Write(buf.Bytes()); err != nil {
		return false, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return true, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
