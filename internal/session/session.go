// Package session persists the state that lets a work session resume: the
// last scan and its item snapshot, the current focus, notes, conversation and
// plan history, computed dependencies, suggestion feedback and usage patterns.
//
// The whole state is loaded once and written back to disk after every
// mutation. Write failures are returned to the caller because losing user
// intent silently would break resumption. A single process owns the file.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"workfocus/internal/workitem"
)

// FreshnessWindow is how long a scan stays current by default.
const FreshnessWindow = 24 * time.Hour

const (
	maxRecentItems = 5
	TagGood        = "good"
	TagBad         = "bad"
)

var (
	// ErrPersistence wraps failures to write the session file.
	ErrPersistence = errors.New("session persistence failed")
	ErrInvalidTag  = errors.New("feedback tag must be good or bad")
)

type RecentItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type WorkPatterns struct {
	Commands   map[string]int `json:"commands"`
	Categories map[string]int `json:"categories"`
}

// Data is the serialized form of the session file.
type Data struct {
	LastScan     *time.Time          `json:"last_scan"`
	ScanID       string              `json:"scan_id,omitempty"`
	CurrentFocus *string             `json:"current_focus"`
	Items        []workitem.WorkItem `json:"items"`
	Notes        map[string]string   `json:"notes"`
	History      []string            `json:"history"`
	RecentItems  []RecentItem        `json:"recent_items"`
	Dependencies map[string][]string `json:"dependencies"`
	Feedback     map[string][]string `json:"feedback"`
	WorkPatterns WorkPatterns        `json:"work_patterns"`
}

func defaults() Data {
	return Data{
		Items:       []workitem.WorkItem{},
		Notes:       map[string]string{},
		History:     []string{},
		RecentItems: []RecentItem{},
		Feedback:    map[string][]string{},
		WorkPatterns: WorkPatterns{
			Commands:   map[string]int{},
			Categories: map[string]int{},
		},
	}
}

type State struct {
	path   string
	now    func() time.Time
	window time.Duration
	logger *zap.Logger

	mu sync.RWMutex
	d  Data
}

type Option func(*State)

func WithClock(now func() time.Time) Option {
	return func(s *State) { s.now = now }
}

// WithFreshnessWindow overrides how long a scan stays current.
func WithFreshnessWindow(d time.Duration) Option {
	return func(s *State) {
		if d > 0 {
			s.window = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *State) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Load reads the session file. A missing or corrupt file yields defaults.
func Load(path string, opts ...Option) *State {
	s := &State{
		path:   path,
		now:    time.Now,
		window: FreshnessWindow,
		logger: zap.NewNop(),
		d:      defaults(),
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s
	case err != nil:
		s.logger.Warn("session unreadable, using defaults", zap.String("path", path), zap.Error(err))
		return s
	}
	var loaded Data
	if err := json.Unmarshal(raw, &loaded); err != nil {
		s.logger.Warn("session corrupt, using defaults", zap.String("path", path), zap.Error(err))
		return s
	}
	s.d = fill(loaded)
	return s
}

// fill replaces missing collections with empty ones. Dependencies stay nil
// when they were never computed.
func fill(d Data) Data {
	def := defaults()
	if d.Items == nil {
		d.Items = def.Items
	}
	if d.Notes == nil {
		d.Notes = def.Notes
	}
	if d.History == nil {
		d.History = def.History
	}
	if d.RecentItems == nil {
		d.RecentItems = def.RecentItems
	}
	if d.Feedback == nil {
		d.Feedback = def.Feedback
	}
	if d.WorkPatterns.Commands == nil {
		d.WorkPatterns.Commands = def.WorkPatterns.Commands
	}
	if d.WorkPatterns.Categories == nil {
		d.WorkPatterns.Categories = def.WorkPatterns.Categories
	}
	return d
}

func (s *State) Path() string { return s.path }

// Snapshot returns a deep copy of the current state.
func (s *State) Snapshot() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.d)
}

func clone(d Data) Data {
	out := d
	if d.LastScan != nil {
		t := *d.LastScan
		out.LastScan = &t
	}
	if d.CurrentFocus != nil {
		f := *d.CurrentFocus
		out.CurrentFocus = &f
	}
	out.Items = make([]workitem.WorkItem, len(d.Items))
	for i, it := range d.Items {
		it.Labels = slices.Clone(it.Labels)
		out.Items[i] = it
	}
	out.Notes = maps.Clone(d.Notes)
	out.History = slices.Clone(d.History)
	out.RecentItems = slices.Clone(d.RecentItems)
	out.Dependencies = cloneEdges(d.Dependencies)
	out.Feedback = cloneEdges(d.Feedback)
	out.WorkPatterns = WorkPatterns{
		Commands:   maps.Clone(d.WorkPatterns.Commands),
		Categories: maps.Clone(d.WorkPatterns.Categories),
	}
	return out
}

func cloneEdges(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = slices.Clone(v)
	}
	return out
}

// mutate applies fn under the write lock and flushes the result. When fn or
// the flush fails the in-memory state is rolled back.
func (s *State) mutate(fn func(*Data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := clone(s.d)
	if err := fn(&s.d); err != nil {
		s.d = prev
		return err
	}
	if err := s.saveLocked(); err != nil {
		s.d = prev
		return err
	}
	return nil
}

// Save flushes the current state.
func (s *State) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *State) saveLocked() error {
	raw, err := json.MarshalIndent(s.d, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}
	if err := writeFile(s.path, raw); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *State) LastScan() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.d.LastScan == nil {
		return time.Time{}, false
	}
	return *s.d.LastScan, true
}

// NeedsRescan reports whether no scan exists or the last one is at least as
// old as the freshness window. It is always !WithinFreshnessWindow().
func (s *State) NeedsRescan() bool {
	last, ok := s.LastScan()
	if !ok {
		return true
	}
	return s.now().Sub(last) >= s.window
}

// WithinFreshnessWindow reports whether a scan exists and is still fresh.
func (s *State) WithinFreshnessWindow() bool {
	last, ok := s.LastScan()
	return ok && s.now().Sub(last) < s.window
}

// RecordScan stores a snapshot of items, stamps the scan time and drops the
// dependency map computed for the previous snapshot.
func (s *State) RecordScan(items []workitem.WorkItem) error {
	return s.mutate(func(d *Data) error {
		now := s.now()
		d.LastScan = &now
		d.ScanID = uuid.NewString()
		d.Items = make([]workitem.WorkItem, len(items))
		for i, it := range items {
			it.Labels = slices.Clone(it.Labels)
			d.Items[i] = it
		}
		d.Dependencies = nil
		return nil
	})
}

// Items returns the item snapshot from the last scan.
func (s *State) Items() []workitem.WorkItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(Data{Items: s.d.Items}).Items
}

func (s *State) ScanID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.ScanID
}

func (s *State) CurrentFocus() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.d.CurrentFocus == nil {
		return "", false
	}
	return *s.d.CurrentFocus, true
}

// SetCurrentFocus records the focused item; an empty id clears the focus.
func (s *State) SetCurrentFocus(id string) error {
	return s.mutate(func(d *Data) error {
		if id == "" {
			d.CurrentFocus = nil
			return nil
		}
		d.CurrentFocus = &id
		return nil
	})
}

func (s *State) AddNote(id, note string) error {
	return s.mutate(func(d *Data) error {
		d.Notes[id] = note
		return nil
	})
}

func (s *State) Notes() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.d.Notes)
}

func (s *State) AddHistory(messages ...string) error {
	return s.mutate(func(d *Data) error {
		d.History = append(d.History, messages...)
		return nil
	})
}

// ReplaceHistory discards the history and starts over with messages.
func (s *State) ReplaceHistory(messages ...string) error {
	return s.mutate(func(d *Data) error {
		d.History = slices.Clone(messages)
		if d.History == nil {
			d.History = []string{}
		}
		return nil
	})
}

func (s *State) History() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.d.History)
}

// RecordRecent remembers that an item was discussed, keeping the last five.
func (s *State) RecordRecent(it workitem.WorkItem) error {
	return s.mutate(func(d *Data) error {
		d.RecentItems = append(d.RecentItems, RecentItem{ID: it.ID, Title: it.Title})
		if n := len(d.RecentItems); n > maxRecentItems {
			d.RecentItems = slices.Clone(d.RecentItems[n-maxRecentItems:])
		}
		return nil
	})
}

// RecentItems returns up to limit recently discussed items, oldest first,
// leaving out exclude.
func (s *State) RecentItems(exclude string, limit int) []RecentItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []RecentItem
	for _, r := range s.d.RecentItems {
		if exclude != "" && r.ID == exclude {
			continue
		}
		out = append(out, r)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// SetDependencies stores the dependency edges for the current snapshot.
func (s *State) SetDependencies(deps map[string][]string) error {
	return s.mutate(func(d *Data) error {
		d.Dependencies = cloneEdges(deps)
		if d.Dependencies == nil {
			d.Dependencies = map[string][]string{}
		}
		return nil
	})
}

// Dependencies returns the stored edges; ok is false when none were computed
// for the current snapshot.
func (s *State) Dependencies() (map[string][]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.d.Dependencies == nil {
		return nil, false
	}
	return cloneEdges(s.d.Dependencies), true
}

func feedbackKey(id, context string) string {
	return id + "|" + strings.TrimSpace(context)
}

// RecordFeedback appends a good/bad tag for a suggestion given in context.
func (s *State) RecordFeedback(id, context, tag string) error {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag != TagGood && tag != TagBad {
		return fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	return s.mutate(func(d *Data) error {
		k := feedbackKey(id, context)
		d.Feedback[k] = append(d.Feedback[k], tag)
		return nil
	})
}

// Feedback returns the tags recorded for id in context, oldest first.
func (s *State) Feedback(id, context string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.d.Feedback[feedbackKey(id, context)])
}

func (s *State) LogCommand(name string) error {
	return s.mutate(func(d *Data) error {
		d.WorkPatterns.Commands[name]++
		return nil
	})
}

// LogCategories bumps the counter of every non-empty category in one write.
func (s *State) LogCategories(categories ...string) error {
	return s.mutate(func(d *Data) error {
		for _, c := range categories {
			if c = strings.TrimSpace(c); c != "" {
				d.WorkPatterns.Categories[c]++
			}
		}
		return nil
	})
}

func (s *State) WorkPatterns() WorkPatterns {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return WorkPatterns{
		Commands:   maps.Clone(s.d.WorkPatterns.Commands),
		Categories: maps.Clone(s.d.WorkPatterns.Categories),
	}
}

// TopCategories lists categories by descending use, then by name.
func (s *State) TopCategories() []string {
	p := s.WorkPatterns()
	cats := slices.Collect(maps.Keys(p.Categories))
	slices.SortFunc(cats, func(a, b string) int {
		if p.Categories[a] != p.Categories[b] {
			return p.Categories[b] - p.Categories[a]
		}
		return strings.Compare(a, b)
	})
	return cats
}

// Summary describes the stored snapshot in one line.
func (s *State) Summary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.d.Items
	if len(items) == 0 {
		return "No items stored."
	}
	n := min(len(items), 3)
	first := strings.Join(workitem.IDs(items[:n]), ", ")
	more := ""
	if len(items) > 3 {
		more = fmt.Sprintf(", +%d more", len(items)-3)
	}
	return fmt.Sprintf("Last session had %d items: %s%s.", len(items), first, more)
}

// Reset starts a clean session. Feedback and work patterns survive.
func (s *State) Reset() error {
	return s.mutate(func(d *Data) error {
		fresh := defaults()
		fresh.Feedback = d.Feedback
		fresh.WorkPatterns = d.WorkPatterns
		*d = fresh
		return nil
	})
}
