package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workfocus/internal/source"
	"workfocus/internal/workitem"
)

type fakeSource struct {
	mu    sync.Mutex
	items []workitem.WorkItem
	err   error
	calls int
}

func (s *fakeSource) Fetch(context.Context) ([]workitem.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.items, s.err
}

func (s *fakeSource) PostNote(context.Context, string, string) (bool, error) { return true, nil }

type fakeEvents struct {
	events []workitem.Event
	err    error
}

func (e fakeEvents) Events(context.Context) ([]workitem.Event, error) { return e.events, e.err }

func newWorkflow(f *fixture, src *fakeSource, rec *recorder) *Workflow {
	return &Workflow{
		Source:       src,
		Events:       source.NoEvents{},
		Session:      f.sess,
		Orchestrator: f.orchestrator(rec),
	}
}

func TestScanFetchesThenResumes(t *testing.T) {
	f := newFixture(t)
	items := []workitem.WorkItem{
		{ID: "A", Title: "First", Body: "waits on B", Updated: f.clk.now()},
		{ID: "B", Title: "Other", Updated: f.clk.now()},
	}
	src := &fakeSource{items: items}
	rec := &recorder{answer: "B first"}
	w := newWorkflow(f, src, rec)

	report, err := w.Scan(context.Background(), ScanOptions{})
	require.NoError(t, err)
	assert.False(t, report.Resumed)
	assert.Equal(t, items, report.Items)
	assert.Equal(t, map[string][]string{"A": {"B"}}, report.Dependencies)
	assert.Equal(t, ProviderOK, report.Outcome.State)
	assert.Equal(t, items, f.sess.Items())
	assert.False(t, f.sess.NeedsRescan())

	f.clk.advance(2 * time.Hour)
	report, err = w.Scan(context.Background(), ScanOptions{})
	require.NoError(t, err)
	assert.True(t, report.Resumed)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, CachedValid, report.Outcome.State)
	assert.Equal(t, "B", report.Outcome.Result.TopPriority.ID)

	_, err = w.Scan(context.Background(), ScanOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestScanStaleSnapshot(t *testing.T) {
	f := newFixture(t)
	src := &fakeSource{items: []workitem.WorkItem{{ID: "A", Updated: f.clk.now()}}}
	w := newWorkflow(f, src, &recorder{answer: "A"})

	_, err := w.Scan(context.Background(), ScanOptions{})
	require.NoError(t, err)
	f.clk.advance(25 * time.Hour)
	require.True(t, f.sess.NeedsRescan())

	report, err := w.Scan(context.Background(), ScanOptions{AllowStale: true})
	require.NoError(t, err)
	assert.True(t, report.Resumed)
	assert.Equal(t, 1, src.calls)

	report, err = w.Scan(context.Background(), ScanOptions{})
	require.NoError(t, err)
	assert.False(t, report.Resumed)
	assert.Equal(t, 2, src.calls)
}

func TestScanSourceUnavailable(t *testing.T) {
	f := newFixture(t)
	src := &fakeSource{items: []workitem.WorkItem{{ID: "A", Updated: f.clk.now()}}}
	w := newWorkflow(f, src, &recorder{answer: "A"})
	_, err := w.Scan(context.Background(), ScanOptions{})
	require.NoError(t, err)

	src.err = fmt.Errorf("%w: tracker down", source.ErrSourceUnavailable)
	report, err := w.Scan(context.Background(), ScanOptions{Force: true})
	require.NoError(t, err)
	assert.Empty(t, report.Items)
	assert.Nil(t, report.Outcome.Result.TopPriority)
	assert.Empty(t, report.Dependencies)
	assert.Equal(t, []string{"A"}, workitem.IDs(f.sess.Items()), "snapshot kept")
}

func TestScanSourceError(t *testing.T) {
	f := newFixture(t)
	w := newWorkflow(f, &fakeSource{err: errors.New("bad export")}, &recorder{})
	_, err := w.Scan(context.Background(), ScanOptions{})
	assert.Error(t, err)
}

func TestScanEvents(t *testing.T) {
	f := newFixture(t)
	src := &fakeSource{items: []workitem.WorkItem{{ID: "A", Updated: f.clk.now()}}}
	rec := &recorder{answer: "A"}
	w := newWorkflow(f, src, rec)
	w.Events = fakeEvents{events: []workitem.Event{{Summary: "Planning", Start: f.clk.now(), End: f.clk.now()}}}

	report, err := w.Scan(context.Background(), ScanOptions{})
	require.NoError(t, err)
	assert.Len(t, report.Events, 1)
	assert.Contains(t, rec.LastPrompt(), "Planning")

	w.Events = fakeEvents{err: errors.New("calendar down")}
	report, err = w.Scan(context.Background(), ScanOptions{Force: true})
	require.NoError(t, err)
	assert.Empty(t, report.Events)
}

func TestScanRequiresSession(t *testing.T) {
	_, err := (&Workflow{}).Scan(context.Background(), ScanOptions{})
	assert.ErrorIs(t, err, ErrNoSession)
}
