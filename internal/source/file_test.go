package source

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const export = `
items:
  - id: OPS-1
    title: Fix login
    body: Blocked by OPS-2
    priority: P1
    status: Open
    owner: kim
    created: 2026-01-02T15:04:05Z
    updated: "2026-01-03"
    comment_count: 4
    labels: [auth, sso]
    category: Bug
  - id: OPS-2
    title: Rotate certificate
    priority: Low
    created: 2026-01-01
events:
  - summary: standup
    start: 2026-01-05T09:00:00Z
    end: 2026-01-05T09:15:00Z
`

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestFileFetch(t *testing.T) {
	f := NewFile(writeExport(t, export))
	items, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, "OPS-1", first.ID)
	assert.Equal(t, "Blocked by OPS-2", first.Body)
	assert.Equal(t, "kim", first.Owner)
	assert.Equal(t, 4, first.CommentCount)
	assert.Equal(t, []string{"auth", "sso"}, first.Labels)
	assert.Equal(t, time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC), first.Created)
	assert.Equal(t, time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC), first.Updated)

	assert.Equal(t, items[1].Created, items[1].Updated, "missing updated falls back to created")
}

func TestFileReadsJSON(t *testing.T) {
	f := NewFile(writeExport(t, `{"items":[{"id":"A-1","priority":"High","created":"2026-02-01T00:00:00Z","updated":"2026-02-02T00:00:00Z"}]}`))
	items, err := f.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "High", items[0].Priority)
}

func TestFileEvents(t *testing.T) {
	events, err := NewFile(writeExport(t, export)).Events(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "standup", events[0].Summary)
	assert.Equal(t, 15*time.Minute, events[0].End.Sub(events[0].Start))
}

func TestFileUnavailable(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "missing.yaml")).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	_, err = NewFile(writeExport(t, "items: [")).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	_, err = NewFile(writeExport(t, "items:\n  - id: A\n  - id: A\n")).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	_, err = NewFile(writeExport(t, "items:\n  - id: A\n    created: yesterday\n")).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestFilePostNote(t *testing.T) {
	f := NewFile(writeExport(t, export))
	ctx := context.Background()

	ok, err := f.PostNote(ctx, "OPS-1", "looking into it")
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = f.PostNote(ctx, "OPS-2", "done")
	require.NoError(t, err)

	raw, err := os.ReadFile(f.NotesPath())
	require.NoError(t, err)
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	var notes []noteRecord
	for {
		var n noteRecord
		if err := dec.Decode(&n); err != nil {
			break
		}
		notes = append(notes, n)
	}
	require.Len(t, notes, 2)
	assert.Equal(t, "OPS-1", notes[0].ID)
	assert.Equal(t, "done", notes[1].Text)
}

func TestNoEvents(t *testing.T) {
	events, err := NoEvents{}.Events(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}
