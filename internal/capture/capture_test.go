package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryKB struct {
	added []Resolution
	err   error
}

func (m *memoryKB) AddResolution(_ context.Context, id, summary, resolution string) error {
	if m.err != nil {
		return m.err
	}
	m.added = append(m.added, Resolution{ItemID: id, Summary: summary, Resolution: resolution})
	return nil
}

const logFixture = `0123456789abcdef|||OPS-12: raise deploy quota|||Dana Diaz|||2026-05-02T10:00:00+02:00
fedcba9876543210|||Refactor logging|||Sam|||2026-05-01T09:00:00Z
aaaaaaaabbbbbbbb|||[OPS-12] first attempt at quota|||Sam|||2026-04-30T09:00:00Z
ccccccccdddddddd|||Fix WEB-3 and API-7 timeouts|||Kim|||not-a-date
garbage line`

func TestParseLog(t *testing.T) {
	commits := parseLog(logFixture)
	require.Len(t, commits, 4)
	assert.Equal(t, "OPS-12: raise deploy quota", commits[0].Subject)
	assert.Equal(t, "Dana Diaz", commits[0].Author)
	assert.True(t, commits[0].Date.Equal(time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)))
	assert.True(t, commits[3].Date.IsZero())
}

func TestResolutions(t *testing.T) {
	res := Resolutions(parseLog(logFixture))
	require.Len(t, res, 3)

	assert.Equal(t, Resolution{
		ItemID:     "OPS-12",
		Summary:    "raise deploy quota",
		Resolution: "Resolved in commit 01234567 by Dana Diaz on 2026-05-02",
	}, res[0])
	assert.Equal(t, "WEB-3", res[1].ItemID)
	assert.Equal(t, "Fix  and API-7 timeouts", res[1].Summary)
	assert.Equal(t, "API-7", res[2].ItemID)
	assert.Equal(t, "Resolved in commit cccccccc by Kim", res[2].Resolution)
}

func TestAddManual(t *testing.T) {
	kb := &memoryKB{}
	require.NoError(t, AddManual(context.Background(), kb, " OPS-1 ", "Login loop", "Cleared stale cookie"))
	assert.Equal(t, []Resolution{{ItemID: "OPS-1", Summary: "Login loop", Resolution: "Cleared stale cookie"}}, kb.added)

	assert.Error(t, AddManual(context.Background(), kb, "", "s", "r"))
	assert.Error(t, AddManual(context.Background(), kb, "OPS-1", " ", "r"))
	assert.Error(t, AddManual(context.Background(), kb, "OPS-1", "s", ""))

	kb.err = errors.New("disk full")
	assert.Error(t, AddManual(context.Background(), kb, "OPS-2", "s", "r"))
}

func TestReadResolutionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fix.md")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("y", maxResolutionBytes+5)), 0644))

	text, err := ReadResolutionFile(path)
	require.NoError(t, err)
	assert.Len(t, text, maxResolutionBytes+3)
	assert.True(t, strings.HasSuffix(text, "..."))

	_, err = ReadResolutionFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
