package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeSearch(t *testing.T) {
	k, err := NewKnowledge(t.TempDir())
	require.NoError(t, err)
	defer k.Close()
	ctx := context.Background()

	require.NoError(t, k.AddResolution(ctx, "OPS-1", "Login failure on SSO", "Rotated the IdP certificate"))
	require.NoError(t, k.AddResolution(ctx, "OPS-2", "Slow dashboard", "Added index on events.created_at"))

	hits, err := k.Search(ctx, "login FAILURE", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "OPS-1", hits[0].ItemID)

	hits, err = k.Search(ctx, "index", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "OPS-2", hits[0].ItemID)

	hits, err = k.Search(ctx, "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestKnowledgeReplacesResolution(t *testing.T) {
	k, err := NewKnowledge(t.TempDir())
	require.NoError(t, err)
	defer k.Close()
	ctx := context.Background()

	require.NoError(t, k.AddResolution(ctx, "OPS-1", "Disk full", "Deleted logs"))
	require.NoError(t, k.AddResolution(ctx, "OPS-1", "Disk full", "Added log rotation"))

	hits, err := k.Search(ctx, "disk", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Added log rotation", hits[0].Resolution)
}

func TestKnowledgeSearchEscapesWildcards(t *testing.T) {
	k, err := NewKnowledge(t.TempDir())
	require.NoError(t, err)
	defer k.Close()
	ctx := context.Background()

	require.NoError(t, k.AddResolution(ctx, "OPS-1", "cpu at 100%", "scaled out"))
	require.NoError(t, k.AddResolution(ctx, "OPS-2", "cpu at 1000", "noise"))

	hits, err := k.Search(ctx, "100%", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "OPS-1", hits[0].ItemID)
}
