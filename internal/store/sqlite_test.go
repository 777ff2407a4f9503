package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func TestUpsertAndMetric(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	last := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Upsert(ctx, ActivityMetric{
		ItemID:              "OPS-1",
		LastActivity:        last,
		RecentComments:      3,
		DaysSinceActivity:   2,
		OwnerRecentlyActive: true,
	}))

	m, ok, err := s.Metric(ctx, "OPS-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "OPS-1", m.ItemID)
	assert.True(t, m.LastActivity.Equal(last))
	assert.Equal(t, 3, m.RecentComments)
	assert.Equal(t, 2, m.DaysSinceActivity)
	assert.True(t, m.OwnerRecentlyActive)
	assert.False(t, m.UpdatedAt.IsZero())
}

func TestMetricMissing(t *testing.T) {
	s, _ := newStore(t)
	_, ok, err := s.Metric(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpsertLastWriteWins(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, ActivityMetric{ItemID: "OPS-1", LastActivity: time.Now(), RecentComments: 5, OwnerRecentlyActive: true}))
	require.NoError(t, s.Upsert(ctx, ActivityMetric{ItemID: "OPS-1", LastActivity: time.Now(), RecentComments: 1}))

	m, ok, err := s.Metric(ctx, "OPS-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, m.RecentComments)
	assert.False(t, m.OwnerRecentlyActive)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsertRejectsEmptyID(t *testing.T) {
	s, _ := newStore(t)
	assert.Error(t, s.Upsert(context.Background(), ActivityMetric{}))
}

func TestPersistsAcrossReopen(t *testing.T) {
	s, dir := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertAll(ctx, []ActivityMetric{
		{ItemID: "A-1", LastActivity: time.Now().Add(-time.Hour)},
		{ItemID: "A-2", LastActivity: time.Now()},
	}))
	require.NoError(t, s.Close())

	s2, err := New(dir)
	require.NoError(t, err)
	defer s2.Close()

	all, err := s2.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A-2", all[0].ItemID)
}

func TestConcurrentUpsertAndRead(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			errs <- s.Upsert(ctx, ActivityMetric{ItemID: fmt.Sprintf("A-%d", i%5), LastActivity: time.Now(), RecentComments: i})
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _, err := s.Metric(ctx, fmt.Sprintf("A-%d", i%5))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
