package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"workfocus/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type scriptedFeed struct {
	mu    sync.Mutex
	calls int
	fail  int
	block bool
}

func (f *scriptedFeed) Fetch(ctx context.Context) ([]FeedEntry, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	block := f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if n <= f.fail {
		return nil, errors.New("feed down")
	}
	return []FeedEntry{{Title: "Sam commented on OPS-1", Author: "sam", Published: time.Now()}}, nil
}

func (f *scriptedFeed) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memorySink struct {
	mu      sync.Mutex
	batches [][]store.ActivityMetric
	stored  chan struct{}
}

func newMemorySink() *memorySink {
	return &memorySink{stored: make(chan struct{}, 16)}
}

func (s *memorySink) UpsertAll(_ context.Context, metrics []store.ActivityMetric) error {
	s.mu.Lock()
	s.batches = append(s.batches, metrics)
	s.mu.Unlock()
	select {
	case s.stored <- struct{}{}:
	default:
	}
	return nil
}

func waitStored(t *testing.T, s *memorySink) {
	t.Helper()
	select {
	case <-s.stored:
	case <-time.After(2 * time.Second):
		t.Fatal("no metrics stored")
	}
}

func TestNewRequiresFeedAndSink(t *testing.T) {
	_, err := New(Config{Sink: newMemorySink()})
	assert.Error(t, err)
	_, err = New(Config{Feed: &scriptedFeed{}})
	assert.Error(t, err)
}

func TestTick(t *testing.T) {
	sink := newMemorySink()
	p, err := New(Config{Feed: &scriptedFeed{}, Sink: sink, Owner: "sam@example.com"})
	require.NoError(t, err)

	n, err := p.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, sink.batches, 1)
	assert.Equal(t, "OPS-1", sink.batches[0][0].ItemID)
	assert.True(t, sink.batches[0][0].OwnerRecentlyActive)
}

func TestTickFeedFailure(t *testing.T) {
	p, err := New(Config{Feed: &scriptedFeed{fail: 1}, Sink: newMemorySink()})
	require.NoError(t, err)
	_, err = p.Tick(context.Background())
	assert.Error(t, err)
}

func TestStartTicksImmediatelyAndStops(t *testing.T) {
	sink := newMemorySink()
	p, err := New(Config{Feed: &scriptedFeed{}, Sink: sink, Interval: time.Hour})
	require.NoError(t, err)

	h, err := p.Start(context.Background())
	require.NoError(t, err)
	waitStored(t, sink)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, h.Stop(ctx))
	assert.Less(t, time.Since(start), time.Second)

	select {
	case <-h.Done():
	default:
		t.Fatal("done not closed after stop")
	}
}

func TestFailuresAreSwallowed(t *testing.T) {
	feed := &scriptedFeed{fail: 2}
	sink := newMemorySink()
	h, err := Start(context.Background(), Config{Feed: feed, Sink: sink, Interval: 5 * time.Millisecond})
	require.NoError(t, err)
	defer h.Stop(context.Background())

	waitStored(t, sink)
	assert.GreaterOrEqual(t, feed.Calls(), 3)
}

func TestDoubleStart(t *testing.T) {
	p, err := New(Config{Feed: &scriptedFeed{}, Sink: newMemorySink(), Interval: time.Hour})
	require.NoError(t, err)

	h, err := p.Start(context.Background())
	require.NoError(t, err)

	_, err = p.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, h.Stop(context.Background()))

	h2, err := p.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, h2.Stop(context.Background()))
}

func TestStopCancelsInFlightTick(t *testing.T) {
	feed := &scriptedFeed{block: true}
	h, err := Start(context.Background(), Config{Feed: feed, Sink: newMemorySink()})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return feed.Calls() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.Stop(ctx))
}

func TestParentCancelEndsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h, err := Start(ctx, Config{Feed: &scriptedFeed{}, Sink: newMemorySink(), Interval: time.Hour})
	require.NoError(t, err)

	cancel()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("loop still running after parent cancel")
	}
}
