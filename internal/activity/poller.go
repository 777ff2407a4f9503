// Package activity polls an external activity feed and keeps per-item
// engagement metrics in the activity store. The poller runs on its own
// goroutine and shares nothing with the foreground path except the store.
package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"workfocus/internal/store"
)

const DefaultInterval = 30 * time.Minute

// ErrAlreadyRunning is returned by Start while a previous handle is live.
var ErrAlreadyRunning = errors.New("activity poller already running")

// Sink receives aggregated metrics.
type Sink interface {
	UpsertAll(ctx context.Context, metrics []store.ActivityMetric) error
}

type Config struct {
	Feed     FeedSource
	Sink     Sink
	Owner    string
	Interval time.Duration
	Logger   *zap.Logger
	Clock    func() time.Time
}

type Poller struct {
	feed     FeedSource
	sink     Sink
	owner    string
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	current *Handle
}

func New(cfg Config) (*Poller, error) {
	if cfg.Feed == nil {
		return nil, fmt.Errorf("activity poller: feed is required")
	}
	if cfg.Sink == nil {
		return nil, fmt.Errorf("activity poller: sink is required")
	}
	p := &Poller{
		feed:     cfg.Feed,
		sink:     cfg.Sink,
		owner:    cfg.Owner,
		interval: cfg.Interval,
		logger:   cfg.Logger,
		now:      cfg.Clock,
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Tick runs one fetch, parse, aggregate and upsert cycle and reports how many
// items were updated.
func (p *Poller) Tick(ctx context.Context) (int, error) {
	entries, err := p.feed.Fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch feed: %w", err)
	}
	now := p.now()
	metrics := Aggregate(Parse(entries, p.owner, now), now)
	if len(metrics) == 0 {
		return 0, nil
	}
	if err := p.sink.UpsertAll(ctx, metrics); err != nil {
		return 0, fmt.Errorf("store metrics: %w", err)
	}
	return len(metrics), nil
}

// Handle owns one running poll loop.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Stop signals the loop and waits for it to exit or for ctx to end. An
// in-flight tick is cancelled through its context.
func (h *Handle) Stop(ctx context.Context) error {
	h.cancel()
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("activity poller did not stop: %w", ctx.Err())
	}
}

// Start launches the poll loop. It ticks immediately and then once per
// interval until the handle is stopped or ctx ends. Only one loop may run per
// Poller; a second Start while it is alive returns ErrAlreadyRunning.
func (p *Poller) Start(ctx context.Context) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		select {
		case <-p.current.done:
		default:
			return nil, ErrAlreadyRunning
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	p.current = h

	p.logger.Info("activity poller started", zap.Duration("interval", p.interval))
	go p.run(loopCtx, h)
	return h, nil
}

func (p *Poller) run(ctx context.Context, h *Handle) {
	defer close(h.done)
	defer p.logger.Info("activity poller stopped")

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		p.safeTick(ctx)
		timer.Reset(p.interval)
	}
}

// safeTick logs and swallows every failure, panics included, so one bad
// tick never ends the loop.
func (p *Poller) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("activity tick panicked", zap.Any("panic", r))
		}
	}()
	start := time.Now()
	n, err := p.Tick(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("activity tick failed", zap.Error(err))
		return
	}
	p.logger.Debug("activity tick complete", zap.Int("items", n), zap.Duration("took", time.Since(start)))
}

// Start builds a poller from cfg and launches it. Callers that need the
// double-start guard across restarts keep the Poller from New instead.
func Start(ctx context.Context, cfg Config) (*Handle, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return p.Start(ctx)
}
