// Package cache implements the durable result cache used to avoid repeating
// provider calls. Values live in two maps, one addressed by explicit keys and
// one by a content fingerprint of caller-supplied parts. Both maps are
// snapshotted to a single JSON file on every write, so Set costs O(store size).
//
// Staleness is a read-time predicate: entries older than the TTL read as
// absent but stay on disk until overwritten or cleared.
//
// The file is not safe for several writing processes.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"workfocus/internal/fingerprint"
)

// DefaultTTL is the freshness window for cached payloads.
const DefaultTTL = 24 * time.Hour

// ErrPersistence wraps failures to flush the store to disk.
var ErrPersistence = errors.New("cache persistence failed")

// Entry is one cached payload and its write time.
type Entry struct {
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type snapshot struct {
	Keys         map[string]Entry `json:"keys"`
	Fingerprints map[string]Entry `json:"fingerprints"`
}

type Cache struct {
	path   string
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu   sync.RWMutex
	data snapshot
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Open loads the cache file at path. A missing, unreadable or malformed file
// yields an empty cache; corruption is logged and never returned.
func Open(path string, opts ...Option) *Cache {
	c := &Cache{
		path:   path,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: zap.NewNop(),
		data:   emptySnapshot(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.load()
	return c
}

func emptySnapshot() snapshot {
	return snapshot{
		Keys:         make(map[string]Entry),
		Fingerprints: make(map[string]Entry),
	}
}

func (c *Cache) load() {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("cache unreadable, starting empty", zap.String("path", c.path), zap.Error(err))
		}
		return
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.logger.Warn("cache corrupt, starting empty", zap.String("path", c.path), zap.Error(err))
		return
	}
	if snap.Keys != nil {
		c.data.Keys = snap.Keys
	}
	if snap.Fingerprints != nil {
		c.data.Fingerprints = snap.Fingerprints
	}
	c.logger.Debug("cache loaded",
		zap.String("path", c.path),
		zap.Int("keys", len(c.data.Keys)),
		zap.Int("fingerprints", len(c.data.Fingerprints)))
}

// Get returns the payload stored under an explicit key.
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fresh(c.data.Keys, key)
}

// Set stores payload under an explicit key and flushes the whole store.
func (c *Cache) Set(key string, payload any) error {
	return c.put(func(s *snapshot, e Entry) { s.Keys[key] = e }, payload)
}

// GetByFingerprint returns the payload stored under the digest of parts.
func (c *Cache) GetByFingerprint(parts ...string) (json.RawMessage, bool) {
	fp := fingerprint.Parts(parts...)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fresh(c.data.Fingerprints, fp)
}

// SetByFingerprint stores payload under the digest of parts and flushes the
// whole store.
func (c *Cache) SetByFingerprint(payload any, parts ...string) error {
	fp := fingerprint.Parts(parts...)
	return c.put(func(s *snapshot, e Entry) { s.Fingerprints[fp] = e }, payload)
}

// Lookup consults the explicit key first and falls back to the fingerprint
// path. An empty key skips the first step.
func (c *Cache) Lookup(key string, parts ...string) (json.RawMessage, bool) {
	if key != "" {
		if v, ok := c.Get(key); ok {
			return v, true
		}
	}
	if len(parts) == 0 {
		return nil, false
	}
	return c.GetByFingerprint(parts...)
}

// Expired reports whether an entry exists on either path but is past the TTL
// and no fresh entry shadows it.
func (c *Cache) Expired(key string, parts ...string) bool {
	if _, ok := c.Lookup(key, parts...); ok {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.data.Keys[key]; ok && key != "" {
		return true
	}
	if len(parts) == 0 {
		return false
	}
	_, ok := c.data.Fingerprints[fingerprint.Parts(parts...)]
	return ok
}

// Clear drops every entry from both paths and flushes.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.data
	c.data = emptySnapshot()
	if err := c.flushLocked(); err != nil {
		c.data = prev
		return err
	}
	return nil
}

// Len counts stored entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data.Keys) + len(c.data.Fingerprints)
}

func (c *Cache) fresh(m map[string]Entry, key string) (json.RawMessage, bool) {
	e, ok := m[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.Timestamp) >= c.ttl {
		return nil, false
	}
	return e.Payload, true
}

func (c *Cache) put(apply func(*snapshot, Entry), payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.data
	c.data = snapshot{Keys: maps.Clone(prev.Keys), Fingerprints: maps.Clone(prev.Fingerprints)}
	apply(&c.data, Entry{Payload: raw, Timestamp: c.now()})
	if err := c.flushLocked(); err != nil {
		c.data = prev
		return err
	}
	return nil
}

func (c *Cache) flushLocked() error {
	raw, err := json.Marshal(c.data)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}
	if err := writeFileAtomic(c.path, raw); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
