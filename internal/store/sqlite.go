package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const (
	ActivityDBName  = "activity.db"
	KnowledgeDBName = "knowledge.db"
)

// Store is the activity metric table. The background poller upserts rows while
// the foreground path reads them; each row is replaced whole so last write wins.
type Store struct {
	db *sql.DB
}

// New opens (creating when needed) the activity database under dataDir.
func New(dataDir string) (*Store, error) {
	db, err := openDB(dataDir, ActivityDBName)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func openDB(dataDir, name string) (*sql.DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	dsn := "file:" + filepath.Join(dataDir, name) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS activity_metrics (
		item_id               TEXT PRIMARY KEY,
		last_activity         DATETIME NOT NULL,
		recent_comment_count  INTEGER NOT NULL DEFAULT 0,
		days_since_activity   INTEGER NOT NULL DEFAULT 0,
		owner_recently_active INTEGER NOT NULL DEFAULT 0,
		updated_at            DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Upsert writes one metric row, replacing any previous row for the item.
func (s *Store) Upsert(ctx context.Context, m ActivityMetric) error {
	if m.ItemID == "" {
		return fmt.Errorf("upsert activity: empty item id")
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_metrics
			(item_id, last_activity, recent_comment_count, days_since_activity, owner_recently_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			last_activity = excluded.last_activity,
			recent_comment_count = excluded.recent_comment_count,
			days_since_activity = excluded.days_since_activity,
			owner_recently_active = excluded.owner_recently_active,
			updated_at = excluded.updated_at`,
		m.ItemID, m.LastActivity.UTC(), m.RecentComments, m.DaysSinceActivity, m.OwnerRecentlyActive, m.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert activity %s: %w", m.ItemID, err)
	}
	return nil
}

// UpsertAll writes each metric independently; no cross-row transaction is needed.
func (s *Store) UpsertAll(ctx context.Context, metrics []ActivityMetric) error {
	var errs []error
	for _, m := range metrics {
		if err := s.Upsert(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Metric returns the row for id; ok is false when none exists.
func (s *Store) Metric(ctx context.Context, id string) (ActivityMetric, bool, error) {
	var m ActivityMetric
	err := s.db.QueryRowContext(ctx, `
		SELECT item_id, last_activity, recent_comment_count, days_since_activity, owner_recently_active, updated_at
		FROM activity_metrics WHERE item_id = ?`, id,
	).Scan(&m.ItemID, &m.LastActivity, &m.RecentComments, &m.DaysSinceActivity, &m.OwnerRecentlyActive, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ActivityMetric{}, false, nil
	}
	if err != nil {
		return ActivityMetric{}, false, fmt.Errorf("query activity %s: %w", id, err)
	}
	return m, true, nil
}

// List returns every metric, most recently active first.
func (s *Store) List(ctx context.Context) ([]ActivityMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_id, last_activity, recent_comment_count, days_since_activity, owner_recently_active, updated_at
		FROM activity_metrics ORDER BY last_activity DESC, item_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []ActivityMetric
	for rows.Next() {
		var m ActivityMetric
		if err := rows.Scan(&m.ItemID, &m.LastActivity, &m.RecentComments, &m.DaysSinceActivity, &m.OwnerRecentlyActive, &m.UpdatedAt); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
