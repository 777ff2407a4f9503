package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Knowledge keeps summaries of resolved items so suggestions for new items can
// point at how similar ones were handled.
type Knowledge struct {
	db *sql.DB
}

func NewKnowledge(dataDir string) (*Knowledge, error) {
	db, err := openDB(dataDir, KnowledgeDBName)
	if err != nil {
		return nil, err
	}
	k := &Knowledge{db: db}
	if err := k.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return k, nil
}

func (k *Knowledge) Close() error {
	return k.db.Close()
}

func (k *Knowledge) migrate() error {
	_, err := k.db.Exec(`
	CREATE TABLE IF NOT EXISTS resolutions (
		item_id    TEXT PRIMARY KEY,
		summary    TEXT NOT NULL,
		resolution TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`)
	return err
}

// AddResolution records or replaces the resolution for an item.
func (k *Knowledge) AddResolution(ctx context.Context, id, summary, resolution string) error {
	_, err := k.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO resolutions (item_id, summary, resolution, created_at) VALUES (?, ?, ?, ?)",
		id, summary, resolution, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert resolution: %w", err)
	}
	return nil
}

// Search returns resolutions whose summary or resolution text contains query,
// ignoring case.
func (k *Knowledge) Search(ctx context.Context, query string, limit int) ([]Resolution, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	rows, err := k.db.QueryContext(ctx, `
		SELECT item_id, summary, resolution, created_at FROM resolutions
		WHERE lower(summary) LIKE ? ESCAPE '\' OR lower(resolution) LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, item_id
		LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search resolutions: %w", err)
	}
	defer rows.Close()

	var out []Resolution
	for rows.Next() {
		var r Resolution
		if err := rows.Scan(&r.ItemID, &r.Summary, &r.Resolution, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
