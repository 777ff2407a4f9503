package store

import "time"

// ActivityMetric is the per-item engagement summary derived from the activity feed.
type ActivityMetric struct {
	ItemID              string    `json:"item_id"`
	LastActivity        time.Time `json:"last_activity"`
	RecentComments      int       `json:"recent_comments"`
	DaysSinceActivity   int       `json:"days_since_activity"`
	OwnerRecentlyActive bool      `json:"owner_recently_active"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Resolution is a resolved item kept as reference material for suggestions.
type Resolution struct {
	ItemID     string    `json:"item_id"`
	Summary    string    `json:"summary"`
	Resolution string    `json:"resolution"`
	CreatedAt  time.Time `json:"created_at"`
}
