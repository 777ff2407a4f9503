package activity

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"workfocus/internal/store"
)

const (
	commentWindow = 7 * 24 * time.Hour
	ownerWindow   = 14 * 24 * time.Hour
)

var itemIDRe = regexp.MustCompile(`[A-Z][A-Z0-9]*-\d+`)

type Kind string

const (
	KindComment Kind = "comment"
	KindUpdate  Kind = "update"
	KindCreate  Kind = "create"
)

// Activity is a feed entry attributed to one work item.
type Activity struct {
	ItemID  string
	At      time.Time
	Kind    Kind
	Actor   string
	ByOwner bool
}

// OwnerHandle reduces an email address to its local part.
func OwnerHandle(owner string) string {
	if at := strings.Index(owner, "@"); at >= 0 {
		return owner[:at]
	}
	return owner
}

// Parse attributes feed entries to items by the first identifier in their
// title. Entries without one are dropped. Entries without a timestamp count
// as happening now.
func Parse(entries []FeedEntry, owner string, now time.Time) []Activity {
	handle := strings.ToLower(OwnerHandle(strings.TrimSpace(owner)))
	var out []Activity
	for _, e := range entries {
		id := itemIDRe.FindString(e.Title)
		if id == "" {
			continue
		}
		at := e.Published
		if at.IsZero() {
			at = now
		}
		out = append(out, Activity{
			ItemID:  id,
			At:      at,
			Kind:    kindOf(e.Title),
			Actor:   e.Author,
			ByOwner: handle != "" && strings.Contains(strings.ToLower(e.Author), handle),
		})
	}
	return out
}

func kindOf(title string) Kind {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "updated"):
		return KindUpdate
	case strings.Contains(t, "created"):
		return KindCreate
	default:
		return KindComment
	}
}

// Aggregate folds activities into one metric per item, ordered by item ID.
func Aggregate(activities []Activity, now time.Time) []store.ActivityMetric {
	byItem := make(map[string][]Activity)
	for _, a := range activities {
		byItem[a.ItemID] = append(byItem[a.ItemID], a)
	}

	metrics := make([]store.ActivityMetric, 0, len(byItem))
	for id, acts := range byItem {
		m := store.ActivityMetric{ItemID: id, UpdatedAt: now}
		for _, a := range acts {
			if a.At.After(m.LastActivity) {
				m.LastActivity = a.At
			}
			age := now.Sub(a.At)
			if a.Kind == KindComment && age < commentWindow {
				m.RecentComments++
			}
			if a.ByOwner && age < ownerWindow {
				m.OwnerRecentlyActive = true
			}
		}
		if since := now.Sub(m.LastActivity); since > 0 {
			m.DaysSinceActivity = int(since / (24 * time.Hour))
		}
		metrics = append(metrics, m)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].ItemID < metrics[j].ItemID })
	return metrics
}
