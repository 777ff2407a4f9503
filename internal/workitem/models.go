package workitem

import (
	"fmt"
	"slices"
	"time"
)

// MaxOtherNotable bounds AnalysisResult.OtherNotable.
const MaxOtherNotable = 3

type WorkItem struct {
	ID           string    `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	Body         string    `json:"body" yaml:"body"`
	Priority     string    `json:"priority" yaml:"priority"`
	Status       string    `json:"status" yaml:"status"`
	Owner        string    `json:"owner,omitempty" yaml:"owner,omitempty"`
	Created      time.Time `json:"created" yaml:"created"`
	Updated      time.Time `json:"updated" yaml:"updated"`
	CommentCount int       `json:"comment_count" yaml:"comment_count"`
	Labels       []string  `json:"labels,omitempty" yaml:"labels,omitempty"`
	Category     string    `json:"category" yaml:"category"`
}

func (w WorkItem) Age(now time.Time) time.Duration {
	return now.Sub(w.Created)
}

func (w WorkItem) Staleness(now time.Time) time.Duration {
	return now.Sub(w.Updated)
}

// AgeDays counts whole days since creation.
func (w WorkItem) AgeDays(now time.Time) int {
	return wholeDays(w.Age(now))
}

// StaleDays counts whole days since the last update.
func (w WorkItem) StaleDays(now time.Time) int {
	return wholeDays(w.Staleness(now))
}

// WithStatus returns a copy carrying the new status. The receiver is left untouched.
func (w WorkItem) WithStatus(status string) WorkItem {
	out := w
	out.Labels = slices.Clone(w.Labels)
	out.Status = status
	return out
}

func wholeDays(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// Event is auxiliary scheduling context (a calendar entry) that takes part in
// the extended fingerprint and in provider prompts.
type Event struct {
	Summary string    `json:"summary" yaml:"summary"`
	Start   time.Time `json:"start" yaml:"start"`
	End     time.Time `json:"end" yaml:"end"`
}

type ResultSource string

const (
	SourceProvider ResultSource = "provider"
	SourceCache    ResultSource = "cache"
	SourceFallback ResultSource = "fallback"
	SourceEmpty    ResultSource = "empty"
)

type AnalysisResult struct {
	TopPriority  *WorkItem    `json:"top_priority"`
	Reasoning    string       `json:"reasoning"`
	NextSteps    []string     `json:"next_steps"`
	CanHelpWith  []string     `json:"can_help_with"`
	OtherNotable []WorkItem   `json:"other_notable"`
	Summary      string       `json:"summary"`
	Source       ResultSource `json:"source"`
}

// Validate checks the result against the batch it was computed for: TopPriority
// is nil iff the batch is empty and otherwise names a member of it.
func (r AnalysisResult) Validate(items []WorkItem) error {
	if len(r.OtherNotable) > MaxOtherNotable {
		return fmt.Errorf("other notable has %d entries, max %d", len(r.OtherNotable), MaxOtherNotable)
	}
	if len(items) == 0 {
		if r.TopPriority != nil {
			return fmt.Errorf("top priority %q set for empty batch", r.TopPriority.ID)
		}
		return nil
	}
	if r.TopPriority == nil {
		return fmt.Errorf("top priority missing for %d items", len(items))
	}
	if _, ok := Find(items, r.TopPriority.ID); !ok {
		return fmt.Errorf("top priority %q not in batch", r.TopPriority.ID)
	}
	return nil
}

// Find returns the item with the given identifier.
func Find(items []WorkItem, id string) (WorkItem, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return WorkItem{}, false
}

// IDs lists identifiers in input order.
func IDs(items []WorkItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// Notable returns up to MaxOtherNotable items following the first one.
func Notable(items []WorkItem) []WorkItem {
	if len(items) <= 1 {
		return []WorkItem{}
	}
	end := min(len(items), 1+MaxOtherNotable)
	return slices.Clone(items[1:end])
}
