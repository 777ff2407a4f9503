// Package scorer ranks work items without a reasoning provider. It is the
// fallback used whenever the provider is unreachable or its answer cannot be
// tied to a known item, so every output must be reproducible from the inputs.
package scorer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"workfocus/internal/store"
	"workfocus/internal/workitem"
)

// StaleThreshold is the staleness, in days, that earns a mention in the reasoning.
const StaleThreshold = 30

// KeywordBoost is subtracted from the tier rank when an urgency keyword matches.
const KeywordBoost = 2

const unknownRank = 6

// priorityRanks maps normalized priority labels to tiers. Lower ranks first.
var priorityRanks = map[string]int{
	"p0":            -1,
	"p1":            0,
	"p1 - critical": 0,
	"critical":      0,
	"highest":       0,
	"high":          1,
	"p2":            2,
	"medium":        3,
	"p3":            4,
	"low":           5,
}

var urgencyKeywords = []string{
	"security", "failure", "critical", "blocked", "urgent", "voc_feedback",
}

// ActivityLookup reads the engagement metric recorded for an item.
type ActivityLookup interface {
	Metric(ctx context.Context, id string) (store.ActivityMetric, bool, error)
}

// NormalizePriority trims and lowercases a tracker priority label.
func NormalizePriority(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// PriorityRank returns the tier rank for a raw label; unrecognized labels rank last.
func PriorityRank(label string) int {
	if r, ok := priorityRanks[NormalizePriority(label)]; ok {
		return r
	}
	return unknownRank
}

// MatchKeyword returns the first urgency keyword found in the item's title or
// body, or "" when none matches.
func MatchKeyword(it workitem.WorkItem) string {
	title := strings.ToLower(it.Title)
	body := strings.ToLower(it.Body)
	for _, kw := range urgencyKeywords {
		if strings.Contains(title, kw) || strings.Contains(body, kw) {
			return kw
		}
	}
	return ""
}

// Scored is one ranked item with the signals that placed it.
type Scored struct {
	Item      workitem.WorkItem
	Tier      int
	Keyword   string
	Rank      int
	StaleDays int
	AgeDays   int
}

type Scorer struct {
	activity ActivityLookup
	logger   *zap.Logger
}

type Option func(*Scorer)

// WithActivity enriches reasoning with recorded engagement metrics.
func WithActivity(lookup ActivityLookup) Option {
	return func(s *Scorer) { s.activity = lookup }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Scorer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(opts ...Option) *Scorer {
	s := &Scorer{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score orders items by (adjusted rank, -staleness, -age). Item IDs break the
// remaining ties so the order never depends on input order.
func (s *Scorer) Score(items []workitem.WorkItem, now time.Time) []Scored {
	scored := make([]Scored, len(items))
	for i, it := range items {
		tier := PriorityRank(it.Priority)
		kw := MatchKeyword(it)
		rank := tier
		if kw != "" {
			rank -= KeywordBoost
		}
		scored[i] = Scored{
			Item:      it,
			Tier:      tier,
			Keyword:   kw,
			Rank:      rank,
			StaleDays: it.StaleDays(now),
			AgeDays:   it.AgeDays(now),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		if a.StaleDays != b.StaleDays {
			return a.StaleDays > b.StaleDays
		}
		if a.AgeDays != b.AgeDays {
			return a.AgeDays > b.AgeDays
		}
		return a.Item.ID < b.Item.ID
	})
	return scored
}

// Rank builds a fallback analysis from the deterministic order.
func (s *Scorer) Rank(ctx context.Context, items []workitem.WorkItem, now time.Time) workitem.AnalysisResult {
	if len(items) == 0 {
		return Empty()
	}
	ranked := s.Score(items, now)
	top := ranked[0]

	reasoning := Explain(top)
	if extra := s.activityContext(ctx, top, now); extra != "" {
		reasoning += ". " + extra
	}

	ordered := make([]workitem.WorkItem, len(ranked))
	for i, r := range ranked {
		ordered[i] = r.Item
	}
	topItem := top.Item
	return workitem.AnalysisResult{
		TopPriority:  &topItem,
		Reasoning:    reasoning,
		NextSteps:    []string{"Review item details", "Identify blockers", "Plan next action"},
		CanHelpWith:  []string{"Analyze the issue", "Suggest approach", "Draft updates"},
		OtherNotable: workitem.Notable(ordered),
		Summary:      fmt.Sprintf("You have %d items. Focus on %s first - %s.", len(items), topItem.ID, reasoning),
		Source:       workitem.SourceFallback,
	}
}

// Empty is the result for an empty batch.
func Empty() workitem.AnalysisResult {
	return workitem.AnalysisResult{
		Reasoning:    "No work items found",
		NextSteps:    []string{},
		CanHelpWith:  []string{},
		OtherNotable: []workitem.WorkItem{},
		Summary:      "No open work items to analyze.",
		Source:       workitem.SourceEmpty,
	}
}

// Explain renders the signals that produced a ranking position.
func Explain(s Scored) string {
	var reasons []string
	if s.Tier <= priorityRanks["high"] {
		reasons = append(reasons, strings.TrimSpace(s.Item.Priority)+" priority")
	}
	if s.StaleDays > StaleThreshold {
		reasons = append(reasons, fmt.Sprintf("stale for %d days", s.StaleDays))
	}
	switch s.Keyword {
	case "":
	case "security":
		reasons = append(reasons, "security-related")
	case "failure":
		reasons = append(reasons, "contains failure indication")
	default:
		reasons = append(reasons, fmt.Sprintf("mentions %q", s.Keyword))
	}
	if len(reasons) == 0 {
		return "Highest ranked item in queue"
	}
	return "Selected due to: " + strings.Join(reasons, ", ")
}

func (s *Scorer) activityContext(ctx context.Context, top Scored, now time.Time) string {
	if s.activity == nil {
		return ""
	}
	m, ok, err := s.activity.Metric(ctx, top.Item.ID)
	if err != nil {
		s.logger.Debug("activity lookup failed", zap.String("item", top.Item.ID), zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return ActivityReasoning(top.Item, m, now)
}

// ActivityReasoning describes what recent feed activity says about an item.
func ActivityReasoning(it workitem.WorkItem, m store.ActivityMetric, now time.Time) string {
	age := it.AgeDays(now)
	status := strings.ToLower(strings.TrimSpace(it.Status))
	switch {
	case age > 180 && m.DaysSinceActivity > 90:
		return fmt.Sprintf("Open for %d days with no activity for %d days - it may no longer be relevant", age, m.DaysSinceActivity)
	case strings.HasPrefix(NormalizePriority(it.Priority), "p1") && m.RecentComments > 0:
		return fmt.Sprintf("P1 with %d recent comments - check for blockers or escalations", m.RecentComments)
	case m.OwnerRecentlyActive:
		return "You were active on this recently - pick up where you left off"
	case status == "in progress" && m.DaysSinceActivity > 21:
		return fmt.Sprintf("In progress but silent for %d days - follow up on status", m.DaysSinceActivity)
	}
	return ""
}
