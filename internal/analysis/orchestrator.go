// Package analysis decides which work item matters most. It asks a reasoning
// provider when it has to, reuses earlier answers while the batch is
// unchanged, and falls back to the deterministic scorer when the provider
// cannot be used.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"workfocus/internal/fingerprint"
	"workfocus/internal/provider"
	"workfocus/internal/scorer"
	"workfocus/internal/session"
	"workfocus/internal/store"
	"workfocus/internal/workitem"
)

const (
	DefaultMemoTTL = 10 * time.Minute
	memoSize       = 128
	similarLimit   = 3
	relatedLimit   = 3
)

var (
	// ErrNoSession is returned by operations that need session state.
	ErrNoSession = errors.New("no session state configured")
	// ErrNoPlan is returned when continuing a plan that was never started.
	ErrNoPlan = errors.New("no active plan")
)

// ResultCache is the durable store for provider answers.
type ResultCache interface {
	Lookup(key string, parts ...string) (json.RawMessage, bool)
	Expired(key string, parts ...string) bool
	Set(key string, payload any) error
	SetByFingerprint(payload any, parts ...string) error
}

// KnowledgeSearcher finds resolutions of similar past items.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]store.Resolution, error)
}

// cachedAnalysis is what survives between runs: the recommended identifier
// and the provider's own words, never the item values themselves.
type cachedAnalysis struct {
	TopID     string `json:"top_id"`
	Reasoning string `json:"reasoning"`
	Text      string `json:"analysis_text"`
}

type cachedSuggestion struct {
	Suggestion string `json:"suggestion"`
}

type Orchestrator struct {
	provider  provider.Provider
	cache     ResultCache
	session   *session.State
	scorer    *scorer.Scorer
	knowledge KnowledgeSearcher
	logger    *zap.Logger
	now       func() time.Time
	memoTTL   time.Duration
	budget    budget

	memo  *expirable.LRU[string, cachedAnalysis]
	group singleflight.Group
}

type Option func(*Orchestrator)

// WithSession enables work-pattern logging, dependency caching, feedback and
// planning.
func WithSession(s *session.State) Option {
	return func(o *Orchestrator) { o.session = s }
}

func WithScorer(s *scorer.Scorer) Option {
	return func(o *Orchestrator) { o.scorer = s }
}

func WithKnowledge(k KnowledgeSearcher) Option {
	return func(o *Orchestrator) { o.knowledge = k }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithMemoTTL sets how long answers stay in the in-process memo.
func WithMemoTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		if ttl > 0 {
			o.memoTTL = ttl
		}
	}
}

// WithPromptBudget caps the workload prompt at tokens, estimated for the
// model family. Item bodies are shortened, then dropped, to fit.
func WithPromptBudget(tokens int, family provider.Family) Option {
	return func(o *Orchestrator) { o.budget = budget{tokens: tokens, family: family} }
}

func New(p provider.Provider, c ResultCache, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: p,
		cache:    c,
		logger:   zap.NewNop(),
		now:      time.Now,
		memoTTL:  DefaultMemoTTL,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.provider == nil {
		o.provider = provider.Unavailable{}
	}
	if o.scorer == nil {
		o.scorer = scorer.New(scorer.WithLogger(o.logger))
	}
	o.memo = expirable.NewLRU[string, cachedAnalysis](memoSize, nil, o.memoTTL)
	return o
}

// Analyze picks the top item of the batch. It never fails: provider trouble
// degrades to the scorer and cache trouble is logged.
func (o *Orchestrator) Analyze(ctx context.Context, items []workitem.WorkItem, events []workitem.Event) Outcome {
	if len(items) == 0 {
		return Outcome{Result: scorer.Empty(), State: Fresh}
	}

	o.logPatterns(items)
	fp := fingerprint.ItemsWithEvents(items, events)
	out := Outcome{Fingerprint: fp}

	if c, ok := o.memo.Get(fp); ok {
		return o.finish(out, CachedValid, rebuild(c, items, workitem.SourceCache))
	}
	if c, ok := o.lookup(fp); ok {
		o.memo.Add(fp, c)
		return o.finish(out, CachedValid, rebuild(c, items, workitem.SourceCache))
	}
	if o.cache != nil && o.cache.Expired(fp, fp) {
		out.Path = append(out.Path, CachedExpired)
	} else {
		out.Path = append(out.Path, Fresh)
	}

	v, err, shared := o.group.Do(fp, func() (any, error) {
		return o.ask(ctx, fp, items, events)
	})
	if err != nil {
		o.logger.Warn("provider analysis failed, using fallback",
			zap.String("fingerprint", fp), zap.Error(err))
		out.Path = append(out.Path, ProviderFailed)
		return o.finish(out, Fallback, o.scorer.Rank(ctx, items, o.now()))
	}
	if shared {
		o.logger.Debug("provider call shared", zap.String("fingerprint", fp))
	}
	return o.finish(out, ProviderOK, rebuild(v.(cachedAnalysis), items, workitem.SourceProvider))
}

func (o *Orchestrator) finish(out Outcome, s State, res workitem.AnalysisResult) Outcome {
	out.Path = append(out.Path, s)
	out.State = s
	out.Result = res
	return out
}

func (o *Orchestrator) lookup(fp string) (cachedAnalysis, bool) {
	if o.cache == nil {
		return cachedAnalysis{}, false
	}
	raw, ok := o.cache.Lookup(fp, fp)
	if !ok {
		return cachedAnalysis{}, false
	}
	var c cachedAnalysis
	if err := json.Unmarshal(raw, &c); err != nil || c.Text == "" {
		o.logger.Warn("ignoring unreadable cached analysis", zap.String("fingerprint", fp), zap.Error(err))
		return cachedAnalysis{}, false
	}
	return c, true
}

// ask calls the provider once and writes a usable answer through to the memo
// and the durable cache.
func (o *Orchestrator) ask(ctx context.Context, fp string, items []workitem.WorkItem, events []workitem.Event) (cachedAnalysis, error) {
	var categories []string
	if o.session != nil {
		categories = o.session.TopCategories()
	}
	prompt := fitWorkloadPrompt(items, events, categories, o.now(), o.budget)

	start := time.Now()
	text, err := o.provider.Complete(ctx, prompt)
	if err != nil {
		return cachedAnalysis{}, err
	}
	text = CleanResponse(text)
	if text == "" {
		return cachedAnalysis{}, fmt.Errorf("%w: empty answer", provider.ErrProviderFailure)
	}
	o.logger.Debug("provider answered", zap.Duration("took", time.Since(start)), zap.Int("chars", len(text)))

	top, _ := ExtractRecommended(text, items)
	c := cachedAnalysis{TopID: top.ID, Reasoning: ExtractReasoning(text), Text: text}

	o.memo.Add(fp, c)
	if o.cache != nil {
		if err := o.cache.Set(fp, c); err != nil {
			o.logger.Warn("cache write failed", zap.String("fingerprint", fp), zap.Error(err))
		}
		if err := o.cache.SetByFingerprint(c, fp); err != nil {
			o.logger.Warn("cache write failed", zap.String("fingerprint", fp), zap.Error(err))
		}
	}
	return c, nil
}

// rebuild resolves a stored answer against the current batch. A recommended
// identifier that left the batch is replaced by the first item.
func rebuild(c cachedAnalysis, items []workitem.WorkItem, src workitem.ResultSource) workitem.AnalysisResult {
	top := items[0]
	if it, ok := workitem.Find(items, c.TopID); ok {
		top = it
	}
	ordered := make([]workitem.WorkItem, 0, len(items))
	ordered = append(ordered, top)
	for _, it := range items {
		if it.ID != top.ID {
			ordered = append(ordered, it)
		}
	}
	reasoning := c.Reasoning
	if reasoning == "" {
		reasoning = DefaultReasoning
	}
	return workitem.AnalysisResult{
		TopPriority:  &top,
		Reasoning:    reasoning,
		NextSteps:    []string{"Review item details", "Plan approach", "Execute solution"},
		CanHelpWith:  []string{"Research the issue", "Create action plan", "Draft status update"},
		OtherNotable: workitem.Notable(ordered),
		Summary:      c.Text,
		Source:       src,
	}
}

func (o *Orchestrator) logPatterns(items []workitem.WorkItem) {
	if o.session == nil {
		return
	}
	if err := o.session.LogCommand("analyze"); err != nil {
		o.logger.Warn("record work pattern", zap.Error(err))
		return
	}
	cats := make([]string, 0, len(items))
	for _, it := range items {
		cats = append(cats, it.Category)
	}
	if err := o.session.LogCategories(cats...); err != nil {
		o.logger.Warn("record work pattern", zap.Error(err))
	}
}

// Dependencies returns the edges stored for the current session snapshot,
// computing and storing them when none exist.
func (o *Orchestrator) Dependencies(items []workitem.WorkItem) (map[string][]string, error) {
	if o.session != nil {
		if deps, ok := o.session.Dependencies(); ok {
			return deps, nil
		}
	}
	deps := AnalyzeDependencies(items)
	if o.session != nil {
		if err := o.session.SetDependencies(deps); err != nil {
			return deps, err
		}
	}
	return deps, nil
}

type SuggestOptions struct {
	// Force skips the cached suggestion.
	Force bool
	// Related items are mentioned in the prompt and in the cache key. When
	// nil, recently discussed items from the session are used.
	Related []session.RecentItem
}

type Suggestion struct {
	Text   string
	Source workitem.ResultSource
}

// SuggestionKey is the cache key of a suggestion for an item in context.
func SuggestionKey(id, hint string, related []session.RecentItem) string {
	key := "suggest:" + id + ":" + strings.TrimSpace(hint)
	if len(related) == 0 {
		return key
	}
	ids := make([]string, len(related))
	for i, r := range related {
		ids[i] = r.ID
	}
	sort.Strings(ids)
	return key + ":" + strings.Join(ids, ",")
}

// SuggestAction proposes the next step for one item. Provider answers are
// cached; the deterministic fallback is not.
func (o *Orchestrator) SuggestAction(ctx context.Context, it workitem.WorkItem, hint string, opts SuggestOptions) Suggestion {
	related := opts.Related
	if related == nil && o.session != nil {
		related = o.session.RecentItems(it.ID, relatedLimit)
	}
	key := SuggestionKey(it.ID, hint, related)
	defer o.remember(it)

	if !opts.Force && o.cache != nil {
		if raw, ok := o.cache.Lookup(key); ok {
			var c cachedSuggestion
			if err := json.Unmarshal(raw, &c); err == nil && c.Suggestion != "" {
				return Suggestion{Text: c.Suggestion, Source: workitem.SourceCache}
			}
		}
	}

	var similar []store.Resolution
	if o.knowledge != nil {
		var err error
		similar, err = o.knowledge.Search(ctx, it.Title, similarLimit)
		if err != nil {
			o.logger.Warn("knowledge search failed", zap.String("item", it.ID), zap.Error(err))
		}
	}
	var feedback []string
	if o.session != nil {
		feedback = o.session.Feedback(it.ID, hint)
	}

	now := o.now()
	text, err := o.provider.Complete(ctx, suggestionPrompt(it, hint, similar, related, feedback, now))
	text = CleanResponse(text)
	if err != nil || text == "" {
		o.logger.Warn("provider suggestion failed, using fallback", zap.String("item", it.ID), zap.Error(err))
		return Suggestion{Text: withSimilar(similar, FallbackSuggestion(it, now)), Source: workitem.SourceFallback}
	}

	text = withSimilar(similar, text)
	if o.cache != nil {
		if err := o.cache.Set(key, cachedSuggestion{Suggestion: text}); err != nil {
			o.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return Suggestion{Text: text, Source: workitem.SourceProvider}
}

func withSimilar(similar []store.Resolution, text string) string {
	if kb := similarText(similar); kb != "" {
		return kb + "\n\n" + text
	}
	return text
}

func (o *Orchestrator) remember(it workitem.WorkItem) {
	if o.session == nil {
		return
	}
	if err := o.session.LogCommand("suggest"); err != nil {
		o.logger.Warn("record work pattern", zap.Error(err))
	}
	if err := o.session.RecordRecent(it); err != nil {
		o.logger.Warn("record recent item", zap.Error(err))
	}
}

// Plan asks for the next step toward goal. A non-empty goal starts a new plan
// and replaces the history with "plan <goal>"; an empty goal continues the
// plan stored in the history. The returned step is appended to the history.
func (o *Orchestrator) Plan(ctx context.Context, goal string) (string, error) {
	if o.session == nil {
		return "", ErrNoSession
	}
	goal = strings.TrimSpace(goal)
	var steps []string
	if goal != "" {
		if err := o.session.ReplaceHistory("plan " + goal); err != nil {
			return "", err
		}
	} else {
		history := o.session.History()
		if n := len(history); n > 0 && strings.EqualFold(strings.TrimSpace(history[n-1]), "plan") {
			history = history[:n-1]
			if err := o.session.ReplaceHistory(history...); err != nil {
				return "", err
			}
		}
		if len(history) == 0 {
			return "", ErrNoPlan
		}
		goal = history[0]
		if len(goal) >= 5 && strings.EqualFold(goal[:5], "plan ") {
			goal = goal[5:]
		}
		steps = slices.Clone(history[1:])
	}

	text, err := o.provider.Complete(ctx, planPrompt(goal, steps))
	if err != nil {
		if !errors.Is(err, provider.ErrProviderFailure) {
			err = fmt.Errorf("%w: %v", provider.ErrProviderFailure, err)
		}
		return "", err
	}
	step := CleanResponse(text)
	if step == "" {
		return "", fmt.Errorf("%w: empty plan step", provider.ErrProviderFailure)
	}
	if err := o.session.AddHistory(step); err != nil {
		return step, err
	}
	return step, nil
}
