package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"workfocus/internal/analysis"
	"workfocus/internal/cache"
	"workfocus/internal/provider"
	"workfocus/internal/scorer"
	"workfocus/internal/session"
	"workfocus/internal/source"
	"workfocus/internal/store"
	"workfocus/internal/workitem"
)

// app is the set of components one command invocation works with.
type app struct {
	session      *session.State
	cache        *cache.Cache
	activity     *store.Store
	knowledge    *store.Knowledge
	source       *source.File
	orchestrator *analysis.Orchestrator
}

func requireInit() error {
	if _, err := os.Stat(cfg.DataDir); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("not initialized - run 'workfocus init' first")
	}
	return nil
}

func openSession() (*session.State, error) {
	if err := requireInit(); err != nil {
		return nil, err
	}
	return session.Load(cfg.SessionPath(),
		session.WithLogger(logger),
		session.WithFreshnessWindow(cfg.Session.Freshness)), nil
}

func openCache() *cache.Cache {
	return cache.Open(cfg.CachePath(), cache.WithTTL(cfg.Cache.TTL), cache.WithLogger(logger))
}

func openApp(ctx context.Context) (*app, error) {
	sess, err := openSession()
	if err != nil {
		return nil, err
	}
	a := &app{
		session: sess,
		cache:   openCache(),
		source:  source.NewFile(cfg.ItemsPath()),
	}

	a.activity, err = store.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	a.knowledge, err = store.NewKnowledge(cfg.DataDir)
	if err != nil {
		a.activity.Close()
		return nil, err
	}

	p, err := provider.New(ctx, cfg.Provider)
	if err != nil {
		logger.Warn("provider unavailable, using fallback ranking", zap.Error(err))
		p = provider.Unavailable{}
	}
	profile := provider.ProfileFor(cfg.Provider)
	a.orchestrator = analysis.New(p, a.cache,
		analysis.WithSession(sess),
		analysis.WithScorer(scorer.New(scorer.WithActivity(a.activity), scorer.WithLogger(logger))),
		analysis.WithKnowledge(a.knowledge),
		analysis.WithLogger(logger),
		analysis.WithMemoTTL(cfg.Cache.MemoTTL),
		analysis.WithPromptBudget(profile.PromptBudget(), profile.Family),
	)
	return a, nil
}

func (a *app) Close() {
	a.activity.Close()
	a.knowledge.Close()
}

func (a *app) workflow() *analysis.Workflow {
	return &analysis.Workflow{
		Source:       a.source,
		Events:       a.source,
		Session:      a.session,
		Orchestrator: a.orchestrator,
		Logger:       logger,
	}
}

// item finds id in the session snapshot.
func (a *app) item(id string) (workitem.WorkItem, error) {
	items := a.session.Items()
	if len(items) == 0 {
		return workitem.WorkItem{}, fmt.Errorf("no items stored - run 'workfocus scan' first")
	}
	it, ok := workitem.Find(items, id)
	if !ok {
		return workitem.WorkItem{}, fmt.Errorf("item %q not in the last scan", id)
	}
	return it, nil
}
