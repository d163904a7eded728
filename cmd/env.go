package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/enhance"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/setaside"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/store"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/pkg/jobqueue"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/pkg/llm"
)

// pipelineEnv holds the initialized store and enhancement components shared
// by the batch/serve/cleanup commands.
type pipelineEnv struct {
	Store     store.Store
	Engine    *enhance.Engine
	Batch     *enhance.Batch
	Iterative *enhance.Iterative
	Sweep     *enhance.Sweep
}

// Close releases resources held by the environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	}
	return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
}

// initEnv validates config for the given mode, opens the store, runs
// migrations and the startup sweep, and wires the enhancement components.
// Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	sweep := enhance.NewSweep(st)
	if _, err := sweep.OnStartup(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	if cfg.Enhance.SetAsideRulesPath != "" {
		rules, err := setaside.LoadRules(cfg.Enhance.SetAsideRulesPath)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		setaside.UseRules(rules)
		zap.L().Info("loaded set-aside rule overrides",
			zap.String("path", cfg.Enhance.SetAsideRulesPath))
	}

	client := llm.NewClient(cfg.Anthropic.Key,
		llm.WithTimeout(time.Duration(cfg.Anthropic.TimeoutSecs)*time.Second),
		llm.WithRateLimit(cfg.Anthropic.RatePerSec, cfg.Anthropic.RateBurst),
	)

	engine := enhance.NewEngine(st, client, enhance.Config{
		Model:             cfg.Anthropic.Model,
		ModelVersion:      cfg.Enhance.ModelVersion,
		MaxTokens:         cfg.Anthropic.MaxTokens,
		SetAsideLLMCutoff: cfg.Enhance.SetAsideLLMCutoff,
	})

	iterOpts := []enhance.IterOption{
		enhance.WithGraceTimeout(cfg.Enhance.StopGrace()),
	}
	if cfg.JobQueue.BaseURL != "" {
		iterOpts = append(iterOpts, enhance.WithJobQueue(jobqueue.New(cfg.JobQueue.BaseURL)))
		zap.L().Info("external job queue enabled", zap.String("base_url", cfg.JobQueue.BaseURL))
	}

	return &pipelineEnv{
		Store:     st,
		Engine:    engine,
		Batch:     enhance.NewBatch(engine, st),
		Iterative: enhance.NewIterative(engine, st, iterOpts...),
		Sweep:     sweep,
	}, nil
}
