package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/amishk599/jobsift/internal/adapter"
	"github.com/amishk599/jobsift/internal/ai"
	"github.com/amishk599/jobsift/internal/config"
	"github.com/amishk599/jobsift/internal/filter"
	"github.com/amishk599/jobsift/internal/metrics"
	"github.com/amishk599/jobsift/internal/model"
	"github.com/amishk599/jobsift/internal/pipeline"
	"github.com/amishk599/jobsift/internal/ratelimit"
	"github.com/amishk599/jobsift/internal/resume"
	"github.com/amishk599/jobsift/internal/store"
)

// greenhouseHost keys the fetch rate limiter; every source shares one API host.
const greenhouseHost = "boards-api.greenhouse.io"

// app holds the dependencies shared across pipeline runs. Stages are rebuilt
// per run so each run gets its own run_id logger.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       rowStore
	store    model.PostingStore
	fetcher  model.SourceFetcher
	provider ai.LLMProvider
	cache    ai.VerdictCache
	notifier model.Notifier
	recorder *metrics.Recorder
	redis    *redis.Client
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, dryRun bool) (*app, error) {
	if err := cfg.RequireAI(); err != nil {
		return nil, err
	}

	db, err := openStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, db: db, store: db, recorder: metrics.NewRecorder()}
	if dryRun {
		logger.Info("dry-run mode enabled, no rows will be written")
		a.store = store.NewDryRunStore(db, logger)
	}

	fetchLimiter := ratelimit.NewKeyedLimiter(cfg.Fetch.RequestsPerSecond, 1)
	a.fetcher = ratelimit.NewRateLimitedFetcher(
		adapter.NewGreenhouseAdapter("", &http.Client{Timeout: cfg.Fetch.Timeout}),
		fetchLimiter,
		greenhouseHost,
	)

	provider, err := ai.NewProvider(ctx, ai.ProviderConfig{
		Provider: cfg.AI.Provider,
		BaseURL:  cfg.AI.BaseURL,
		Model:    cfg.AI.Model,
		APIKey:   cfg.AI.APIKey,
		Timeout:  cfg.AI.Timeout,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create ai provider: %w", err)
	}
	aiLimiter := ratelimit.NewKeyedLimiter(cfg.AI.RequestsPerSecond, 1)
	a.provider = ratelimit.NewRateLimitedProvider(provider, aiLimiter, cfg.AI.Provider)

	if cfg.Cache.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, location verdicts will not be cached across runs", "addr", cfg.Cache.RedisAddr, "error", err)
		}
		cancel()
		a.cache = ai.NewRedisCache(a.redis, cfg.Cache.TTL)
	} else {
		a.cache = ai.NewMemoryCache()
	}

	a.notifier = runNotifier(cfg, logger, dryRun)

	logger.Info("config loaded",
		"sources", len(cfg.Sources),
		"store", cfg.Store.Driver,
		"provider", cfg.AI.Provider,
		"model", cfg.AI.Model,
		"title_keywords", len(cfg.Filters.TitleKeywords),
		"lookback", cfg.Lookback.String(),
	)
	return a, nil
}

func (a *app) stages(logger *slog.Logger) []pipeline.Stage {
	cfg := a.cfg
	window := cfg.Filters.EligibilityWindow
	return []pipeline.Stage{
		pipeline.NewFetchStage(a.fetcher, a.store, pipeline.FetchConfig{
			Sources:     cfg.Sources,
			Lookback:    cfg.Lookback,
			Concurrency: cfg.Fetch.Concurrency,
			BatchSize:   cfg.Fetch.BatchSize,
		}, logger),
		pipeline.NewTitleFilterStage(
			a.store,
			filter.NewTitleFilter(cfg.Filters.TitleKeywords, cfg.Filters.TitleExcludeKeywords),
			window,
			cfg.Title.BatchSize,
			logger,
		),
		pipeline.NewLocationStage(
			a.store,
			ai.NewLocationClassifier(a.provider, ai.LocationTemplate, a.cache, logger),
			pipeline.ChunkConfig{Concurrency: cfg.Location.Concurrency, BatchSize: cfg.Location.BatchSize, Window: window},
			logger,
		),
		pipeline.NewFitMatchStage(
			a.store,
			ai.NewFitMatcher(a.provider, ai.FitMatchTemplate),
			func() (string, error) { return resume.Load(cfg.Match.Resume) },
			a.notifier,
			pipeline.FitMatchConfig{
				ChunkConfig:     pipeline.ChunkConfig{Concurrency: cfg.Match.Concurrency, BatchSize: cfg.Match.BatchSize, Window: window},
				NotifyThreshold: cfg.Match.NotifyThreshold,
			},
			logger,
		),
	}
}

// runOnce executes the four stages once and records run metrics.
func (a *app) runOnce(ctx context.Context) error {
	logger := a.logger.With("run_id", uuid.NewString())
	p := pipeline.New(logger, a.recorder, a.stages(logger)...)

	start := time.Now()
	_, err := p.Run(ctx)
	a.recorder.ObserveRun(time.Since(start), err)

	if url := a.cfg.Metrics.PushgatewayURL; url != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if perr := a.recorder.Push(pushCtx, url, a.cfg.Metrics.Job); perr != nil {
			logger.Warn("metrics push failed", "url", url, "error", perr)
		}
		cancel()
	}
	return err
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("closing redis", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("closing store", "error", err)
	}
}
