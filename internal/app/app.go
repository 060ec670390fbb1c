// Package app wires configured backends into a ready pipeline. Both the
// server and the CLI build their orchestrator here.
package app

import (
	"context"
	"fmt"
	"time"

	"procurement-assistant/internal/api"
	"procurement-assistant/internal/common/aws"
	"procurement-assistant/internal/common/config"
	"procurement-assistant/internal/common/database"
	"procurement-assistant/internal/common/logger"
	"procurement-assistant/internal/common/observability"
	"procurement-assistant/internal/pipeline/cache"
	"procurement-assistant/internal/pipeline/dataaccess"
	"procurement-assistant/internal/pipeline/generator"
	"procurement-assistant/internal/pipeline/intent"
	"procurement-assistant/internal/pipeline/llm"
	"procurement-assistant/internal/pipeline/orchestrator"
	"procurement-assistant/internal/pipeline/planner"
	"procurement-assistant/internal/pipeline/validator"
)

const intentTemperature = 0.1

// App holds the orchestrator and the resources that must be released with it.
type App struct {
	Orchestrator  *orchestrator.Orchestrator
	Observability *observability.Observability
	// Checks are the readiness probes of every connected backend.
	Checks map[string]api.ReadyCheck

	closers []func() error
	logger  logger.Logger
}

// Options tune backend connection attempts.
type Options struct {
	ConnectAttempts int
	ConnectDelay    time.Duration
	ServiceName     string
}

// Build connects every backend the configuration selects and assembles the
// pipeline. Backends left on "memory" need no connection.
func Build(ctx context.Context, cfg *config.Config, opts Options, log logger.Logger) (*App, error) {
	if opts.ConnectAttempts <= 0 {
		opts.ConnectAttempts = 1
	}
	if opts.ServiceName == "" {
		opts.ServiceName = cfg.App.Name
	}

	a := &App{Checks: make(map[string]api.ReadyCheck), logger: log}
	deps, err := a.connect(ctx, cfg, opts)
	if err != nil {
		a.Close()
		return nil, err
	}

	obs, err := observability.New(opts.ServiceName)
	if err != nil {
		log.Warn("observability meter unavailable", map[string]interface{}{"error": err.Error()})
	}
	a.Observability = obs
	deps.Observability = obs
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return obs.Shutdown(ctx)
	})

	client, err := llm.New(ctx, cfg.APIs.GenAI, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("language model client: %w", err)
	}
	deps.Classifier = intent.New(client, intent.Options{Temperature: intentTemperature}, log)
	deps.Generator = generator.New(client, generator.Options{
		Provider:    cfg.APIs.GenAI.Provider,
		Temperature: cfg.APIs.GenAI.Temperature,
		MaxTokens:   cfg.APIs.GenAI.MaxTokens,
	}, log)
	deps.Planner = planner.New()
	deps.HistoryIdleTTL = config.GetDuration(cfg.Validator.IdleSessionTTL)

	a.Orchestrator = orchestrator.New(deps, log)
	return a, nil
}

func (a *App) connect(ctx context.Context, cfg *config.Config, opts Options) (orchestrator.Deps, error) {
	var deps orchestrator.Deps

	var redisClient *database.RedisClient
	if cfg.UsesRedis() {
		err := RetryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, opts.ConnectAttempts, opts.ConnectDelay, a.logger, "Redis connection")
		if err != nil {
			return deps, err
		}
		a.closers = append(a.closers, redisClient.Close)
		a.Checks["redis"] = redisClient.Ping
		a.logger.Info("redis connected", map[string]interface{}{"address": cfg.Database.Redis.Address})
	}

	var store dataaccess.Store = dataaccess.NewMemoryStore(nil)
	if cfg.Store.Backend == "postgres" {
		var pg *database.PostgresClient
		err := RetryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, opts.ConnectAttempts, opts.ConnectDelay, a.logger, "PostgreSQL connection")
		if err != nil {
			return deps, err
		}
		a.closers = append(a.closers, pg.Close)
		a.Checks["postgres"] = pg.Ping
		store = dataaccess.NewPostgresStore(pg.DB)
		a.logger.Info("postgres connected", map[string]interface{}{"host": cfg.Database.Postgres.Host})
	}

	var searcher dataaccess.VendorSearcher
	if cfg.Store.SearchBackend == "elasticsearch" {
		var es *database.ElasticsearchClient
		err := RetryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, opts.ConnectAttempts, opts.ConnectDelay, a.logger, "Elasticsearch connection")
		if err != nil {
			return deps, err
		}
		a.Checks["elasticsearch"] = es.Ping
		searcher = dataaccess.NewElasticsearchSearcher(es.Client, es.Index)
		a.logger.Info("elasticsearch connected", map[string]interface{}{"url": cfg.Database.Elasticsearch.GetURL()})
	}
	deps.DataAccess = dataaccess.NewFacade(store, searcher, config.GetDuration(cfg.Store.QueryTimeout), a.logger)

	ttl := config.GetDuration(cfg.Cache.TTL)
	if cfg.Cache.Backend == "redis" {
		deps.Cache = cache.NewRedisCache(redisClient.Client, ttl, cfg.Cache.MaxEntries, cfg.Cache.KeyPrefix, a.logger)
	} else {
		deps.Cache = cache.NewMemoryCache(ttl, cfg.Cache.MaxEntries)
	}

	vcfg := validator.Config{
		MaxQueryLength:   cfg.Validator.MaxQueryLength,
		LongQueryWarning: cfg.Validator.LongQueryWarning,
		RateLimit:        cfg.Validator.RateLimit,
		RateWindow:       config.GetDuration(cfg.Validator.RateWindow),
		IdleSessionTTL:   config.GetDuration(cfg.Validator.IdleSessionTTL),
	}
	var rates validator.RateStore
	if cfg.Validator.RateBackend == "redis" {
		rates = validator.NewRedisRateStore(redisClient.Client, vcfg.RateLimit, vcfg.RateWindow, "")
	}

	var sink validator.SecuritySink = validator.NewLogSink(a.logger)
	if cfg.Security.SNS.Enabled {
		publisher, err := aws.NewSNSClient(ctx, cfg.Security.SNS.Region, cfg.Security.SNS.TopicARN)
		if err != nil {
			return deps, fmt.Errorf("sns client: %w", err)
		}
		snsSink := validator.NewSNSSink(publisher, 0, a.logger)
		a.closers = append(a.closers, func() error {
			snsSink.Close()
			return nil
		})
		sink = validator.MultiSink{sink, snsSink}
	}
	deps.Validator = validator.New(vcfg, rates, sink, a.logger)

	return deps, nil
}

// Close releases backends in reverse order of connection.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
}
