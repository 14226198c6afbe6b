// Package application assembles the extraction stack from configuration.
// It owns construction order and shutdown order; commands and the worker
// binary stay thin by borrowing a fully wired App instead of wiring
// infrastructure themselves.
package application

import (
	"context"

	"github.com/bpointel/docintel/internal/classify"
	"github.com/bpointel/docintel/internal/config"
	"github.com/bpointel/docintel/internal/extraction"
	"github.com/bpointel/docintel/internal/fusion"
	"github.com/bpointel/docintel/internal/heuristics"
	"github.com/bpointel/docintel/internal/infrastructure/database/postgres"
	"github.com/bpointel/docintel/internal/infrastructure/database/postgres/repositories"
	"github.com/bpointel/docintel/internal/infrastructure/database/redis"
	"github.com/bpointel/docintel/internal/infrastructure/external/modelserving"
	"github.com/bpointel/docintel/internal/infrastructure/messaging/kafka"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/prometheus"
	"github.com/bpointel/docintel/internal/infrastructure/search/milvus"
	"github.com/bpointel/docintel/internal/pipeline"
	"github.com/bpointel/docintel/internal/relationship"
	"github.com/bpointel/docintel/pkg/errors"
)

// Options toggles optional subsystems.  The extract command runs without
// Kafka; tests run without metrics.
type Options struct {
	// WithKafka enables the summary producer.  The consumer is always
	// constructed by the caller, not here.
	WithKafka bool

	// Metrics receives pipeline instrumentation when non-nil.
	Metrics *prometheus.PipelineMetrics
}

// App holds every wired component plus the assembled pipeline driver.
// Close releases them in reverse construction order.
type App struct {
	Config *config.Config
	Logger logging.Logger

	Postgres *postgres.Connection
	Redis    *redis.Client
	Milvus   *milvus.Client
	Producer *kafka.Producer

	Heuristics  *heuristics.Store
	Repo        *repositories.DocumentRepository
	Checkpoints *repositories.CheckpointRepository
	Cache       redis.Cache
	Driver      *pipeline.Driver

	watcher *heuristics.Watcher
}

// New wires the full extraction stack.  The statistical, embedding, and LLM
// tiers are skipped, with a warning, when their backing service is not
// configured; the deterministic tiers and Postgres are mandatory.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, opts Options) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	store, err := heuristics.Load(cfg.Heuristics.Dir)
	if err != nil {
		app.Close()
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "loading heuristics reference data")
	}
	app.Heuristics = store
	if cfg.Heuristics.WatchReload {
		w, werr := heuristics.NewWatcher(cfg.Heuristics.Dir, logger)
		if werr != nil {
			logger.Warn("heuristics watcher unavailable", logging.Err(werr))
		} else {
			app.watcher = w
		}
	}

	app.Postgres, err = postgres.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Repo = repositories.NewDocumentRepository(app.Postgres.Pool(), logger)
	app.Checkpoints = repositories.NewCheckpointRepository(app.Postgres.Pool(), logger)

	var cacheMetrics redis.CacheMetrics
	if opts.Metrics != nil {
		cacheMetrics = opts.Metrics
	}
	app.Redis, err = redis.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable; using in-process LLM budget and no cache", logging.Err(err))
		app.Redis = nil
	} else {
		app.Cache = redis.NewCache(app.Redis, logger, cacheMetrics)
	}

	var guard extraction.BudgetGuard
	if app.Redis != nil {
		guard = redis.NewBudgetGuard(app.Redis, cfg.LLM.BudgetWindow, cfg.LLM.BudgetMaxCalls, logger)
	} else {
		guard = extraction.NewWindowGuard(cfg.LLM.BudgetWindow, cfg.LLM.BudgetMaxCalls)
	}

	base := []extraction.Generator{
		extraction.NewHeuristicMatcher(store, cfg.Extraction.Confidence, logger),
		extraction.NewPatternMatcher(cfg.Extraction.Confidence, logger),
	}
	if cfg.Tagger.BaseURL != "" {
		tagger, terr := modelserving.NewTaggerClient(cfg.Tagger, logger)
		if terr != nil {
			app.Close()
			return nil, terr
		}
		base = append(base, extraction.NewStatisticalAdapter(tagger, cfg.Extraction.Confidence, logger))
	} else {
		logger.Warn("tagger.base_url not configured; statistical tier disabled")
	}

	var embedding extraction.Generator
	if cfg.Milvus.Addr != "" && cfg.Tagger.BaseURL != "" {
		app.Milvus, err = milvus.NewClient(ctx, cfg.Milvus, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
		if err = app.Milvus.EnsureCollection(ctx); err != nil {
			app.Close()
			return nil, err
		}
		embedder, eerr := modelserving.NewEmbedderClient(cfg.Tagger, logger)
		if eerr != nil {
			app.Close()
			return nil, eerr
		}
		searcher := milvus.NewReferenceSearcher(app.Milvus, embedder, logger)
		embedding = extraction.NewEmbeddingAdapter(searcher, cfg.Extraction.EmbeddingSimilarityMin, logger)
	} else {
		logger.Warn("milvus.addr not configured; embedding tier disabled")
	}

	var llm extraction.Generator
	if cfg.LLM.BaseURL != "" {
		provider, lerr := modelserving.NewLLMProvider(cfg.LLM, logger)
		if lerr != nil {
			app.Close()
			return nil, lerr
		}
		if opts.Metrics != nil {
			provider.WithMetrics(opts.Metrics)
		}
		llm = extraction.NewLLMAdapter(provider, cfg.LLM.RequestTimeout, cfg.Extraction.ConfidenceFloor, logger)
	} else {
		logger.Warn("llm.base_url not configured; fallback tier disabled")
	}

	var publisher pipeline.SummaryPublisher
	if opts.WithKafka && len(cfg.Kafka.Brokers) > 0 {
		app.Producer = kafka.NewProducer(cfg.Kafka, logger)
		if opts.Metrics != nil {
			app.Producer.WithMetrics(opts.Metrics)
		}
		publisher = app.Producer
	}

	var metrics pipeline.Metrics
	if opts.Metrics != nil {
		metrics = opts.Metrics
	}

	app.Driver = pipeline.NewDriver(pipeline.DriverOptions{
		Gateway:           app.Repo,
		Base:              base,
		Embedding:         embedding,
		LLM:               llm,
		Guard:             guard,
		Fuser:             fusion.NewEngine(cfg.Extraction.ContainmentTolerance, logger),
		Inferencer:        relationship.NewInferencer(store, logger),
		Classifier:        classify.New(store.ContentTypeRules(), logger),
		Checkpoints:       app.Checkpoints,
		Publisher:         publisher,
		Metrics:           metrics,
		HeuristicsVersion: store.Version(),
		ConfidenceFloor:   cfg.Extraction.ConfidenceFloor,
		MaxChunkWorkers:   cfg.Extraction.MaxChunkWorkers,
		Logger:            logger,
	})

	return app, nil
}

// Close releases resources in reverse construction order.  Safe on a
// partially constructed App.
func (a *App) Close() {
	if a.Producer != nil {
		_ = a.Producer.Close()
	}
	if a.Milvus != nil {
		_ = a.Milvus.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Postgres != nil {
		a.Postgres.Close()
	}
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
}
