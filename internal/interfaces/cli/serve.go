package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bpointel/docintel/internal/infrastructure/database/postgres"
	"github.com/bpointel/docintel/internal/infrastructure/database/postgres/repositories"
	"github.com/bpointel/docintel/internal/infrastructure/database/redis"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/prometheus"
	ihttp "github.com/bpointel/docintel/internal/interfaces/http"
	"github.com/bpointel/docintel/internal/interfaces/http/handlers"
	"github.com/bpointel/docintel/internal/interfaces/http/middleware"
)

// newServeCmd builds the review API server command.  It serves the read and
// correction endpoints over the persisted extraction results; the pipeline
// itself runs in the worker, not here.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the review API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cliCtx)
		},
	}
}

func runServe(ctx context.Context, cliCtx *CLIContext) error {
	cfg := cliCtx.Config
	logger := cliCtx.Logger

	conn, err := postgres.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	repo := repositories.NewDocumentRepository(conn.Pool(), logger)

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "docintel",
		Subsystem:            "api",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return err
	}
	metrics := prometheus.NewPipelineMetrics(collector)

	// The postgres probe doubles as the pool gauge sampler: every readiness
	// check refreshes db_pool_* with current utilisation.
	pgProbe := func(ctx context.Context) error {
		stat := conn.Stat()
		metrics.SetPoolStats("postgres", stat.TotalConns(), stat.AcquiredConns())
		return conn.HealthCheck(ctx)
	}

	var cache redis.Cache
	checkers := []handlers.HealthChecker{
		handlers.CheckerFunc{ComponentName: "postgres", Probe: pgProbe},
	}
	rdb, err := redis.NewClient(cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable; review responses will not be cached", logging.Err(err))
	} else {
		defer rdb.Close()
		cache = redis.NewCache(rdb, logger, metrics)
		checkers = append(checkers, handlers.CheckerFunc{ComponentName: "redis", Probe: rdb.Ping})
	}

	rlCfg := middleware.DefaultRateLimitConfig()
	limiter := middleware.NewTokenBucketLimiter(rlCfg.RequestsPerSecond, rlCfg.BurstSize, 5*time.Minute)
	defer limiter.Stop()

	corsCfg := middleware.DefaultCORSConfig()
	router := ihttp.NewRouter(ihttp.RouterConfig{
		ReviewHandler:    handlers.NewReviewHandler(repo, cache, logger),
		HealthHandler:    handlers.NewHealthHandler(Version, checkers...).WithMetrics(metrics),
		CORS:             &corsCfg,
		RateLimit:        limiter,
		RateLimitConfig:  rlCfg,
		Logger:           logger,
		MetricsCollector: collector,
		Metrics:          metrics,
		Mode:             ihttp.ModeFromConfig(cfg.Server),
	})

	srv := ihttp.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
		logger.Info("shutdown signal received")
		return srv.Stop(context.Background())
	}
}
