// Command worker consumes the document ingest topic and feeds each message
// through the extraction pipeline.  Failed documents are committed and
// announced on the failed-document topic; reprocessing is a resubmit, which
// is harmless because all persistence is idempotent.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/bpointel/docintel/internal/application"
	"github.com/bpointel/docintel/internal/config"
	"github.com/bpointel/docintel/internal/infrastructure/messaging/kafka"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/prometheus"
	"github.com/bpointel/docintel/internal/pipeline"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	var cfg *config.Config
	var err error
	if _, statErr := os.Stat(configPath); statErr == nil {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		Output:           cfg.Log.Output,
		EnableCaller:     cfg.Log.EnableCaller,
		EnableStacktrace: cfg.Log.EnableStacktrace,
	})
	if err != nil {
		return err
	}
	logger = logger.Named("worker")

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "docintel",
		Subsystem:            "worker",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return err
	}
	metrics := prometheus.NewPipelineMetrics(collector)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := application.New(ctx, cfg, logger, application.Options{
		WithKafka: true,
		Metrics:   metrics,
	})
	if err != nil {
		return err
	}
	defer app.Close()

	handler := func(ctx context.Context, workflowID string, input pipeline.DocumentInput) error {
		runID := uuid.New().String()
		summary := pipeline.NewBatchSummary(workflowID, runID, app.Heuristics.Version())
		if err := app.Driver.ProcessDocument(ctx, input, summary); err != nil {
			if app.Producer != nil {
				_ = app.Producer.PublishDocumentFailed(ctx, kafka.DocumentFailedPayload{
					WorkflowID: workflowID,
					RunID:      runID,
					DocumentID: input.ID,
					Reason:     err.Error(),
					FailedAt:   time.Now().UTC(),
				})
			}
			return err
		}
		return nil
	}

	consumer := kafka.NewConsumer(cfg.Kafka, handler, logger)
	defer consumer.Close()

	obsSrv := startObservabilityServer(cfg, app, collector, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obsSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("worker consuming",
		logging.String("topic", kafka.TopicDocumentIngest),
		logging.String("group", cfg.Kafka.GroupID),
		logging.String("heuristics_version", app.Heuristics.Version()),
	)

	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("worker stopped")
	return nil
}

// startObservabilityServer exposes /metrics and the health probes on the
// metrics port; the pipeline itself has no HTTP surface.
func startObservabilityServer(cfg *config.Config, app *application.App, collector prometheus.MetricsCollector, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, collector.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := app.Postgres.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, "postgres unavailable")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ready")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("observability server failed", logging.Err(err))
		}
	}()
	return srv
}
