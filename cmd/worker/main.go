package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/maraichr/pipescope/internal/config"
	"github.com/maraichr/pipescope/internal/graph"
	"github.com/maraichr/pipescope/internal/harness"
	"github.com/maraichr/pipescope/internal/inventory"
	"github.com/maraichr/pipescope/internal/job"
	"github.com/maraichr/pipescope/internal/queue"
	"github.com/maraichr/pipescope/internal/report"
	"github.com/maraichr/pipescope/internal/store"
	"github.com/maraichr/pipescope/internal/store/postgres"
	vk "github.com/maraichr/pipescope/internal/store/valkey"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	if err := cfg.Harness.Validate(); err != nil {
		logger.Error("invalid harness config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := postgres.NewPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	s := store.New(pool)
	if err := s.Migrate(ctx); err != nil {
		logger.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Valkey
	vkClient, err := vk.NewClient(ctx, cfg.Valkey)
	if err != nil {
		logger.Error("failed to connect to valkey", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer vkClient.Close()
	logger.Info("connected to valkey")

	client, err := harness.NewClient(cfg.Harness, logger)
	if err != nil {
		logger.Error("failed to create harness client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	opts := inventory.EngineOptions{
		Concurrency: cfg.Inventory.Concurrency,
		BuildTimes:  cfg.Inventory.BuildTimes,
	}
	if cfg.Inventory.Trace {
		opts.Tracer = inventory.LogTracer{Logger: logger}
	}

	exporter := report.NewExporter(cfg.Report, logger)
	exportDir := filepath.Join(cfg.Report.OutputDir, "runs")

	// Object storage (optional)
	var publishStage *job.PublishStage
	uploader, err := report.NewUploader(ctx, cfg.Report.Upload, cfg)
	if err != nil {
		logger.Warn("uploader init failed, reports stay local", slog.String("error", err.Error()))
	} else if uploader != nil {
		publishStage = job.NewPublishStage(report.NewPublisher(uploader, cfg.Report.Prefix, logger))
		logger.Info("report upload enabled", slog.String("target", cfg.Report.Upload))
	}

	// Neo4j (optional)
	var graphStage *job.GraphStage
	graphClient, err := graph.NewClient(cfg.Neo4j)
	if err != nil {
		logger.Warn("neo4j connection failed, graph sync disabled", slog.String("error", err.Error()))
	} else if err := graphClient.Verify(ctx); err != nil {
		logger.Warn("neo4j unreachable, graph sync disabled", slog.String("error", err.Error()))
		_ = graphClient.Close(ctx)
	} else {
		defer graphClient.Close(context.WithoutCancel(ctx))
		if err := graphClient.EnsureIndexes(ctx); err != nil {
			logger.Warn("neo4j ensure indexes failed", slog.String("error", err.Error()))
		}
		graphStage = job.NewGraphStage(graphClient, logger)
		logger.Info("connected to neo4j")
	}

	stages := job.Stages(
		job.NewInventoryStage(client, opts, logger),
		job.NewExportStage(exporter, exportDir),
		publishStage,
		graphStage,
	)
	pipeline := job.NewPipeline(s, stages, logger)

	hostname, _ := os.Hostname()
	consumer := queue.NewConsumer(vkClient, "worker-"+hostname, logger)
	if err := consumer.EnsureGroup(ctx); err != nil {
		logger.Error("failed to ensure consumer group", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("starting worker, consuming from stream", slog.String("stream", queue.StreamName))
	if err := consumer.Consume(ctx, pipeline.Run); err != nil && ctx.Err() == nil {
		logger.Error("consumer error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
