// inventory runs one account inventory and writes the report files.
// Run from project root: go run ./cmd/inventory -out ./out
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/maraichr/pipescope/internal/config"
	"github.com/maraichr/pipescope/internal/harness"
	"github.com/maraichr/pipescope/internal/inventory"
	"github.com/maraichr/pipescope/internal/queue"
	"github.com/maraichr/pipescope/internal/report"
	"github.com/maraichr/pipescope/internal/store"
	"github.com/maraichr/pipescope/internal/store/postgres"
)

func main() {
	_ = godotenv.Load(".env") // ignore error if .env missing

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	out := flag.String("out", cfg.Report.OutputDir, "directory for CSV and workbook output")
	workbook := flag.String("workbook", cfg.Report.Workbook, "workbook file name; empty skips the workbook")
	upload := flag.String("upload", cfg.Report.Upload, "publish files to minio or s3")
	persist := flag.Bool("persist", false, "store the run in postgres")
	pipeline := flag.String("pipeline", cfg.Inventory.OnlyPipeline, "analyze only this pipeline identifier")
	concurrency := flag.Int("concurrency", cfg.Inventory.Concurrency, "pipelines analyzed at once")
	buildTimes := flag.Bool("build-times", cfg.Inventory.BuildTimes, "collect CI build times from recent executions")
	trace := flag.Bool("trace", cfg.Inventory.Trace, "log every stage and template visited")
	flag.Parse()

	if *trace {
		cfg.LogLevel = "debug"
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

	client, err := harness.NewClient(cfg.Harness, logger)
	if err != nil {
		logger.Error("failed to create harness client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	opts := inventory.EngineOptions{
		Concurrency:  *concurrency,
		OnlyPipeline: *pipeline,
		BuildTimes:   *buildTimes,
	}
	if *trace {
		opts.Tracer = inventory.LogTracer{Logger: logger, Pipeline: *pipeline}
	}

	var (
		s     *store.Store
		runID = uuid.New()
	)
	if *persist {
		pool, err := postgres.NewPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			logger.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()
		s = store.New(pool)
		if err := s.Migrate(ctx); err != nil {
			logger.Error("failed to migrate database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		run, err := s.CreateRun(ctx, postgres.CreateRunParams{Trigger: queue.TriggerCLI, OnlyPipeline: *pipeline})
		if err != nil {
			logger.Error("failed to create run", slog.String("error", err.Error()))
			os.Exit(1)
		}
		runID = run.ID
		if err := s.StartRun(ctx, runID); err != nil {
			logger.Error("failed to start run", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	rep, err := inventory.NewEngine(client, opts, logger).Run(ctx)
	if err != nil {
		if rep == nil || !errors.Is(err, context.Canceled) {
			logger.Error("inventory failed", slog.String("error", err.Error()))
			if s != nil {
				_ = s.FailRun(context.WithoutCancel(ctx), runID, err.Error())
			}
			os.Exit(1)
		}
		logger.Warn("inventory interrupted, writing partial report", slog.String("error", err.Error()))
	}

	exporter := report.NewExporter(config.ReportConfig{OutputDir: *out, Workbook: *workbook}, logger)
	files, err := exporter.Export(rep)
	if err != nil {
		logger.Error("failed to export report", slog.String("error", err.Error()))
		os.Exit(1)
	}
	artifacts := files

	// Uploads and persistence run even after an interrupt.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Minute)
	defer cancel()

	uploader, err := report.NewUploader(finishCtx, *upload, cfg)
	if err != nil {
		logger.Error("failed to init uploader", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if uploader != nil {
		objects, err := report.NewPublisher(uploader, cfg.Report.Prefix, logger).Publish(finishCtx, runID.String(), files)
		if err != nil {
			logger.Error("failed to publish report", slog.String("error", err.Error()))
			os.Exit(1)
		}
		artifacts = objects
	}

	if s != nil {
		if err := s.SaveReport(finishCtx, runID, rep, artifacts); err != nil {
			logger.Error("failed to save report", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	a := rep.Account
	fmt.Printf("run %s: %d orgs, %d projects, %d pipelines (%d with CI, %d failed), %d template fetches\n",
		runID, a.Organizations, a.Projects, a.Pipelines, a.CIPipelines, a.FailedPipelines, rep.TemplateFetch)
	for _, f := range artifacts {
		fmt.Println(f)
	}
}
