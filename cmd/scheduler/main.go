package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/maraichr/pipescope/internal/config"
	"github.com/maraichr/pipescope/internal/queue"
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

	if cfg.Scheduler.Interval <= 0 {
		logger.Error("SCHEDULER_INTERVAL_MINS must be positive")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	s := store.New(pool)
	if err := s.Migrate(ctx); err != nil {
		logger.Error("failed to migrate database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	vkClient, err := vk.NewClient(ctx, cfg.Valkey)
	if err != nil {
		logger.Error("failed to connect to valkey", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer vkClient.Close()

	producer := queue.NewProducer(vkClient)

	logger.Info("starting scheduler",
		slog.Duration("interval", cfg.Scheduler.Interval),
		slog.Bool("run_on_start", cfg.Scheduler.RunOnStart))

	if cfg.Scheduler.RunOnStart {
		schedule(ctx, s, producer, cfg.Inventory.OnlyPipeline, logger)
	}

	ticker := time.NewTicker(cfg.Scheduler.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			schedule(ctx, s, producer, cfg.Inventory.OnlyPipeline, logger)
		}
	}
}

// schedule records a queued run and hands it to the workers.
func schedule(ctx context.Context, s *store.Store, producer *queue.Producer, onlyPipeline string, logger *slog.Logger) {
	run, err := s.CreateRun(ctx, postgres.CreateRunParams{
		Trigger:      queue.TriggerSchedule,
		OnlyPipeline: onlyPipeline,
	})
	if err != nil {
		logger.Error("failed to create scheduled run", slog.String("error", err.Error()))
		return
	}

	msgID, err := producer.Enqueue(ctx, queue.RunMessage{
		RunID:        run.ID,
		Trigger:      queue.TriggerSchedule,
		OnlyPipeline: onlyPipeline,
	})
	if err != nil {
		logger.Error("failed to enqueue scheduled run",
			slog.String("run_id", run.ID.String()),
			slog.String("error", err.Error()))
		_ = s.FailRun(context.WithoutCancel(ctx), run.ID, "enqueue: "+err.Error())
		return
	}
	logger.Info("scheduled run enqueued",
		slog.String("run_id", run.ID.String()),
		slog.String("msg_id", msgID))
}
