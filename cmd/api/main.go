package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/maraichr/pipescope/internal/api"
	"github.com/maraichr/pipescope/internal/config"
	"github.com/maraichr/pipescope/internal/graph"
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

	// Initialize database pool
	ctx := context.Background()
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

	deps := api.RouterDeps{DB: pool, Store: s}

	// Neo4j (optional, enables template ranking)
	graphClient, err := graph.NewClient(cfg.Neo4j)
	if err != nil {
		logger.Warn("neo4j connection failed, template ranking disabled", slog.String("error", err.Error()))
	} else if err := graphClient.Verify(ctx); err != nil {
		logger.Warn("neo4j unreachable, template ranking disabled", slog.String("error", err.Error()))
		_ = graphClient.Close(ctx)
	} else {
		deps.Graph = graphClient
		defer graphClient.Close(ctx)
		logger.Info("connected to neo4j")
	}

	// Valkey (optional, enables run requests)
	vkClient, err := vk.NewClient(ctx, cfg.Valkey)
	if err != nil {
		logger.Warn("valkey connection failed, run requests disabled", slog.String("error", err.Error()))
	} else {
		deps.Producer = queue.NewProducer(vkClient)
		defer vkClient.Close()
		logger.Info("connected to valkey")
	}

	router := api.NewRouter(logger, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting API server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
