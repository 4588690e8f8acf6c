package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/circuit-studio/engine/internal/catalog"
	"github.com/circuit-studio/engine/internal/pipeline"
	"github.com/circuit-studio/engine/internal/queue/tasks"
	"github.com/circuit-studio/engine/internal/repository"
	"github.com/circuit-studio/engine/internal/services"
	"github.com/circuit-studio/engine/pkg/config"
	"github.com/circuit-studio/engine/pkg/database"
	"github.com/circuit-studio/engine/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		},
		asynq.Config{
			Concurrency: cfg.AsynqConcurrency,
		},
	)

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.L().Fatal("failed to open database", zap.Error(err))
	}

	projectRepo := repository.NewProjectRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	runRepo := repository.NewRunRepository(db)

	catalogDB, err := catalog.Load()
	if err != nil {
		logger.L().Fatal("failed to load component catalog", zap.Error(err))
	}

	// worker doesn't enqueue, so no asynq client
	circuitSvc := services.NewCircuitService(db, projectRepo, revisionRepo, runRepo, nil)
	runner := pipeline.NewRunner(logger.L(), catalogDB)

	handler := tasks.NewGenerateTaskHandler(runner, circuitSvc, runRepo)
	mux := asynq.NewServeMux()
	mux.HandleFunc(services.TaskTypeGenerate, handler.HandleGenerate)

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.L().Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.L().Error("worker stopped with error", zap.Error(err))
	}

	// Allow in-flight tasks to finish gracefully
	srv.Shutdown()
}
