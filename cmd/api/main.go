package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/circuit-studio/engine/internal/api"
	"github.com/circuit-studio/engine/internal/api/handlers"
	"github.com/circuit-studio/engine/internal/catalog"
	"github.com/circuit-studio/engine/internal/repository"
	"github.com/circuit-studio/engine/internal/services"
	syncws "github.com/circuit-studio/engine/internal/sync"
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

	log.Info("Starting Circuit Studio Engine",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Repositories
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	runRepo := repository.NewRunRepository(db)

	// JWT secret from environment
	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		log.Warn("JWT_SECRET not set, using default (INSECURE for production)")
		jwtSecret = []byte("change-me-in-production-please")
	}

	// Task queue client for design runs
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer asynqClient.Close()

	catalogDB, err := catalog.Load()
	if err != nil {
		log.Fatal("Failed to load component catalog", zap.Error(err))
	}

	// Services
	authSvc := services.NewAuthService(userRepo, jwtSecret)
	projectSvc := services.NewProjectService(db, projectRepo, revisionRepo)
	circuitSvc := services.NewCircuitService(db, projectRepo, revisionRepo, runRepo, asynqClient)

	v := validator.New(validator.WithRequiredStructEnabled())

	router := api.NewRouter(api.Dependencies{
		HMACSecret:        jwtSecret,
		AuthHandler:       handlers.NewAuthHandler(authSvc, v),
		ProjectsHandler:   handlers.NewProjectsHandler(projectSvc, v),
		CircuitsHandler:   handlers.NewCircuitsHandler(projectSvc, circuitSvc),
		RunsHandler:       handlers.NewRunsHandler(circuitSvc, v),
		ValidationHandler: handlers.NewValidationHandler(circuitSvc),
		CatalogHandler:    handlers.NewCatalogHandler(catalogDB),
		SyncHub:           syncws.NewHub(),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
