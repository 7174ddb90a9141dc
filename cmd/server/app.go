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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quillan/formfill-api/internal/api"
	"github.com/quillan/formfill-api/internal/cache"
	"github.com/quillan/formfill-api/internal/config"
	"github.com/quillan/formfill-api/internal/consistency"
	"github.com/quillan/formfill-api/internal/evaluator"
	"github.com/quillan/formfill-api/internal/executor"
	"github.com/quillan/formfill-api/internal/generation"
	"github.com/quillan/formfill-api/internal/monitor"
	"github.com/quillan/formfill-api/internal/platform/gemini"
	"github.com/quillan/formfill-api/internal/platform/groq"
	"github.com/quillan/formfill-api/internal/platform/logger"
	"github.com/quillan/formfill-api/internal/service"
)

// application holds the server's wired dependencies.
type application struct {
	config  *config.Config
	logger  *slog.Logger
	cache   *cache.AnswerCache
	exec    *executor.Executor
	monitor *monitor.PerformanceMonitor
	service *service.AnswerService
}

// newApplication loads configuration and wires every component of the
// dispatch pipeline. Configuration errors are fatal; they surface here
// rather than at first request.
func newApplication(ctx context.Context) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"provider", cfg.LLM.Provider)

	generator, err := buildGenerator(ctx, appLogger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	answerCache := cache.New(cfg.Cache.FilePath, cfg.Cache.TTL, appLogger)
	appLogger.Info("answer cache loaded",
		"path", cfg.Cache.FilePath,
		"entries", answerCache.Size())

	exec := executor.New(executor.Config{
		MaxConcurrent: cfg.Executor.MaxConcurrent,
		RateLimit:     cfg.Executor.RateLimit,
		Window:        cfg.Executor.Window,
		TaskTimeout:   cfg.Executor.TaskTimeout,
	}, appLogger)

	perfMonitor := monitor.New()

	answerService, err := service.NewAnswerService(
		generator,
		answerCache,
		exec,
		consistency.New(cfg.Consistency.SimilarityThreshold, appLogger),
		evaluator.New(),
		perfMonitor,
		cfg.Generator.MaxRetries,
		cfg.Generator.RetryBaseDelay,
		appLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create answer service: %w", err)
	}

	return &application{
		config:  cfg,
		logger:  appLogger,
		cache:   answerCache,
		exec:    exec,
		monitor: perfMonitor,
		service: answerService,
	}, nil
}

// buildGenerator selects the remote provider from configuration.
func buildGenerator(ctx context.Context, appLogger *slog.Logger, cfg config.LLMConfig) (generation.Generator, error) {
	switch cfg.Provider {
	case "groq":
		return groq.NewGenerator(appLogger, cfg)
	case "gemini":
		return gemini.NewGenerator(ctx, appLogger, cfg)
	}
	return nil, fmt.Errorf("%w: unknown provider %q", generation.ErrInvalidConfig, cfg.Provider)
}

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	answerHandler := api.NewAnswerHandler(
		app.service,
		app.cache,
		app.monitor,
		app.config.Cache.MaxSize,
		app.logger,
	)

	r.Route("/api", func(r chi.Router) {
		r.Post("/answers", answerHandler.GenerateAnswers)
		r.Get("/stats", answerHandler.GetStats)
		r.Post("/cache/evict", answerHandler.EvictCache)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}

// startHTTPServer runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully. In-flight generator calls abandoned by the executor shutdown
// are discarded.
func (app *application) startHTTPServer(ctx context.Context, router http.Handler) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: router,
	}

	serverCtx, cancelServer := context.WithCancel(ctx)
	defer cancelServer()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		app.logger.Info("starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Error("server failed", "error", err)
			cancelServer()
		}
	}()

	select {
	case <-shutdownCh:
		app.logger.Info("shutdown signal received")
	case <-serverCtx.Done():
		app.logger.Info("server context canceled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.cleanup()

	app.logger.Info("server shutdown completed")
	return nil
}

// cleanup releases the dispatch pipeline's resources.
func (app *application) cleanup() {
	app.exec.Shutdown()
}
