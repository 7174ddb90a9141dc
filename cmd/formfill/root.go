package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

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

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "formfill",
		Short:        "Generate answers for extracted form questions",
		Long:         "formfill runs the answer-generation pipeline from the command line: batch generation from a questions file, and maintenance of the persisted answer cache.",
		SilenceUsage: true,
	}

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newEvictCmd())

	return cmd
}

// pipeline bundles the wired components a subcommand needs.
type pipeline struct {
	config  *config.Config
	logger  *slog.Logger
	cache   *cache.AnswerCache
	exec    *executor.Executor
	monitor *monitor.PerformanceMonitor
	service *service.AnswerService
}

// buildPipeline wires the full dispatch pipeline from configuration, the
// same way the server does.
func buildPipeline(ctx context.Context) (*pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	var generator generation.Generator
	switch cfg.LLM.Provider {
	case "groq":
		generator, err = groq.NewGenerator(appLogger, cfg.LLM)
	case "gemini":
		generator, err = gemini.NewGenerator(ctx, appLogger, cfg.LLM)
	default:
		err = fmt.Errorf("%w: unknown provider %q", generation.ErrInvalidConfig, cfg.LLM.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	answerCache := cache.New(cfg.Cache.FilePath, cfg.Cache.TTL, appLogger)

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

	return &pipeline{
		config:  cfg,
		logger:  appLogger,
		cache:   answerCache,
		exec:    exec,
		monitor: perfMonitor,
		service: answerService,
	}, nil
}

func (p *pipeline) close() {
	p.exec.Shutdown()
}
