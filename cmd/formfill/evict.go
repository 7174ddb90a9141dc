package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quillan/formfill-api/internal/cache"
	"github.com/quillan/formfill-api/internal/config"
	"github.com/quillan/formfill-api/internal/platform/logger"
)

func newEvictCmd() *cobra.Command {
	var maxSize int

	cmd := &cobra.Command{
		Use:   "evict",
		Short: "Remove expired and excess entries from the answer cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			appLogger, err := logger.Setup(cfg.Server)
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}

			if maxSize <= 0 {
				maxSize = cfg.Cache.MaxSize
			}

			answerCache := cache.New(cfg.Cache.FilePath, cfg.Cache.TTL, appLogger)
			before := answerCache.Size()

			remaining, err := answerCache.Evict(maxSize)
			if err != nil {
				return fmt.Errorf("eviction failed to persist: %w", err)
			}

			cmd.Printf("Evicted %d entries, %d remaining (max size %d)\n",
				before-remaining, remaining, maxSize)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxSize, "max-size", 0, "maximum entries to keep (defaults to the configured cache size)")

	return cmd
}
