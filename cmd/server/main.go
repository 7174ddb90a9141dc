// Package main implements the entry point for the formfill API server,
// which turns extracted form questions into answers through a cached,
// rate-limited LLM dispatch pipeline.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine; real deployments use environment
	// variables directly.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded environment from .env file")
	}

	app, err := newApplication(context.Background())
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.startHTTPServer(context.Background(), app.setupRouter()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
