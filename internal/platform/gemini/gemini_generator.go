package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/quillan/formfill-api/internal/config"
	"github.com/quillan/formfill-api/internal/generation"
)

// Generator implements the generation.Generator interface using Google's
// Gemini API.
type Generator struct {
	logger  *slog.Logger
	client  *genai.Client
	prompts *generation.PromptBuilder
	model   string
	temp    float64
}

// NewGenerator creates a Gemini-backed generator from LLM configuration.
// Returns an error wrapping generation.ErrInvalidConfig if required settings
// are missing.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	prompts, err := generation.NewPromptBuilder(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger:  logger,
		client:  client,
		prompts: prompts,
		model:   cfg.ModelName,
		temp:    cfg.Temperature,
	}, nil
}

// Generate sends a single content-generation request and returns the trimmed
// answer text. Blank responses are reported as generation.ErrEmptyResponse.
func (g *Generator) Generate(ctx context.Context, question string, extra string) (string, error) {
	prompt, err := g.prompts.Build(question, extra)
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	cfg := &genai.GenerateContentConfig{}
	if g.temp > 0 {
		temp := float32(g.temp)
		cfg.Temperature = &temp
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		g.logger.ErrorContext(ctx, "gemini API call failed",
			"model", g.model,
			"error", err)
		return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrEmptyResponse)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", generation.ErrEmptyResponse
	}

	g.logger.DebugContext(ctx, "gemini API call successful",
		"model", g.model,
		"answer_length", len(answer))

	return answer, nil
}
