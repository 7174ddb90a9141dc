package groq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"

	"github.com/quillan/formfill-api/internal/config"
	"github.com/quillan/formfill-api/internal/generation"
)

// defaultBaseURL is Groq's OpenAI-compatible endpoint.
const defaultBaseURL = "https://api.groq.com/openai/v1"

// Generator implements the generation.Generator interface using Groq's
// OpenAI-compatible chat-completion API.
type Generator struct {
	logger  *slog.Logger
	client  openai.Client
	prompts *generation.PromptBuilder
	model   string
	temp    float64
}

// NewGenerator creates a Groq-backed generator from LLM configuration.
// Returns an error wrapping generation.ErrInvalidConfig if required settings
// are missing.
func NewGenerator(logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
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

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(defaultBaseURL),
	)

	return &Generator{
		logger:  logger,
		client:  client,
		prompts: prompts,
		model:   cfg.ModelName,
		temp:    cfg.Temperature,
	}, nil
}

// Generate sends a single chat-completion request and returns the trimmed
// answer text. Blank responses are reported as generation.ErrEmptyResponse.
func (g *Generator) Generate(ctx context.Context, question string, extra string) (string, error) {
	prompt, err := g.prompts.Build(question, extra)
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if g.temp > 0 {
		params.Temperature = param.NewOpt(g.temp)
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		g.logger.ErrorContext(ctx, "groq API call failed",
			"model", g.model,
			"error", err)
		return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", generation.ErrEmptyResponse)
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", generation.ErrEmptyResponse
	}

	g.logger.DebugContext(ctx, "groq API call successful",
		"model", g.model,
		"answer_length", len(answer))

	return answer, nil
}
