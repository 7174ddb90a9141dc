package api

import (
	"github.com/quillan/formfill-api/internal/domain"
)

// QuestionPayload is one extracted form question in an answers request.
type QuestionPayload struct {
	Type     string              `json:"question_type" validate:"required,oneof=text radio checkbox"`
	Text     string              `json:"text"          validate:"required"`
	Options  []string            `json:"options,omitempty"`
	Position *domain.BoundingBox `json:"position,omitempty"`
}

// GenerateAnswersRequest represents the request body for answer generation.
type GenerateAnswersRequest struct {
	Questions []QuestionPayload `json:"questions" validate:"required,min=1,dive"`
	Context   string            `json:"context,omitempty"`
}

// AnswerPayload is one per-question outcome. An empty answer marks a
// question that could not be answered.
type AnswerPayload struct {
	Answer    string `json:"answer"`
	FromCache bool   `json:"from_cache"`
}

// GenerateAnswersResponse represents the response body for answer
// generation. Answers align one-to-one with the request's questions.
type GenerateAnswersResponse struct {
	BatchID string          `json:"batch_id"`
	Answers []AnswerPayload `json:"answers"`
}

// StatsResponse summarizes the monitor's snapshot for reporting clients.
type StatsResponse struct {
	TotalCalls       int     `json:"total_calls"`
	TotalErrors      int     `json:"total_errors"`
	ErrorRate        float64 `json:"error_rate"`
	Fallbacks        int     `json:"fallbacks"`
	CacheHits        int     `json:"cache_hits"`
	CacheMisses      int     `json:"cache_misses"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	AverageLatencyMS float64 `json:"average_latency_ms"`
	AverageQuality   float64 `json:"average_quality"`
}

// EvictCacheRequest represents the request body for cache eviction. A nil
// MaxSize falls back to the server's configured cache size.
type EvictCacheRequest struct {
	MaxSize *int `json:"max_size,omitempty" validate:"omitempty,gt=0"`
}

// EvictCacheResponse reports the cache size after eviction.
type EvictCacheResponse struct {
	Remaining int `json:"remaining"`
}

// toQuestion converts a payload to a domain question. Validation happens in
// the service per question.
func (p QuestionPayload) toQuestion() domain.Question {
	q := domain.Question{
		Type:    domain.QuestionType(p.Type),
		Text:    p.Text,
		Options: p.Options,
	}
	if p.Position != nil {
		q.Position = *p.Position
	}
	return q
}
