package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quillan/formfill-api/internal/api/shared"
	"github.com/quillan/formfill-api/internal/domain"
	"github.com/quillan/formfill-api/internal/monitor"
)

// AnswerGenerator is the dispatch-core dependency of the handler.
type AnswerGenerator interface {
	BatchGenerate(ctx context.Context, questions []domain.Question, extra string) (string, []domain.AnswerResult)
}

// CacheMaintainer exposes the answer cache's maintenance surface.
type CacheMaintainer interface {
	Evict(maxSize int) (int, error)
	Size() int
}

// StatsSource provides the monitor snapshot behind GET /api/stats.
type StatsSource interface {
	Statistics() monitor.Statistics
}

// AnswerHandler handles answer-generation HTTP requests.
type AnswerHandler struct {
	service   AnswerGenerator
	cache     CacheMaintainer
	stats     StatsSource
	validator *validator.Validate
	logger    *slog.Logger

	// defaultMaxSize applies when an evict request carries no max_size.
	defaultMaxSize int
}

// NewAnswerHandler creates a new AnswerHandler.
func NewAnswerHandler(
	service AnswerGenerator,
	cache CacheMaintainer,
	stats StatsSource,
	defaultMaxSize int,
	logger *slog.Logger,
) *AnswerHandler {
	return &AnswerHandler{
		service:        service,
		cache:          cache,
		stats:          stats,
		validator:      validator.New(),
		logger:         logger,
		defaultMaxSize: defaultMaxSize,
	}
}

// GenerateAnswers handles POST /api/answers requests. The response always
// carries one answer slot per requested question; unanswerable questions
// surface as empty answers, never as a failed request.
func (h *AnswerHandler) GenerateAnswers(w http.ResponseWriter, r *http.Request) {
	var req GenerateAnswersRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	questions := make([]domain.Question, len(req.Questions))
	for i, p := range req.Questions {
		questions[i] = p.toQuestion()
	}

	batchID, results := h.service.BatchGenerate(r.Context(), questions, req.Context)

	answers := make([]AnswerPayload, len(results))
	for i, result := range results {
		answers[i] = AnswerPayload{Answer: result.Answer, FromCache: result.FromCache}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, GenerateAnswersResponse{
		BatchID: batchID,
		Answers: answers,
	})
}

// GetStats handles GET /api/stats requests.
func (h *AnswerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := h.stats.Statistics()

	hits := 0
	for _, access := range stats.CacheAccesses {
		if access.Hit {
			hits++
		}
	}
	misses := len(stats.CacheAccesses) - hits

	hitRate := 0.0
	if len(stats.CacheAccesses) > 0 {
		hitRate = float64(hits) / float64(len(stats.CacheAccesses))
	}

	avgLatency := 0.0
	if len(stats.APICalls) > 0 {
		var total time.Duration
		for _, call := range stats.APICalls {
			total += call.Elapsed
		}
		avgLatency = float64(total.Milliseconds()) / float64(len(stats.APICalls))
	}

	avgQuality := 0.0
	if len(stats.Quality) > 0 {
		var total float64
		for _, q := range stats.Quality {
			total += q.Score
		}
		avgQuality = total / float64(len(stats.Quality))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, StatsResponse{
		TotalCalls:       stats.TotalCalls,
		TotalErrors:      stats.TotalErrors,
		ErrorRate:        stats.ErrorRate,
		Fallbacks:        stats.Fallbacks,
		CacheHits:        hits,
		CacheMisses:      misses,
		CacheHitRate:     hitRate,
		AverageLatencyMS: avgLatency,
		AverageQuality:   avgQuality,
	})
}

// EvictCache handles POST /api/cache/evict requests. An empty body or a body
// without max_size evicts down to the server's configured cache size.
func (h *AnswerHandler) EvictCache(w http.ResponseWriter, r *http.Request) {
	req := EvictCacheRequest{}
	if r.ContentLength != 0 {
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
			return
		}
		if err := h.validator.Struct(req); err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
	}

	maxSize := h.defaultMaxSize
	if req.MaxSize != nil {
		maxSize = *req.MaxSize
	}

	remaining, err := h.cache.Evict(maxSize)
	if err != nil {
		h.logger.Error("cache eviction failed to persist", "error", err)
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Failed to persist evicted cache")
		return
	}

	h.logger.Info("cache evicted", "max_size", maxSize, "remaining", remaining)
	shared.RespondWithJSON(w, r, http.StatusOK, EvictCacheResponse{Remaining: remaining})
}
