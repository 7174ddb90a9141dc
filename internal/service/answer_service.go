package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quillan/formfill-api/internal/cache"
	"github.com/quillan/formfill-api/internal/domain"
	"github.com/quillan/formfill-api/internal/evaluator"
	"github.com/quillan/formfill-api/internal/executor"
	"github.com/quillan/formfill-api/internal/generation"
)

// AnswerStore is the caching collaborator of the dispatch core.
type AnswerStore interface {
	Get(key string) (cache.Entry, bool)
	Put(key string, answer string) error
}

// Dispatcher admits outbound calls under the concurrency and rate limits.
type Dispatcher interface {
	Submit(ctx context.Context, task executor.Task) (string, error)
	SubmitBatch(ctx context.Context, tasks []executor.Task) []executor.Result
}

// ConsistencyValidator cross-checks accepted answers against prior responses
// to the same question.
type ConsistencyValidator interface {
	ValidateAndStore(qtype domain.QuestionType, question, answer string) bool
}

// QualityEvaluator scores accepted answers.
type QualityEvaluator interface {
	Evaluate(qtype domain.QuestionType, answer, question string, options []string) evaluator.Result
}

// Recorder accumulates dispatch metrics. It is always an injected
// collaborator, never a global.
type Recorder interface {
	RecordAPICall(elapsed time.Duration, success bool)
	RecordCacheAccess(hit bool)
	RecordError(msg string)
	RecordQuality(score float64)
	RecordFallback()
}

const (
	defaultMaxRetries     = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	maxRetryDelay         = 10 * time.Second
)

// AnswerService is the dispatch core: it turns validated questions into
// answers by consulting the cache, calling the remote generator through the
// rate-limited executor, constraining choice answers to their options, and
// committing accepted answers to the cache, the consistency history, and the
// monitor.
type AnswerService struct {
	generator   generation.Generator
	store       AnswerStore
	dispatcher  Dispatcher
	consistency ConsistencyValidator
	quality     QualityEvaluator
	monitor     Recorder
	logger      *slog.Logger

	maxRetries     int
	retryBaseDelay time.Duration
}

// NewAnswerService creates an AnswerService with the given collaborators.
// All collaborators are required. A negative maxRetries or non-positive
// retryBaseDelay falls back to the default.
func NewAnswerService(
	generator generation.Generator,
	store AnswerStore,
	dispatcher Dispatcher,
	consistency ConsistencyValidator,
	quality QualityEvaluator,
	monitor Recorder,
	maxRetries int,
	retryBaseDelay time.Duration,
	logger *slog.Logger,
) (*AnswerService, error) {
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if store == nil {
		return nil, errors.New("answer store cannot be nil")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher cannot be nil")
	}
	if consistency == nil {
		return nil, errors.New("consistency validator cannot be nil")
	}
	if quality == nil {
		return nil, errors.New("quality evaluator cannot be nil")
	}
	if monitor == nil {
		return nil, errors.New("monitor cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	if retryBaseDelay <= 0 {
		retryBaseDelay = defaultRetryBaseDelay
	}

	return &AnswerService{
		generator:      generator,
		store:          store,
		dispatcher:     dispatcher,
		consistency:    consistency,
		quality:        quality,
		monitor:        monitor,
		logger:         logger,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}, nil
}

// GenerateAnswer produces an answer for one question. The flow is: validate,
// consult the cache, then call the generator through the executor with up to
// 1+maxRetries attempts and exponential backoff between them. Choice answers
// are constrained to the question's options before being committed; a
// constraint violation is terminal and never retried.
func (s *AnswerService) GenerateAnswer(ctx context.Context, q domain.Question, extra string) (domain.AnswerResult, error) {
	if err := q.Validate(); err != nil {
		s.monitor.RecordError(err.Error())
		return domain.AnswerResult{}, fmt.Errorf("%w: %v", ErrInvalidQuestion, err)
	}

	key := cache.KeyFor(q)
	if entry, ok := s.store.Get(key); ok {
		s.monitor.RecordCacheAccess(true)
		return domain.AnswerResult{Answer: entry.Answer, FromCache: true}, nil
	}
	s.monitor.RecordCacheAccess(false)

	attempts := 1 + s.maxRetries
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := s.backoff(ctx, attempt-1); err != nil {
				return domain.AnswerResult{}, err
			}
		}

		raw, err := s.dispatcher.Submit(ctx, func(callCtx context.Context) (string, error) {
			return s.callGenerator(callCtx, q, extra)
		})
		if err != nil {
			lastErr = err
			s.monitor.RecordError(err.Error())
			if ctx.Err() != nil || errors.Is(err, executor.ErrClosed) {
				return domain.AnswerResult{}, err
			}
			s.logger.Warn("generation attempt failed",
				"question", q.Text,
				"attempt", attempt,
				"max_attempts", attempts,
				"error", err)
			continue
		}

		answer, err := s.constrain(q, raw)
		if err != nil {
			s.monitor.RecordError(err.Error())
			return domain.AnswerResult{}, err
		}

		s.commit(q, key, answer)
		return domain.AnswerResult{Answer: answer}, nil
	}

	return domain.AnswerResult{}, fmt.Errorf("%w after %d attempts: %v", ErrAttemptsExhausted, attempts, lastErr)
}

// BatchGenerate produces one result per question, aligned to input order,
// and returns the batch ID its log lines are tagged with. A failed or
// panicking question yields an empty-answer slot; it never aborts its
// siblings. Outbound concurrency across the batch is bounded by the
// executor, so the fan-out here stays unbounded.
func (s *AnswerService) BatchGenerate(ctx context.Context, questions []domain.Question, extra string) (string, []domain.AnswerResult) {
	batchID := uuid.New().String()
	logger := s.logger.With("batch_id", batchID)
	logger.Info("batch generation started", "count", len(questions))

	results := make([]domain.AnswerResult, len(questions))

	var wg sync.WaitGroup
	for i, q := range questions {
		wg.Add(1)
		go func(i int, q domain.Question) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic while generating answer",
						"question", q.Text,
						"panic", r)
					s.monitor.RecordError(fmt.Sprintf("panic generating answer: %v", r))
					results[i] = domain.AnswerResult{}
				}
			}()

			result, err := s.GenerateAnswer(ctx, q, extra)
			if err != nil {
				logger.Warn("question failed, returning empty answer",
					"question", q.Text,
					"error", err)
				results[i] = domain.AnswerResult{}
				return
			}
			results[i] = result
		}(i, q)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	logger.Info("batch generation finished", "count", len(questions), "failed", failed)

	return batchID, results
}

// WarmUp pre-generates answers for the given questions, skipping any that
// are invalid or already cached, and returns the number of answers added.
// Generation is fanned out through the executor's batch path so warm-up
// traffic honors the same admission limits as live traffic.
func (s *AnswerService) WarmUp(ctx context.Context, questions []domain.Question) int {
	type pending struct {
		question domain.Question
		key      string
	}

	var todo []pending
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			s.logger.Warn("skipping invalid warm-up question",
				"question", q.Text,
				"error", err)
			continue
		}
		key := cache.KeyFor(q)
		if _, ok := s.store.Get(key); ok {
			continue
		}
		todo = append(todo, pending{question: q, key: key})
	}
	if len(todo) == 0 {
		return 0
	}

	tasks := make([]executor.Task, len(todo))
	for i, p := range todo {
		q := p.question
		tasks[i] = func(callCtx context.Context) (string, error) {
			raw, err := s.callGenerator(callCtx, q, "")
			if err != nil {
				return "", err
			}
			return s.constrain(q, raw)
		}
	}

	warmed := 0
	for i, result := range s.dispatcher.SubmitBatch(ctx, tasks) {
		if result.Err != nil {
			s.logger.Warn("warm-up generation failed",
				"question", todo[i].question.Text,
				"error", result.Err)
			continue
		}
		s.commit(todo[i].question, todo[i].key, result.Value)
		warmed++
	}

	s.logger.Info("cache warm-up complete",
		"requested", len(questions),
		"warmed", warmed)
	return warmed
}

// callGenerator performs one timed remote call and records it. A blank
// response counts as a failed call.
func (s *AnswerService) callGenerator(ctx context.Context, q domain.Question, extra string) (string, error) {
	start := time.Now()
	answer, err := s.generator.Generate(ctx, q.Text, extra)
	elapsed := time.Since(start)

	answer = strings.TrimSpace(answer)
	s.monitor.RecordAPICall(elapsed, err == nil && answer != "")

	if err != nil {
		return "", err
	}
	if answer == "" {
		return "", generation.ErrEmptyResponse
	}
	return answer, nil
}

// constrain reconciles a generated answer with the question's options. Radio
// answers outside the option set are substituted with the first option and
// flagged as a fallback. Checkbox answers keep only tokens that match an
// option; losing every token is a terminal constraint violation.
func (s *AnswerService) constrain(q domain.Question, answer string) (string, error) {
	switch q.Type {
	case domain.QuestionTypeRadio:
		if q.HasOption(answer) {
			return answer, nil
		}
		fallback := q.Options[0]
		s.monitor.RecordFallback()
		s.logger.Warn("generated answer outside options, substituting first option",
			"question", q.Text,
			"generated", answer,
			"substituted", fallback)
		return fallback, nil

	case domain.QuestionTypeCheckbox:
		valid := make([]string, 0, len(q.Options))
		for _, token := range splitSelections(answer) {
			if q.HasOption(token) && !slices.Contains(valid, token) {
				valid = append(valid, token)
			}
		}
		if len(valid) == 0 {
			return "", fmt.Errorf("%w: no generated selection matches the options", ErrConstraintViolation)
		}
		return strings.Join(valid, ","), nil
	}

	return answer, nil
}

// commit stores an accepted answer and records its quality and consistency.
// Persistence failures are logged but never fail the question; the answer is
// returned regardless of whether the consistency check accepts it.
func (s *AnswerService) commit(q domain.Question, key, answer string) {
	if err := s.store.Put(key, answer); err != nil {
		s.logger.Error("failed to persist cached answer",
			"key", key,
			"error", err)
	}

	result := s.quality.Evaluate(q.Type, answer, q.Text, q.Options)
	s.monitor.RecordQuality(result.Score)

	if !s.consistency.ValidateAndStore(q.Type, q.Text, answer) {
		s.monitor.RecordError("inconsistent answer for question: " + q.Text)
		s.logger.Warn("answer inconsistent with prior responses",
			"question", q.Text,
			"quality_score", result.Score)
	}
}

// backoff sleeps for retryBaseDelay doubled per completed retry, capped at
// maxRetryDelay, abortable through the context.
func (s *AnswerService) backoff(ctx context.Context, retry int) error {
	delay := s.retryBaseDelay << (retry - 1)
	if delay > maxRetryDelay || delay <= 0 {
		delay = maxRetryDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// splitSelections splits a multi-select answer on common list separators,
// both ASCII and fullwidth, dropping blank tokens.
func splitSelections(answer string) []string {
	fields := strings.FieldsFunc(answer, func(r rune) bool {
		switch r {
		case ',', '，', '、', ';', '；', '\n':
			return true
		}
		return false
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
