package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillan/formfill-api/internal/cache"
	"github.com/quillan/formfill-api/internal/consistency"
	"github.com/quillan/formfill-api/internal/domain"
	"github.com/quillan/formfill-api/internal/evaluator"
	"github.com/quillan/formfill-api/internal/executor"
	"github.com/quillan/formfill-api/internal/generation"
	"github.com/quillan/formfill-api/internal/monitor"
)

type testHarness struct {
	service *AnswerService
	cache   *cache.AnswerCache
	monitor *monitor.PerformanceMonitor
}

func newTestHarness(t *testing.T, generator generation.Generator, maxRetries int) *testHarness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	answerCache := cache.New(filepath.Join(t.TempDir(), "cache.json"), time.Hour, logger)
	exec := executor.New(executor.Config{
		MaxConcurrent: 4,
		RateLimit:     100,
		Window:        time.Second,
		TaskTimeout:   time.Second,
	}, logger)
	t.Cleanup(exec.Shutdown)

	perfMonitor := monitor.New()

	svc, err := NewAnswerService(
		generator,
		answerCache,
		exec,
		consistency.New(0.6, logger),
		evaluator.New(),
		perfMonitor,
		maxRetries,
		time.Millisecond,
		logger,
	)
	require.NoError(t, err)

	return &testHarness{service: svc, cache: answerCache, monitor: perfMonitor}
}

func staticGenerator(answer string) generation.Generator {
	return generation.GeneratorFunc(func(ctx context.Context, question, extra string) (string, error) {
		return answer, nil
	})
}

func TestNewAnswerServiceRequiresCollaborators(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewAnswerService(nil, nil, nil, nil, nil, nil, 0, 0, logger)
	assert.Error(t, err)
}

func TestGenerateAnswerCachesResult(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	generator := generation.GeneratorFunc(func(ctx context.Context, question, extra string) (string, error) {
		calls.Add(1)
		return "1-3年", nil
	})
	h := newTestHarness(t, generator, 0)

	q := domain.Question{
		Type:    domain.QuestionTypeRadio,
		Text:    "您的工作年限是？",
		Options: []string{"1-3年", "3-5年", "5年以上"},
	}

	first, err := h.service.GenerateAnswer(context.Background(), q, "")
	require.NoError(t, err)
	assert.Equal(t, "1-3年", first.Answer)
	assert.False(t, first.FromCache)

	second, err := h.service.GenerateAnswer(context.Background(), q, "")
	require.NoError(t, err)
	assert.Equal(t, "1-3年", second.Answer)
	assert.True(t, second.FromCache)

	assert.Equal(t, int32(1), calls.Load(), "cache hit must not reach the generator")

	stats := h.monitor.Statistics()
	assert.Len(t, stats.CacheAccesses, 2)
	assert.False(t, stats.CacheAccesses[0].Hit)
	assert.True(t, stats.CacheAccesses[1].Hit)
}

func TestGenerateAnswerRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	generator := generation.GeneratorFunc(func(ctx context.Context, question, extra string) (string, error) {
		if calls.Add(1) < 3 {
			return "", generation.ErrTransientFailure
		}
		return "稳定的回答内容", nil
	})
	h := newTestHarness(t, generator, 3)

	q := domain.Question{Type: domain.QuestionTypeText, Text: "请描述您的工作内容"}

	result, err := h.service.GenerateAnswer(context.Background(), q, "")
	require.NoError(t, err)
	assert.Equal(t, "稳定的回答内容", result.Answer)
	assert.Equal(t, int32(3), calls.Load(), "success on the third attempt must stop retrying")
}

func TestGenerateAnswerExhaustsRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	generator := generation.GeneratorFunc(func(ctx context.Context, question, extra string) (string, error) {
		calls.Add(1)
		return "", generation.ErrGenerationFailed
	})
	h := newTestHarness(t, generator, 2)

	q := domain.Question{Type: domain.QuestionTypeText, Text: "请描述您的工作内容"}

	result, err := h.service.GenerateAnswer(context.Background(), q, "")
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.True(t, result.Failed())
	assert.Equal(t, int32(3), calls.Load(), "1 initial attempt plus 2 retries")
}

func TestGenerateAnswerEmptyResponseRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	generator := generation.GeneratorFunc(func(ctx context.Context, question, extra string) (string, error) {
		if calls.Add(1) == 1 {
			return "   ", nil
		}
		return "有内容的回答", nil
	})
	h := newTestHarness(t, generator, 1)

	q := domain.Question{Type: domain.QuestionTypeText, Text: "请描述您的兴趣"}

	result, err := h.service.GenerateAnswer(context.Background(), q, "")
	require.NoError(t, err)
	assert.Equal(t, "有内容的回答", result.Answer)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateAnswerInvalidQuestion(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	generator := generation.GeneratorFunc(func(ctx context.Context, question, extra string) (string, error) {
		calls.Add(1)
		return "never", nil
	})
	h := newTestHarness(t, generator, 3)

	q := domain.Question{Type: domain.QuestionTypeText, Text: "   "}

	_, err := h.service.GenerateAnswer(context.Background(), q, "")
	assert.ErrorIs(t, err, ErrInvalidQuestion)
	assert.Zero(t, calls.Load(), "invalid questions must never reach the generator")
}

func TestGenerateAnswerRadioFallback(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, staticGenerator("10年以上"), 2)

	q := domain.Question{
		Type:    domain.QuestionTypeRadio,
		Text:    "您的工作年限是？",
		Options: []string{"1-3年", "3-5年"},
	}

	result, err := h.service.GenerateAnswer(context.Background(), q, "")
	require.NoError(t, err)
	assert.Equal(t, "1-3年", result.Answer, "out-of-set radio answer falls back to the first option")

	stats := h.monitor.Statistics()
	assert.Equal(t, 1, stats.Fallbacks)
	assert.Equal(t, 1, stats.TotalCalls, "fallback is not a retry")
}

func TestGenerateAnswerCheckboxConstrained(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, staticGenerator("读书, 跳舞、运动"), 0)

	q := domain.Question{
		Type:    domain.QuestionTypeCheckbox,
		Text:    "您的爱好是？",
		Options: []string{"读书", "运动", "音乐"},
	}

	result, err := h.service.GenerateAnswer(context.Background(), q, "")
	require.NoError(t, err)
	assert.Equal(t, "读书,运动", result.Answer, "invalid selections are dropped, order preserved")
}

func TestGenerateAnswerCheckboxViolationIsTerminal(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	generator := generation.GeneratorFunc(func(ctx context.Context, question, extra string) (string, error) {
		calls.Add(1)
		return "跳舞", nil
	})
	h := newTestHarness(t, generator, 3)

	q := domain.Question{
		Type:    domain.QuestionTypeCheckbox,
		Text:    "您的爱好是？",
		Options: []string{"读书", "运动"},
	}

	result, err := h.service.GenerateAnswer(context.Background(), q, "")
	assert.ErrorIs(t, err, ErrConstraintViolation)
	assert.True(t, result.Failed())
	assert.Equal(t, int32(1), calls.Load(), "constraint violations must not be retried")
}

func TestGenerateAnswerRecordsQuality(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, staticGenerator("1-3年"), 0)

	q := domain.Question{
		Type:    domain.QuestionTypeRadio,
		Text:    "您的工作年限是？",
		Options: []string{"1-3年", "3-5年"},
	}

	_, err := h.service.GenerateAnswer(context.Background(), q, "")
	require.NoError(t, err)

	stats := h.monitor.Statistics()
	require.Len(t, stats.Quality, 1)
	assert.InDelta(t, 1.0, stats.Quality[0].Score, 0.0001)
}

func TestBatchGenerateOrderAndIsolation(t *testing.T) {
	t.Parallel()

	generator := generation.GeneratorFunc(func(ctx context.Context, question, extra string) (string, error) {
		return "回答：" + question, nil
	})
	h := newTestHarness(t, generator, 0)

	questions := []domain.Question{
		{Type: domain.QuestionTypeText, Text: "第一题"},
		{Type: domain.QuestionTypeText, Text: ""},
		{Type: domain.QuestionTypeText, Text: "第三题"},
	}

	batchID, results := h.service.BatchGenerate(context.Background(), questions, "")
	assert.NotEmpty(t, batchID)
	require.Len(t, results, 3, "always one result per question")

	assert.Equal(t, "回答：第一题", results[0].Answer)
	assert.True(t, results[1].Failed(), "invalid question yields an empty slot, not an error")
	assert.Equal(t, "回答：第三题", results[2].Answer)
}

func TestBatchGenerateEmptyInput(t *testing.T) {
	t.Parallel()

	h := newTestHarness(t, staticGenerator("x"), 0)
	_, results := h.service.BatchGenerate(context.Background(), nil, "")
	assert.Empty(t, results)
}

func TestWarmUpSkipsCachedAndInvalid(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	generator := generation.GeneratorFunc(func(ctx context.Context, question, extra string) (string, error) {
		calls.Add(1)
		return fmt.Sprintf("预生成的回答 %d", calls.Load()), nil
	})
	h := newTestHarness(t, generator, 0)

	cached := domain.Question{Type: domain.QuestionTypeText, Text: "已缓存的问题"}
	require.NoError(t, h.cache.Put(cache.KeyFor(cached), "已有回答"))

	questions := []domain.Question{
		cached,
		{Type: domain.QuestionTypeText, Text: "新的问题"},
		{Type: domain.QuestionTypeText, Text: ""},
	}

	warmed := h.service.WarmUp(context.Background(), questions)
	assert.Equal(t, 1, warmed)
	assert.Equal(t, int32(1), calls.Load(), "cached and invalid questions are skipped")

	fresh := domain.Question{Type: domain.QuestionTypeText, Text: "新的问题"}
	entry, ok := h.cache.Get(cache.KeyFor(fresh))
	require.True(t, ok)
	assert.NotEmpty(t, entry.Answer)
}

func TestGenerateAnswerContextCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	generator := generation.GeneratorFunc(func(ctx context.Context, question, extra string) (string, error) {
		return "", generation.ErrTransientFailure
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	answerCache := cache.New(filepath.Join(t.TempDir(), "cache.json"), time.Hour, logger)
	exec := executor.New(executor.DefaultConfig(), logger)
	t.Cleanup(exec.Shutdown)

	svc, err := NewAnswerService(
		generator, answerCache, exec,
		consistency.New(0.6, logger), evaluator.New(), monitor.New(),
		5, time.Hour, logger,
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	q := domain.Question{Type: domain.QuestionTypeText, Text: "问题"}
	_, err = svc.GenerateAnswer(ctx, q, "")
	assert.ErrorIs(t, err, context.DeadlineExceeded, "backoff must abort when the context ends")
}
