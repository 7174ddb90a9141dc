package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quillan/formfill-api/internal/domain"
)

func TestEvaluateEmptyAnswer(t *testing.T) {
	t.Parallel()

	result := New().Evaluate(domain.QuestionTypeText, "", "q", nil)
	assert.Zero(t, result.Score)
	assert.Equal(t, "answer is empty", result.Feedback)
}

func TestEvaluateRadio(t *testing.T) {
	t.Parallel()

	e := New()
	options := []string{"1-3年", "3-5年", "5年以上"}

	result := e.Evaluate(domain.QuestionTypeRadio, "1-3年", "工作年限？", options)
	assert.InDelta(t, 1.0, result.Score, 0.0001)

	result = e.Evaluate(domain.QuestionTypeRadio, "10年", "工作年限？", options)
	assert.InDelta(t, 0.3, result.Score, 0.0001)
	assert.Contains(t, result.Feedback, "not among options")

	result = e.Evaluate(domain.QuestionTypeRadio, "anything", "q", nil)
	assert.InDelta(t, 0.6, result.Score, 0.0001)
}

func TestEvaluateCheckbox(t *testing.T) {
	t.Parallel()

	e := New()
	options := []string{"读书", "运动", "音乐", "旅行"}

	result := e.Evaluate(domain.QuestionTypeCheckbox, "读书,运动", "爱好？", options)
	assert.InDelta(t, 0.5, result.Score, 0.0001)
	assert.InDelta(t, 1.0, result.Details["format"], 0.0001)

	result = e.Evaluate(domain.QuestionTypeCheckbox, "跳舞", "爱好？", options)
	assert.Zero(t, result.Score)
	assert.Zero(t, result.Details["format"])

	result = e.Evaluate(domain.QuestionTypeCheckbox, "anything", "q", nil)
	assert.Zero(t, result.Score)
	assert.Equal(t, "invalid option list", result.Feedback)
}

func TestEvaluateText(t *testing.T) {
	t.Parallel()

	e := New()

	long := e.Evaluate(domain.QuestionTypeText, "这是一个内容充实且相当完整的回答，涵盖了问题的各个方面。", "q", nil)
	short := e.Evaluate(domain.QuestionTypeText, "好", "q", nil)

	assert.Greater(t, long.Score, short.Score)
	assert.InDelta(t, 1.0, long.Details["format"], 0.0001)
	assert.InDelta(t, 0.7, short.Details["format"], 0.0001)
	assert.LessOrEqual(t, long.Score, 1.0)
}

func TestEvaluateInvalidType(t *testing.T) {
	t.Parallel()

	result := New().Evaluate(domain.QuestionType("dropdown"), "answer", "q", nil)
	assert.Zero(t, result.Score)
	assert.Equal(t, "invalid question type", result.Feedback)
}
