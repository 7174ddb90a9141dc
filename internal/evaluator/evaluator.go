package evaluator

import (
	"strings"
	"unicode/utf8"

	"github.com/quillan/formfill-api/internal/domain"
)

// Result is a heuristic quality assessment of one generated answer.
type Result struct {
	Score    float64            `json:"score"`
	Feedback string             `json:"feedback"`
	Details  map[string]float64 `json:"details"`
}

// Evaluator scores generated answers against their question constraints.
// Scores feed the performance monitor; they carry no side effects.
type Evaluator struct{}

// New creates an Evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate scores answer for the given question type and options. Scores are
// in [0, 1]; an empty answer always scores zero.
func (e *Evaluator) Evaluate(qtype domain.QuestionType, answer, question string, options []string) Result {
	if answer == "" {
		return uniform(0, "answer is empty")
	}

	switch qtype {
	case domain.QuestionTypeRadio:
		return e.evaluateRadio(answer, options)
	case domain.QuestionTypeCheckbox:
		return e.evaluateCheckbox(answer, options)
	case domain.QuestionTypeText:
		return e.evaluateText(answer)
	}

	return uniform(0, "invalid question type")
}

func (e *Evaluator) evaluateRadio(answer string, options []string) Result {
	if len(options) == 0 {
		return uniform(0.6, "answer marginally acceptable")
	}
	for _, opt := range options {
		if answer == opt {
			return uniform(1.0, "answer valid")
		}
	}
	return uniform(0.3, "answer needs improvement: not among options")
}

func (e *Evaluator) evaluateCheckbox(answer string, options []string) Result {
	if len(options) == 0 {
		return uniform(0, "invalid option list")
	}

	valid := 0
	for _, token := range strings.Split(answer, ",") {
		token = strings.TrimSpace(token)
		for _, opt := range options {
			if token == opt {
				valid++
				break
			}
		}
	}

	coverage := float64(valid) / float64(len(options))
	binary := 0.0
	if valid > 0 {
		binary = 1.0
	}

	return Result{
		Score:    coverage,
		Feedback: feedbackFor(coverage),
		Details: map[string]float64{
			"completeness": coverage,
			"format":       binary,
			"relevance":    binary,
			"length":       coverage,
		},
	}
}

func (e *Evaluator) evaluateText(answer string) Result {
	length := utf8.RuneCountInString(answer)

	lengthScore := capped(float64(length) / 20)
	completeness := capped(float64(length) / 50)
	format := 0.7
	if length >= 10 {
		format = 1.0
	}
	// Without semantic analysis, relevance stays a fixed optimistic prior;
	// the consistency validator catches answers that actually drift.
	relevance := 0.8

	total := capped((lengthScore + completeness + format + relevance) / 4 * 1.5)

	return Result{
		Score:    total,
		Feedback: feedbackFor(total),
		Details: map[string]float64{
			"completeness": completeness,
			"format":       format,
			"relevance":    relevance,
			"length":       lengthScore,
		},
	}
}

func feedbackFor(score float64) string {
	switch {
	case score >= 0.8:
		return "answer quality good"
	case score >= 0.6:
		return "answer needs improvement: marginally acceptable"
	default:
		return "answer needs improvement: low quality"
	}
}

func uniform(score float64, feedback string) Result {
	return Result{
		Score:    score,
		Feedback: feedback,
		Details: map[string]float64{
			"completeness": score,
			"format":       score,
			"relevance":    score,
			"length":       score,
		},
	}
}

func capped(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
