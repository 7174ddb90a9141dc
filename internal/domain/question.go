package domain

import (
	"errors"
	"strings"
)

// Question-specific validation errors
var (
	// ErrInvalidQuestionType is returned when a question carries a type
	// outside the closed set of supported types.
	ErrInvalidQuestionType = errors.New("invalid question type")

	// ErrQuestionTextEmpty is returned when a question's text is empty or
	// whitespace-only.
	ErrQuestionTextEmpty = errors.New("question text cannot be empty")

	// ErrOptionsRequired is returned when a radio or checkbox question has
	// no options.
	ErrOptionsRequired = errors.New("choice questions require at least one option")

	// ErrOptionEmpty is returned when an option string is empty or
	// whitespace-only.
	ErrOptionEmpty = errors.New("options cannot contain empty entries")

	// ErrOptionsNotAllowed is returned when a text question carries options.
	ErrOptionsNotAllowed = errors.New("text questions cannot carry options")
)

// QuestionType identifies the kind of form control a question was extracted
// from. Only the three listed values are valid; anything else fails
// validation before any remote call is made.
type QuestionType string

const (
	QuestionTypeText     QuestionType = "text"
	QuestionTypeRadio    QuestionType = "radio"
	QuestionTypeCheckbox QuestionType = "checkbox"
)

// IsValid reports whether t is one of the supported question types.
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionTypeText, QuestionTypeRadio, QuestionTypeCheckbox:
		return true
	}
	return false
}

// IsChoice reports whether t is an option-constrained type.
func (t QuestionType) IsChoice() bool {
	return t == QuestionTypeRadio || t == QuestionTypeCheckbox
}

// BoundingBox is the on-screen position of an extracted question element.
// It is opaque to the dispatch core and carried through for downstream
// form-filling collaborators.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Question is a single extracted form question. Instances are produced by
// the external parsing collaborator and treated as immutable once created.
type Question struct {
	Type     QuestionType `json:"question_type"`
	Text     string       `json:"text"`
	Options  []string     `json:"options,omitempty"`
	Position BoundingBox  `json:"position"`
}

// NewQuestion creates a validated Question.
func NewQuestion(qtype QuestionType, text string, options []string) (Question, error) {
	q := Question{
		Type:    qtype,
		Text:    text,
		Options: options,
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Validate checks the question against the input contract: the type must be
// one of the closed set, the text must be non-blank, choice questions must
// carry at least one non-blank option, and text questions must carry none.
func (q Question) Validate() error {
	if !q.Type.IsValid() {
		return ErrInvalidQuestionType
	}

	if strings.TrimSpace(q.Text) == "" {
		return ErrQuestionTextEmpty
	}

	if q.Type.IsChoice() {
		if len(q.Options) == 0 {
			return ErrOptionsRequired
		}
		for _, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return ErrOptionEmpty
			}
		}
		return nil
	}

	if len(q.Options) > 0 {
		return ErrOptionsNotAllowed
	}

	return nil
}

// HasOption reports whether answer exactly matches one of the question's
// options.
func (q Question) HasOption(answer string) bool {
	for _, opt := range q.Options {
		if answer == opt {
			return true
		}
	}
	return false
}

// AnswerResult is the per-question outcome of answer generation. An empty
// Answer signals unrecoverable failure for that question; it is never an
// error crossing the batch boundary.
type AnswerResult struct {
	Answer    string `json:"answer"`
	FromCache bool   `json:"from_cache"`
}

// Failed reports whether the result represents a failed question.
func (r AnswerResult) Failed() bool {
	return r.Answer == ""
}
