package service

import "errors"

// Service-specific errors returned by the dispatch core
var (
	// ErrInvalidQuestion is returned when a question fails domain validation.
	// No remote call is made for an invalid question.
	ErrInvalidQuestion = errors.New("question failed validation")

	// ErrConstraintViolation is returned when a generated answer cannot be
	// reconciled with the question's options. It is terminal; the answer is
	// not regenerated.
	ErrConstraintViolation = errors.New("answer violates question constraints")

	// ErrAttemptsExhausted is returned when every generation attempt for a
	// question failed.
	ErrAttemptsExhausted = errors.New("answer generation attempts exhausted")
)
