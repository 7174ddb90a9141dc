package generation

import "errors"

// Common errors returned by Generator implementations
var (
	// ErrGenerationFailed is returned when a remote call fails for any
	// general reason (network errors, provider errors, timeouts).
	ErrGenerationFailed = errors.New("failed to generate answer")

	// ErrEmptyResponse is returned when the provider answers with empty or
	// whitespace-only text.
	ErrEmptyResponse = errors.New("empty response from language model")

	// ErrTransientFailure is returned for temporary errors that might
	// resolve on retry.
	ErrTransientFailure = errors.New("transient error during answer generation")

	// ErrInvalidConfig is returned when a generator configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
