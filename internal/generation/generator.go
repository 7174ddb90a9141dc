package generation

import "context"

// Generator defines the interface for the remote text-generation service.
// This interface is the boundary between the dispatch core and external
// LLM providers; the core treats any non-success outcome uniformly as a
// retryable failure.
type Generator interface {
	// Generate produces an answer for the given question text. The optional
	// extra context string may be empty. Implementations are expected to
	// honor ctx cancellation and deadlines; the caller bounds every call
	// with a timeout.
	Generate(ctx context.Context, question string, extra string) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, question string, extra string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, question string, extra string) (string, error) {
	return f(ctx, question, extra)
}
