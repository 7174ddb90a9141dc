// Package groq implements the generation.Generator interface against Groq's
// OpenAI-compatible chat-completion API.
package groq
