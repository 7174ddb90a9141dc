// Package generation provides the interface and shared helpers for
// interacting with external text-generation services. It abstracts the
// details of LLM API integration (Groq, Gemini), allowing the dispatch core
// to request answers without coupling to a specific provider.
package generation
