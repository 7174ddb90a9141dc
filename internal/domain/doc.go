// Package domain contains the core value types of the answer-generation
// engine: questions extracted from forms, their closed type set, and the
// per-question answer results. Types here are plain values with no
// dependencies on infrastructure packages.
package domain
