// Package evaluator assigns heuristic quality scores to generated answers.
// Scores are recorded by the performance monitor and surfaced to downstream
// reporting collaborators.
package evaluator
