// Package executor implements admission control for outbound
// answer-generation calls: a fixed concurrency cap, a sliding-window request
// rate ceiling, per-task timeouts, and order-preserving batch dispatch.
package executor
