// Package service contains the answer dispatch core. AnswerService turns
// extracted form questions into answers by combining the persisted cache,
// the rate-limited executor, the remote text generator, the consistency
// validator, the quality evaluator, and the performance monitor.
package service
