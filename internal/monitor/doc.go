// Package monitor provides thread-safe accumulation of dispatch metrics:
// remote calls, cache accesses, errors, quality scores, and constrained
// fallbacks. Reporting and alerting collaborators consume its snapshots.
package monitor
