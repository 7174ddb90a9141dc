// Package api contains the HTTP handlers for answer generation, metrics
// reporting, and cache maintenance, plus the shared request/response
// helpers they are built on.
package api
