// Package cache implements the persisted answer cache: a JSON-file-backed
// key→answer store with TTL expiry and size-bounded eviction. Corruption of
// the backing file is never fatal; it only causes cache misses.
package cache
