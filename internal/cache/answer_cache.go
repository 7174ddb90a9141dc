package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quillan/formfill-api/internal/domain"
)

// ErrPersistence is returned when the cache file cannot be written. Read
// failures are never surfaced; they degrade to cache misses.
var ErrPersistence = errors.New("cache persistence failure")

// keySeparator joins the cache key components. Option order is part of the
// key: forms present options in a fixed order, and normalizing it would
// alias distinct renderings of the same choice set.
const keySeparator = ":"

// Entry is a single cached answer. Entries are owned exclusively by the
// cache and mutated only through Put.
type Entry struct {
	Answer    string
	CreatedAt time.Time
}

// persistedEntry is the on-disk representation of an Entry.
type persistedEntry struct {
	Answer    string `json:"answer"`
	Timestamp string `json:"timestamp"`
}

// KeyFor derives the deterministic cache key for a question. Two questions
// with identical type, text, and options map to the same key regardless of
// instance identity.
func KeyFor(q domain.Question) string {
	return string(q.Type) + keySeparator + q.Text + keySeparator + strings.Join(q.Options, ",")
}

// AnswerCache is a persisted key→answer store with TTL expiry and
// size-bounded eviction. The in-memory map and its on-disk mirror are
// guarded by a single mutex covering each read-modify-write sequence;
// concurrent writers for the same key resolve last-write-wins.
type AnswerCache struct {
	path   string
	ttl    time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]Entry

	// now is replaceable in tests.
	now func() time.Time
}

// New creates an AnswerCache backed by the JSON file at path and loads any
// persisted state. A missing, unreadable, or malformed file degrades to an
// empty cache; it is never a startup failure.
func New(path string, ttl time.Duration, logger *slog.Logger) *AnswerCache {
	c := &AnswerCache{
		path:   path,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
	c.entries = c.Load()
	return c
}

// Load reads persisted state from disk and installs it as the cache's
// content. A missing file yields an empty mapping; a malformed file or
// individual entry is logged and treated as absent.
func (c *AnswerCache) Load() map[string]Entry {
	entries := make(map[string]Entry)

	raw, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Error("failed to read cache file, starting empty",
				"path", c.path,
				"error", err)
		}
		c.install(entries)
		return entries
	}

	var persisted map[string]json.RawMessage
	if err := json.Unmarshal(raw, &persisted); err != nil {
		c.logger.Error("cache file is malformed, starting empty",
			"path", c.path,
			"error", err)
		c.install(entries)
		return entries
	}

	for key, blob := range persisted {
		if key == "" {
			continue
		}
		var pe persistedEntry
		if err := json.Unmarshal(blob, &pe); err != nil {
			c.logger.Warn("skipping malformed cache entry", "key", key, "error", err)
			continue
		}
		createdAt, err := time.Parse(time.RFC3339, pe.Timestamp)
		if err != nil {
			c.logger.Warn("skipping cache entry with unparseable timestamp",
				"key", key,
				"timestamp", pe.Timestamp)
			continue
		}
		entries[key] = Entry{Answer: pe.Answer, CreatedAt: createdAt}
	}

	c.install(entries)
	return entries
}

func (c *AnswerCache) install(entries map[string]Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = entries
}

// Get returns the live entry for key. Expired entries are treated as absent
// but are not eagerly removed; Evict reclaims them.
func (c *AnswerCache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	if c.expired(entry) {
		return Entry{}, false
	}
	return entry, true
}

// Put upserts the answer under key and synchronously persists the whole
// mapping before returning. Durability is preferred over latency here; write
// volume is low.
func (c *AnswerCache) Put(key string, answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry{Answer: answer, CreatedAt: c.now()}
	return c.persistLocked()
}

// Evict first removes all TTL-expired entries, then removes the
// oldest-by-creation entries until at most maxSize remain, and persists the
// result. It returns the number of entries remaining.
func (c *AnswerCache) Evict(maxSize int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) > maxSize {
		type keyed struct {
			key   string
			entry Entry
		}
		ordered := make([]keyed, 0, len(c.entries))
		for key, entry := range c.entries {
			ordered = append(ordered, keyed{key, entry})
		}
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].entry.CreatedAt.Before(ordered[j].entry.CreatedAt)
		})
		for _, victim := range ordered[:len(ordered)-maxSize] {
			delete(c.entries, victim.key)
		}
	}

	remaining := len(c.entries)
	if err := c.persistLocked(); err != nil {
		return remaining, err
	}
	return remaining, nil
}

// Size returns the number of entries currently held, live or expired.
func (c *AnswerCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *AnswerCache) expired(entry Entry) bool {
	return c.now().Sub(entry.CreatedAt) > c.ttl
}

// persistLocked writes the full mapping to disk. Callers must hold c.mu.
func (c *AnswerCache) persistLocked() error {
	persisted := make(map[string]persistedEntry, len(c.entries))
	for key, entry := range c.entries {
		persisted[key] = persistedEntry{
			Answer:    entry.Answer,
			Timestamp: entry.CreatedAt.Format(time.RFC3339),
		}
	}

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if dir := filepath.Dir(c.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
