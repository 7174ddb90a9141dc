package cache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillan/formfill-api/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestKeyFor(t *testing.T) {
	t.Parallel()

	q1 := domain.Question{Type: domain.QuestionTypeRadio, Text: "工作年限？", Options: []string{"1-3年", "3-5年"}}
	q2 := domain.Question{Type: domain.QuestionTypeRadio, Text: "工作年限？", Options: []string{"1-3年", "3-5年"}}
	assert.Equal(t, KeyFor(q1), KeyFor(q2), "identical questions must share a key")
	assert.Equal(t, "radio:工作年限？:1-3年,3-5年", KeyFor(q1))

	// Option order is part of the key.
	q3 := domain.Question{Type: domain.QuestionTypeRadio, Text: "工作年限？", Options: []string{"3-5年", "1-3年"}}
	assert.NotEqual(t, KeyFor(q1), KeyFor(q3))

	// Type distinguishes otherwise identical questions.
	q4 := domain.Question{Type: domain.QuestionTypeCheckbox, Text: "工作年限？", Options: []string{"1-3年", "3-5年"}}
	assert.NotEqual(t, KeyFor(q1), KeyFor(q4))
}

func TestCacheRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")

	first := New(path, 24*time.Hour, testLogger())
	require.NoError(t, first.Put("radio:q:A,B", "A"))

	// A fresh instance reading the same file must return an identical answer.
	second := New(path, 24*time.Hour, testLogger())
	entry, ok := second.Get("radio:q:A,B")
	require.True(t, ok)
	assert.Equal(t, "A", entry.Answer)
}

func TestCacheTTL(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	c := New(path, time.Hour, testLogger())

	base := time.Now()
	c.now = func() time.Time { return base }
	require.NoError(t, c.Put("k", "v"))

	// Just inside the TTL.
	c.now = func() time.Time { return base.Add(time.Hour - time.Second) }
	_, ok := c.Get("k")
	assert.True(t, ok, "entry should be live before TTL elapses")

	// Just past the TTL.
	c.now = func() time.Time { return base.Add(time.Hour + time.Second) }
	_, ok = c.Get("k")
	assert.False(t, ok, "entry should be absent after TTL elapses")

	// Expired entries are not eagerly removed by Get.
	assert.Equal(t, 1, c.Size())
}

func TestCacheEvict(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	c := New(path, 24*time.Hour, testLogger())

	base := time.Now()
	for i := 0; i < 10; i++ {
		i := i
		c.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		require.NoError(t, c.Put(fmt.Sprintf("key-%d", i), "answer"))
	}
	c.now = func() time.Time { return base.Add(time.Hour) }

	remaining, err := c.Evict(4)
	require.NoError(t, err)
	assert.Equal(t, 4, remaining)

	// The four most recently created entries survive.
	for i := 6; i < 10; i++ {
		_, ok := c.Get(fmt.Sprintf("key-%d", i))
		assert.True(t, ok, "expected key-%d to survive eviction", i)
	}
	for i := 0; i < 6; i++ {
		_, ok := c.Get(fmt.Sprintf("key-%d", i))
		assert.False(t, ok, "expected key-%d to be evicted", i)
	}
}

func TestCacheEvictRemovesExpired(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	c := New(path, time.Hour, testLogger())

	base := time.Now()
	c.now = func() time.Time { return base }
	require.NoError(t, c.Put("old", "v"))
	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	require.NoError(t, c.Put("fresh", "v"))

	remaining, err := c.Evict(100)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	_, ok := c.Get("fresh")
	assert.True(t, ok)
}

func TestCacheMissingFile(t *testing.T) {
	t.Parallel()

	c := New(filepath.Join(t.TempDir(), "absent.json"), time.Hour, testLogger())
	assert.Equal(t, 0, c.Size())
}

func TestCacheMalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c := New(path, time.Hour, testLogger())
	assert.Equal(t, 0, c.Size())

	// The cache stays usable after a corrupt load.
	require.NoError(t, c.Put("k", "v"))
	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestCacheSkipsMalformedEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	content := `{
  "good": {"answer": "A", "timestamp": "` + time.Now().Format(time.RFC3339) + `"},
  "bad-shape": ["not", "an", "object"],
  "bad-time": {"answer": "B", "timestamp": "yesterday"}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c := New(path, 24*time.Hour, testLogger())
	assert.Equal(t, 1, c.Size())

	entry, ok := c.Get("good")
	require.True(t, ok)
	assert.Equal(t, "A", entry.Answer)
}

func TestCachePersistedFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.json")
	c := New(path, time.Hour, testLogger())
	require.NoError(t, c.Put("text:hello:", "world"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"answer": "world"`)
	assert.Contains(t, string(raw), `"timestamp"`)
}
