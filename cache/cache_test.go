package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_Normalization(t *testing.T) {
	assert.Equal(t, Key("Hello World"), Key("  hello world\n"))
	assert.Equal(t, Key("STRASSE"), Key("strasse"))
	assert.NotEqual(t, Key("hello world"), Key("hello  world"))
	assert.Len(t, Key("anything"), 64)
}

func TestEmbeddingCache_SetThenGet(t *testing.T) {
	c := New(DefaultConfig())
	vec := []float32{0.1, 0.2, 0.3}

	c.Set("The quick brown fox", vec)

	got, ok := c.Get("the quick brown fox ")
	require.True(t, ok)
	assert.Equal(t, vec, got)

	got2, ok := c.Get("The quick brown fox")
	require.True(t, ok)
	assert.Equal(t, got, got2)
}

func TestEmbeddingCache_ReturnsCopies(t *testing.T) {
	c := New(DefaultConfig())
	vec := []float32{1, 2, 3}
	c.Set("text", vec)

	vec[0] = 99
	got, _ := c.Get("text")
	assert.Equal(t, float32(1), got[0])

	got[1] = 42
	again, _ := c.Get("text")
	assert.Equal(t, float32(2), again[1])
}

func TestEmbeddingCache_MissAndStats(t *testing.T) {
	c := New(DefaultConfig())
	c.Set("a", []float32{1, 0})

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, 1, s.Size)
	assert.InDelta(t, 0.5, s.HitRate, 1e-9)
	assert.Equal(t, int64(2*4+entryOverhead), s.MemoryBytes)
}

func TestEmbeddingCache_Inspect(t *testing.T) {
	c := New(DefaultConfig())
	c.Set("tracked", []float32{1, 2})

	c.Get("tracked")
	c.Get("Tracked")

	info, ok := c.Inspect("tracked")
	require.True(t, ok)
	assert.Equal(t, int64(2), info.AccessCount)
	assert.Equal(t, 2, info.Dimensions)
	assert.False(t, info.LastAccessed.Before(info.Timestamp))

	_, ok = c.Inspect("missing")
	assert.False(t, ok)
}

func TestEmbeddingCache_EmptyVectorIgnored(t *testing.T) {
	c := New(DefaultConfig())
	c.Set("empty", nil)
	assert.Equal(t, 0, c.Size())
}

func TestEmbeddingCache_LRUEviction(t *testing.T) {
	c := New(Config{MaxEntries: 2, TTL: time.Hour})
	c.Set("one", []float32{1})
	c.Set("two", []float32{2})

	// Touch "one" so "two" is least recently used.
	_, ok := c.Get("one")
	require.True(t, ok)

	c.Set("three", []float32{3})

	assert.Equal(t, 2, c.Size())
	assert.True(t, c.Has("one"))
	assert.False(t, c.Has("two"))
	assert.True(t, c.Has("three"))
	assert.Equal(t, int64(1), c.Stats().Evictions)
	assert.Equal(t, int64(0), c.Stats().Expirations)
}

func TestEmbeddingCache_TTLExpiry(t *testing.T) {
	c := New(Config{MaxEntries: 10, TTL: 20 * time.Millisecond})
	c.Set("short lived", []float32{1})

	_, ok := c.Get("short lived")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get("short lived")
	assert.False(t, ok)

	assert.Eventually(t, func() bool {
		return c.Size() == 0 && c.Stats().Expirations == 1
	}, time.Second, 10*time.Millisecond)
}

func TestEmbeddingCache_Clear(t *testing.T) {
	c := New(DefaultConfig())
	for i := range 5 {
		c.Set(fmt.Sprintf("text %d", i), []float32{float32(i)})
	}
	c.Get("text 1")

	c.Clear()

	s := c.Stats()
	assert.Equal(t, 0, s.Size)
	assert.Equal(t, int64(0), s.Hits)
	assert.Equal(t, int64(0), s.Evictions)
}

func TestEmbeddingCache_Delete(t *testing.T) {
	c := New(DefaultConfig())
	c.Set("gone", []float32{1})
	assert.True(t, c.Delete("GONE"))
	assert.False(t, c.Has("gone"))
	assert.Equal(t, int64(0), c.Stats().Evictions)
}

func TestEmbeddingCache_ConcurrentAccess(t *testing.T) {
	c := New(Config{MaxEntries: 100, TTL: time.Hour})

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				key := fmt.Sprintf("text %d", (w*200+i)%150)
				vec := []float32{float32(i), float32(i), float32(i)}
				c.Set(key, vec)
				if got, ok := c.Get(key); ok {
					// Every observed vector is whole.
					assert.Len(t, got, 3)
					assert.Equal(t, got[0], got[2])
				}
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), 100)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.ErrorIs(t, Config{MaxEntries: 0}.Validate(), ErrInvalidCapacity)
	assert.ErrorIs(t, Config{MaxEntries: 1, TTL: -time.Second}.Validate(), ErrInvalidTTL)
}
