// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// entryOverhead approximates the bytes each entry costs beyond its vector:
// the 64-char key, the entry struct and LRU list bookkeeping.
const entryOverhead = 256

// Config configures an EmbeddingCache.
type Config struct {
	// MaxEntries bounds the number of cached vectors. Default: 10000
	MaxEntries int `toml:"max_entries"`

	// TTL is how long an entry stays valid after it is written. Default: 24h
	TTL time.Duration `toml:"ttl"`
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxEntries: 10000,
		TTL:        24 * time.Hour,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxEntries <= 0 {
		return ErrInvalidCapacity
	}
	if c.TTL < 0 {
		return ErrInvalidTTL
	}
	return nil
}

// entry is a cached vector with its access bookkeeping. The vector is never
// mutated after construction.
type entry struct {
	embedding    []float32
	timestamp    time.Time
	accessCount  atomic.Int64
	lastAccessed atomic.Int64 // unix nanos
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
	Size        int
	HitRate     float64
	MemoryBytes int64
}

// EmbeddingCache maps normalized text to embedding vectors.
// It is safe for concurrent use.
type EmbeddingCache struct {
	lru    *expirable.LRU[string, *entry]
	logger *slog.Logger

	hits       atomic.Int64
	misses     atomic.Int64
	evictions  atomic.Int64
	removals   atomic.Int64
	dimensions atomic.Int64
	purging    atomic.Bool
}

// Option configures an EmbeddingCache.
type Option func(*EmbeddingCache)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *EmbeddingCache) {
		c.logger = logger
	}
}

// New creates an EmbeddingCache. An invalid config falls back to the
// defaults for the offending field.
func New(config Config, opts ...Option) *EmbeddingCache {
	defaults := DefaultConfig()
	if config.MaxEntries <= 0 {
		config.MaxEntries = defaults.MaxEntries
	}
	if config.TTL < 0 {
		config.TTL = defaults.TTL
	}

	c := &EmbeddingCache{
		logger: slog.Default().With("component", "embedding-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lru = expirable.NewLRU(config.MaxEntries, c.onEvict, config.TTL)
	return c
}

// onEvict counts every removal made by the LRU itself. Capacity evictions are
// reported separately by Add; the remainder are expirations. Removals caused
// by Clear or Delete are not counted.
func (c *EmbeddingCache) onEvict(string, *entry) {
	if c.purging.Load() {
		return
	}
	c.removals.Add(1)
}

// Get returns a copy of the cached vector for text.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	e, ok := c.lru.Get(Key(text))
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	e.accessCount.Add(1)
	e.lastAccessed.Store(time.Now().UnixNano())
	c.hits.Add(1)
	return slices.Clone(e.embedding), true
}

// Set stores a copy of vec under text, replacing any existing entry.
func (c *EmbeddingCache) Set(text string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	now := time.Now()
	e := &entry{
		embedding: slices.Clone(vec),
		timestamp: now,
	}
	e.lastAccessed.Store(now.UnixNano())
	c.dimensions.Store(int64(len(vec)))
	if c.lru.Add(Key(text), e) {
		c.evictions.Add(1)
	}
}

// Has reports whether text has a live entry without touching recency or stats.
func (c *EmbeddingCache) Has(text string) bool {
	_, ok := c.lru.Peek(Key(text))
	return ok
}

// EntryInfo describes a cached entry without exposing its vector.
type EntryInfo struct {
	Timestamp    time.Time
	AccessCount  int64
	LastAccessed time.Time
	Dimensions   int
}

// Inspect returns bookkeeping for the entry under text without counting as
// an access.
func (c *EmbeddingCache) Inspect(text string) (EntryInfo, bool) {
	e, ok := c.lru.Peek(Key(text))
	if !ok {
		return EntryInfo{}, false
	}
	return EntryInfo{
		Timestamp:    e.timestamp,
		AccessCount:  e.accessCount.Load(),
		LastAccessed: time.Unix(0, e.lastAccessed.Load()),
		Dimensions:   len(e.embedding),
	}, true
}

// Delete removes the entry for text.
func (c *EmbeddingCache) Delete(text string) bool {
	c.purging.Store(true)
	defer c.purging.Store(false)
	return c.lru.Remove(Key(text))
}

// Clear removes every entry and resets statistics.
func (c *EmbeddingCache) Clear() {
	c.purging.Store(true)
	c.lru.Purge()
	c.purging.Store(false)

	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
	c.removals.Store(0)
	c.logger.Debug("embedding cache cleared")
}

// Size returns the number of live entries.
func (c *EmbeddingCache) Size() int {
	return c.lru.Len()
}

// Stats returns current statistics.
func (c *EmbeddingCache) Stats() Stats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	size := c.lru.Len()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	evictions := c.evictions.Load()
	expirations := max(c.removals.Load()-evictions, 0)

	return Stats{
		Hits:        hits,
		Misses:      misses,
		Evictions:   evictions,
		Expirations: expirations,
		Size:        size,
		HitRate:     hitRate,
		MemoryBytes: int64(size) * (c.dimensions.Load()*4 + entryOverhead),
	}
}

// LogStats writes current statistics at info level.
func (c *EmbeddingCache) LogStats() {
	s := c.Stats()
	c.logger.Info("embedding cache stats",
		"size", s.Size,
		"hits", s.Hits,
		"misses", s.Misses,
		"hitRate", s.HitRate,
		"evictions", s.Evictions,
		"expirations", s.Expirations,
		"memoryBytes", s.MemoryBytes)
}
