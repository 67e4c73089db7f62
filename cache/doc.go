// Package cache provides a content-addressed embedding cache bounded by
// capacity and age.
//
// Texts are normalized (trimmed and case-folded) and hashed with BLAKE2b
// before use as keys, so raw text is never held by the cache. Entries are
// evicted least-recently-used when the cache is full and expire after a TTL.
// Expired entries are invisible to readers immediately and are removed by a
// background sweep.
//
//	c := cache.New(cache.DefaultConfig())
//	c.Set("Hello world", vec)
//	v, ok := c.Get("  hello WORLD ")  // ok == true
package cache
