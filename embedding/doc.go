// Package embedding generates embeddings through an ai.Embedder with caching,
// batching, bounded concurrency and retry.
//
// Service is the entry point for single texts and batches. BatchProcessor
// splits a batch into cache hits and misses, sends the misses to the provider
// in batches of at most three in flight, caches what comes back, and returns
// results in the caller's order.
//
// Provider calls run under a RetryPolicy: exponential backoff with
// proportional jitter and a per-attempt timeout. Only failures whose
// ai.ErrorKind is transient are retried.
package embedding
