package embedding

import (
	"log/slog"
	"time"
)

// BatchMetrics records the cost of one ProcessBatch call.
type BatchMetrics struct {
	TotalInputs   int
	CacheHits     int
	UniqueMisses  int
	Batches       int
	ProviderCalls int // includes retries
	TotalTokens   int // tokens sent to the provider
	EstimatedCost float64
	Duration      time.Duration
}

// CacheHitRate returns the share of inputs served from the cache.
func (m *BatchMetrics) CacheHitRate() float64 {
	if m.TotalInputs == 0 {
		return 0
	}
	return float64(m.CacheHits) / float64(m.TotalInputs)
}

func (m *BatchMetrics) log(logger *slog.Logger) {
	logger.Info("embedding batch complete",
		"inputs", m.TotalInputs,
		"cacheHits", m.CacheHits,
		"uniqueMisses", m.UniqueMisses,
		"batches", m.Batches,
		"providerCalls", m.ProviderCalls,
		"tokens", m.TotalTokens,
		"estimatedCost", m.EstimatedCost,
		"duration", m.Duration)
}
