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

package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/cache"
	"github.com/poiesic/docembed/core"
)

// pingText is embedded by Ping.
const pingText = "health check"

// Service generates embeddings for single texts and batches.
type Service struct {
	embedder ai.Embedder
	batch    *BatchProcessor
	settings *settings
	logger   *slog.Logger
}

// NewService creates an embedding service. Close must be called to release
// its worker pool.
func NewService(embedder ai.Embedder, opts ...Option) (*Service, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	s := defaultSettings()
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	logger := s.logger
	if logger == nil {
		logger = slog.Default().With("component", "embedding-service")
	}

	batch, err := newBatchProcessor(embedder, s)
	if err != nil {
		return nil, err
	}
	return &Service{
		embedder: embedder,
		batch:    batch,
		settings: s,
		logger:   logger,
	}, nil
}

// Close releases the service's worker pool.
func (s *Service) Close() {
	s.batch.Release()
}

// Model returns the configured model name.
func (s *Service) Model() string {
	return s.settings.model
}

// Dimensions returns the expected vector size.
func (s *Service) Dimensions() int {
	return s.settings.dimensions
}

// Cache returns the shared cache, or nil.
func (s *Service) Cache() *cache.EmbeddingCache {
	return s.settings.cache
}

// RetryPolicy returns the default retry policy.
func (s *Service) RetryPolicy() RetryPolicy {
	return s.settings.retry
}

// GenerateEmbedding embeds a single text, serving it from the cache when possible.
func (s *Service) GenerateEmbedding(ctx context.Context, text string) (*core.EmbeddingResult, error) {
	if err := s.ValidateInput(text); err != nil {
		return nil, newError(OpGenerate, 1, err)
	}

	if c := s.settings.cache; c != nil {
		if vec, ok := c.Get(text); ok && len(vec) == s.settings.dimensions {
			return s.result(text, vec, core.SourceCache), nil
		}
	}

	vec, err := s.embed(ctx, text, s.settings.retry)
	if err != nil {
		s.logger.Error("failed to generate embedding", "err", err)
		return nil, newError(OpGenerate, 1, err)
	}

	if c := s.settings.cache; c != nil {
		c.Set(text, vec)
	}
	return s.result(text, vec, core.SourceProvider), nil
}

func (s *Service) embed(ctx context.Context, text string, policy RetryPolicy) ([]float32, error) {
	vec, err := Retry(ctx, policy, func(ctx context.Context) ([]float32, error) {
		if s.settings.limiter != nil {
			if err := s.settings.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		return s.embedder.EmbedText(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	if len(vec) != s.settings.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), s.settings.dimensions)
	}
	return vec, nil
}

func (s *Service) result(text string, vec []float32, source core.ResultSource) *core.EmbeddingResult {
	return &core.EmbeddingResult{
		Embedding:  vec,
		TokenCount: core.EstimateTokens(text),
		Text:       text,
		Metadata: core.ResultMetadata{
			Source:     source,
			Model:      s.settings.model,
			Dimensions: len(vec),
		},
	}
}

// GenerateBatchEmbeddings embeds inputs through the batch processor.
func (s *Service) GenerateBatchEmbeddings(ctx context.Context, inputs []core.EmbeddingInput, opts BatchOptions) ([]core.EmbeddingResult, error) {
	return s.batch.ProcessBatch(ctx, inputs, opts)
}

// GenerateBatchEmbeddingsWithMetrics is GenerateBatchEmbeddings that also
// returns the batch metrics.
func (s *Service) GenerateBatchEmbeddingsWithMetrics(ctx context.Context, inputs []core.EmbeddingInput, opts BatchOptions) ([]core.EmbeddingResult, *BatchMetrics, error) {
	return s.batch.ProcessBatchWithMetrics(ctx, inputs, opts)
}

// EstimateCost approximates the cost of embedding texts with the configured
// model.
func (s *Service) EstimateCost(texts []string) CostEstimate {
	tokens := 0
	for _, t := range texts {
		tokens += core.EstimateTokens(t)
	}
	return CostEstimate{
		TotalTokens:   tokens,
		EstimatedCost: CostFor(s.settings.model, tokens),
		Model:         s.settings.model,
	}
}

// ValidateInput rejects empty text and text over the model's token ceiling.
func (s *Service) ValidateInput(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	if tokens := core.EstimateTokens(text); tokens > s.settings.maxInputTokens {
		return fmt.Errorf("%w: ~%d tokens exceeds %d", ErrInputTooLong, tokens, s.settings.maxInputTokens)
	}
	return nil
}

// Ping embeds a fixed text, bypassing the cache, and reports the round trip
// latency. It makes a single attempt.
func (s *Service) Ping(ctx context.Context) (time.Duration, error) {
	policy := s.settings.retry
	policy.MaxAttempts = 1

	start := time.Now()
	if _, err := s.embed(ctx, pingText, policy); err != nil {
		return time.Since(start), newError(OpGenerate, 1, err)
	}
	return time.Since(start), nil
}
