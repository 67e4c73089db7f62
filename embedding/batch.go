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
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/core"
)

const (
	minBatchSize = 50
	maxBatchSize = 200
)

// BatchOptions controls a single ProcessBatch call.
type BatchOptions struct {
	// BatchSize is the number of texts per provider call. Zero picks a size
	// from the average input length.
	BatchSize int

	// DisableCache skips cache lookups and writes.
	DisableCache bool

	// Retry overrides the processor's retry policy.
	Retry *RetryPolicy
}

// BatchProcessor embeds many inputs with caching and bounded concurrency.
type BatchProcessor struct {
	embedder ai.Embedder
	pool     *ants.Pool
	settings *settings
	logger   *slog.Logger
}

// NewBatchProcessor creates a BatchProcessor. Release must be called when it
// is no longer needed.
func NewBatchProcessor(embedder ai.Embedder, opts ...Option) (*BatchProcessor, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	s := defaultSettings()
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return newBatchProcessor(embedder, s)
}

func newBatchProcessor(embedder ai.Embedder, s *settings) (*BatchProcessor, error) {
	pool, err := ants.NewPool(s.maxConcurrency)
	if err != nil {
		return nil, err
	}
	logger := s.logger
	if logger == nil {
		logger = slog.Default().With("component", "batch-processor")
	}
	return &BatchProcessor{
		embedder: embedder,
		pool:     pool,
		settings: s,
		logger:   logger,
	}, nil
}

// Release stops the worker pool.
func (bp *BatchProcessor) Release() {
	bp.pool.Release()
}

// ProcessBatch embeds inputs and returns one result per input in input order.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, inputs []core.EmbeddingInput, opts BatchOptions) ([]core.EmbeddingResult, error) {
	results, _, err := bp.ProcessBatchWithMetrics(ctx, inputs, opts)
	return results, err
}

// ProcessBatchWithMetrics is ProcessBatch that also returns the call's metrics.
func (bp *BatchProcessor) ProcessBatchWithMetrics(ctx context.Context, inputs []core.EmbeddingInput, opts BatchOptions) ([]core.EmbeddingResult, *BatchMetrics, error) {
	start := time.Now()
	metrics := &BatchMetrics{TotalInputs: len(inputs)}
	if len(inputs) == 0 {
		return nil, metrics, nil
	}

	useCache := bp.settings.cache != nil && !opts.DisableCache

	// Split into cache hits and unique misses, keyed by exact text.
	cached := make(map[string][]float32)
	var misses []string
	seen := make(map[string]bool)
	for _, in := range inputs {
		if _, ok := cached[in.Text]; ok {
			metrics.CacheHits++
			continue
		}
		if useCache {
			if vec, ok := bp.settings.cache.Get(in.Text); ok && len(vec) == bp.settings.dimensions {
				cached[in.Text] = vec
				metrics.CacheHits++
				continue
			}
		}
		if !seen[in.Text] {
			seen[in.Text] = true
			misses = append(misses, in.Text)
		}
	}
	metrics.UniqueMisses = len(misses)

	fresh := make(map[string][]float32, len(misses))
	if len(misses) > 0 {
		batchSize := opts.BatchSize
		if batchSize <= 0 {
			batchSize = RecommendedBatchSize(misses)
		}
		policy := bp.settings.retry
		if opts.Retry != nil {
			policy = *opts.Retry
		}

		if err := bp.dispatch(ctx, misses, batchSize, policy, fresh, metrics); err != nil {
			metrics.Duration = time.Since(start)
			bp.logger.Error("embedding batch failed", "inputs", len(inputs), "misses", len(misses), "err", err)
			return nil, metrics, newError(OpBatch, len(inputs), err)
		}

		if useCache {
			for text, vec := range fresh {
				bp.settings.cache.Set(text, vec)
			}
		}
	}

	results, err := bp.assemble(inputs, cached, fresh)
	metrics.EstimatedCost = CostFor(bp.settings.model, metrics.TotalTokens)
	metrics.Duration = time.Since(start)
	if err != nil {
		return nil, metrics, err
	}
	metrics.log(bp.logger)
	return results, metrics, nil
}

// dispatch embeds texts in batches on the worker pool and stores vectors in
// out. The first failing batch cancels the rest.
func (bp *BatchProcessor) dispatch(ctx context.Context, texts []string, batchSize int, policy RetryPolicy, out map[string][]float32, metrics *BatchMetrics) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		errs     []error
		calls    atomic.Int64
		tokens   atomic.Int64
		batchIdx int
	)

	for batch := range slices.Chunk(texts, batchSize) {
		idx := batchIdx
		batchIdx++
		wg.Add(1)

		task := func() {
			defer wg.Done()
			vecs, err := bp.embedBatch(ctx, batch, policy, &calls)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !errors.Is(err, context.Canceled) || len(errs) == 0 {
					errs = append(errs, &EmbeddingError{Op: OpSingleBatch, BatchIndex: idx, Inputs: len(batch), Err: err})
				}
				cancel()
				return
			}
			for i, text := range batch {
				out[text] = vecs[i]
				tokens.Add(int64(core.EstimateTokens(text)))
			}
		}

		if err := bp.pool.Submit(task); err != nil {
			wg.Done()
			mu.Lock()
			errs = append(errs, &EmbeddingError{Op: OpSingleBatch, BatchIndex: idx, Inputs: len(batch), Err: err})
			mu.Unlock()
			cancel()
			break
		}
	}
	wg.Wait()

	metrics.Batches = batchIdx
	metrics.ProviderCalls = int(calls.Load())
	metrics.TotalTokens = int(tokens.Load())
	return errors.Join(errs...)
}

func (bp *BatchProcessor) embedBatch(ctx context.Context, batch []string, policy RetryPolicy, calls *atomic.Int64) ([][]float32, error) {
	vecs, err := Retry(ctx, policy, func(ctx context.Context) ([][]float32, error) {
		if bp.settings.limiter != nil {
			if err := bp.settings.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		calls.Add(1)
		return bp.embedder.EmbedTexts(ctx, batch)
	})
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("%w: got %d, want %d", ai.ErrCountMismatch, len(vecs), len(batch))
	}
	for _, v := range vecs {
		if len(v) != bp.settings.dimensions {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), bp.settings.dimensions)
		}
	}
	return vecs, nil
}

// assemble builds results in input order. Repeated texts get their own copy
// of the vector.
func (bp *BatchProcessor) assemble(inputs []core.EmbeddingInput, cached, fresh map[string][]float32) ([]core.EmbeddingResult, error) {
	results := make([]core.EmbeddingResult, len(inputs))
	used := make(map[string]bool, len(inputs))

	for i, in := range inputs {
		vec, source := cached[in.Text], core.SourceCache
		if vec == nil {
			vec, source = fresh[in.Text], core.SourceProvider
		}
		if vec == nil {
			bp.logger.Error("embedding result missing for input", "index", i, "id", in.ID)
			return nil, newError(OpResultNotFound, len(inputs),
				fmt.Errorf("%w: input %d (id %q)", ErrResultNotFound, i, in.ID))
		}
		if used[in.Text] {
			vec = slices.Clone(vec)
		}
		used[in.Text] = true

		results[i] = core.EmbeddingResult{
			ID:         in.ID,
			Embedding:  vec,
			TokenCount: core.EstimateTokens(in.Text),
			Text:       in.Text,
			Metadata: core.ResultMetadata{
				Source:     source,
				Model:      bp.settings.model,
				Dimensions: len(vec),
				Extra:      in.Metadata.Clone(),
			},
		}
	}
	return results, nil
}

// RecommendedBatchSize picks a batch size from the average estimated tokens
// per text: longer texts get smaller batches. The result is within [50, 200].
func RecommendedBatchSize(texts []string) int {
	if len(texts) == 0 {
		return 100
	}
	total := 0
	for _, t := range texts {
		total += core.EstimateTokens(t)
	}
	avg := total / len(texts)

	var size int
	switch {
	case avg > 500:
		size = 50
	case avg > 250:
		size = 75
	case avg < 50:
		size = 200
	case avg < 100:
		size = 150
	default:
		size = 100
	}
	return min(max(size, minBatchSize), maxBatchSize)
}
