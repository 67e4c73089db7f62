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

package insights

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/embedding"
	"github.com/poiesic/docembed/storage"
)

// BatchEmbedder embeds accepted insights. *embedding.Service satisfies it.
type BatchEmbedder interface {
	GenerateBatchEmbeddings(ctx context.Context, inputs []core.EmbeddingInput, opts embedding.BatchOptions) ([]core.EmbeddingResult, error)
}

// Result summarizes one extraction run.
type Result struct {
	// Insights are the persisted records, highest confidence first.
	Insights []*core.InsightRecord

	// TotalInsights counts every insight parsed before filtering.
	TotalInsights int

	ProcessingTime time.Duration

	// ChunksProcessed counts chunks in segments that were extracted successfully.
	ChunksProcessed int
}

// Service extracts insights from document chunks with a generative model,
// embeds them and persists them.
type Service struct {
	generator  ai.TextGenerator
	embeddings BatchEmbedder
	repo       storage.InsightRepository
	retry      embedding.RetryPolicy
	merge      MergeFunc
	logger     *slog.Logger
}

// NewService creates an insight extraction service.
func NewService(generator ai.TextGenerator, embeddings BatchEmbedder, repo storage.InsightRepository, opts ...Option) (*Service, error) {
	switch {
	case generator == nil:
		return nil, ErrGeneratorRequired
	case embeddings == nil:
		return nil, ErrEmbeddingsRequired
	case repo == nil:
		return nil, ErrRepositoryRequired
	}
	s := &Service{
		generator:  generator,
		embeddings: embeddings,
		repo:       repo,
		retry:      embedding.DefaultRetryPolicy(),
		merge:      PassthroughMerge,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "insights")
	}
	return s, nil
}

type segmentResult struct {
	insights []core.ExtractedInsight
	chunks   int
	ok       bool
}

// ExtractInsights groups chunks into segments, extracts insights from each,
// keeps the best and persists them for documentID and userID. A segment that
// fails is logged and skipped.
func (s *Service) ExtractInsights(ctx context.Context, documentID, userID string, chunks []core.TextChunk, opts Options) (*Result, error) {
	start := time.Now()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &Result{ProcessingTime: time.Since(start)}, nil
	}

	segments := slices.Collect(slices.Chunk(chunks, opts.SegmentSize))
	results := make([]segmentResult, len(segments))
	system := buildSystemPrompt(opts.MaxPerSegment)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxConcurrency)
	for i, segment := range segments {
		g.Go(func() error {
			found, err := s.extractSegment(gctx, system, segment)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logger.Warn("segment extraction failed, skipping",
					"documentID", documentID, "segment", i, "chunks", len(segment), "err", err)
				return nil
			}
			results[i] = segmentResult{insights: found, chunks: len(segment), ok: true}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{}
	var extracted []core.ExtractedInsight
	for _, r := range results {
		if !r.ok {
			continue
		}
		result.ChunksProcessed += r.chunks
		extracted = append(extracted, r.insights...)
	}
	result.TotalInsights = len(extracted)

	accepted, err := s.rank(ctx, extracted, opts)
	if err != nil {
		return nil, err
	}
	if len(accepted) == 0 {
		result.ProcessingTime = time.Since(start)
		s.logger.Debug("no insights accepted", "documentID", documentID, "total", result.TotalInsights)
		return result, nil
	}

	records, err := s.embedRecords(ctx, documentID, userID, accepted)
	if err != nil {
		return nil, err
	}
	stored, err := s.persist(ctx, documentID, records)
	if err != nil {
		return nil, err
	}

	result.Insights = stored
	result.ProcessingTime = time.Since(start)
	s.logger.Info("extracted insights",
		"documentID", documentID,
		"total", result.TotalInsights,
		"accepted", len(stored),
		"chunks", result.ChunksProcessed,
		"duration", result.ProcessingTime)
	return result, nil
}

func (s *Service) extractSegment(ctx context.Context, system string, segment []core.TextChunk) ([]core.ExtractedInsight, error) {
	prompt := buildSegmentPrompt(segment)
	completion, err := embedding.Retry(ctx, s.retry, func(ctx context.Context) (string, error) {
		return s.generator.Generate(ctx, system, prompt)
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(segment))
	for i, chunk := range segment {
		ids[i] = chunk.ID
	}
	parsed, err := ParseInsights(completion, ids)
	if err != nil {
		return nil, err
	}
	if parsed.Stage == StageFallback {
		s.logger.Debug("used list fallback for segment", "insights", len(parsed.Insights), "jsonErr", parsed.JSONErr)
	}
	return parsed.Insights, nil
}

// rank filters by confidence, merges, sorts descending and truncates.
func (s *Service) rank(ctx context.Context, insights []core.ExtractedInsight, opts Options) ([]core.ExtractedInsight, error) {
	kept := slices.DeleteFunc(insights, func(in core.ExtractedInsight) bool {
		return in.ConfidenceScore < opts.MinConfidence
	})

	merged, err := s.merge(ctx, kept)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(merged, func(a, b core.ExtractedInsight) int {
		return cmp.Compare(b.ConfidenceScore, a.ConfidenceScore)
	})
	if len(merged) > opts.MaxInsights {
		merged = merged[:opts.MaxInsights]
	}
	return merged, nil
}

func (s *Service) embedRecords(ctx context.Context, documentID, userID string, insights []core.ExtractedInsight) ([]*core.InsightRecord, error) {
	inputs := make([]core.EmbeddingInput, len(insights))
	for i, in := range insights {
		inputs[i] = core.EmbeddingInput{ID: strconv.Itoa(i), Text: in.Content}
	}
	embedded, err := s.embeddings.GenerateBatchEmbeddings(ctx, inputs, embedding.BatchOptions{})
	if err != nil {
		return nil, err
	}

	records := make([]*core.InsightRecord, len(insights))
	for i, in := range insights {
		records[i] = &core.InsightRecord{
			DocumentID:      documentID,
			UserID:          userID,
			Content:         in.Content,
			Embedding:       embedded[i].Embedding,
			SourceChunkIDs:  in.SourceChunkIDs,
			ConfidenceScore: in.ConfidenceScore,
		}
	}
	return records, nil
}

func (s *Service) persist(ctx context.Context, documentID string, records []*core.InsightRecord) ([]*core.InsightRecord, error) {
	stored, err := embedding.Retry(ctx, s.retry, func(ctx context.Context) ([]*core.InsightRecord, error) {
		stored, err := s.repo.InsertInsights(ctx, records...)
		if err != nil {
			return nil, &core.StorageError{Op: "insert insights", DocumentID: documentID, Rows: len(records), Err: err}
		}
		return stored, nil
	})
	if err != nil {
		s.logger.Error("failed to persist insights", "documentID", documentID, "rows", len(records), "err", err)
		var se *core.StorageError
		if !errors.As(err, &se) {
			err = &core.StorageError{Op: "insert insights", DocumentID: documentID, Rows: len(records), Err: err}
		}
		return nil, err
	}
	return stored, nil
}
