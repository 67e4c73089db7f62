package ingestion

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/docembed/chunking"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/embedding"
	"github.com/poiesic/docembed/insights"
	"github.com/poiesic/docembed/progress"
	"github.com/poiesic/docembed/storage"
	"github.com/poiesic/docembed/validation"
)

// EmbeddingService is the part of *embedding.Service the pipeline uses.
type EmbeddingService interface {
	GenerateBatchEmbeddingsWithMetrics(ctx context.Context, inputs []core.EmbeddingInput, opts embedding.BatchOptions) ([]core.EmbeddingResult, *embedding.BatchMetrics, error)
	RetryPolicy() embedding.RetryPolicy
	Ping(ctx context.Context) (time.Duration, error)
	Model() string
}

// Pipeline orchestrates validation, chunking and embedding of documents.
type Pipeline struct {
	embeddings         EmbeddingService
	validator          *validation.Validator
	tracker            *progress.Tracker
	checkpoints        storage.CheckpointRepository
	checkpointInterval int
	extractor          InsightExtractor
	insightOpts        insights.Options
	insightProc        processor
	pool               *ants.Pool
	pending            sync.WaitGroup
	healthThreshold    time.Duration
	logger             *slog.Logger
}

// NewPipeline creates a new document processing pipeline.
func NewPipeline(embeddings EmbeddingService, opts ...Option) (*Pipeline, error) {
	if embeddings == nil {
		return nil, ErrEmbeddingServiceRequired
	}

	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		embeddings:         embeddings,
		validator:          validation.New(),
		tracker:            progress.NewTracker(),
		checkpointInterval: DefaultCheckpointInterval,
		pool:               pool,
		healthThreshold:    DefaultHealthThreshold,
		logger:             slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	if p.extractor != nil {
		p.insightProc = newInsightProcessor(p.extractor, p.insightOpts, p.logger.With("processor", "insights"))
	}
	return p, nil
}

// Tracker returns the pipeline's progress tracker.
func (p *Pipeline) Tracker() *progress.Tracker {
	return p.tracker
}

// ProcessDocument validates, chunks and embeds doc.
func (p *Pipeline) ProcessDocument(ctx context.Context, doc *core.DocumentInput, opts ProcessOptions) (*core.ProcessedDocument, error) {
	return p.run(ctx, doc, nil, opts)
}

// ResumeProcessing continues a document from a partial result. Existing
// chunks are reused and only chunks without an embedding are sent to the
// provider. A nil partial processes the document from scratch.
func (p *Pipeline) ResumeProcessing(ctx context.Context, doc *core.DocumentInput, partial *core.ProcessedDocument, opts ProcessOptions) (*core.ProcessedDocument, error) {
	return p.run(ctx, doc, partial, opts)
}

// ResumeFromCheckpoint loads the stored checkpoint for doc, if any, and
// resumes from it.
func (p *Pipeline) ResumeFromCheckpoint(ctx context.Context, doc *core.DocumentInput, opts ProcessOptions) (*core.ProcessedDocument, error) {
	if p.checkpoints == nil {
		return nil, ErrCheckpointRepositoryRequired
	}
	if doc == nil {
		return nil, core.NewValidationError(core.ValidationStructure, "", core.ErrNilDocument)
	}

	cp, err := p.checkpoints.LoadCheckpoint(ctx, doc.DocumentID().String())
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	var partial *core.ProcessedDocument
	if cp != nil {
		partial = cp.Partial()
		p.logger.Info("resuming from checkpoint",
			"documentID", cp.DocumentID,
			"chunks", len(cp.Chunks),
			"embeddings", len(cp.Embeddings))
	}
	return p.run(ctx, doc, partial, opts)
}

// ProcessDocuments returns a sequence that processes docs one at a time as
// it is consumed. A document that fails is logged and skipped. Iteration
// stops early when ctx is done. With a checkpoint repository configured each
// document resumes from its stored checkpoint.
func (p *Pipeline) ProcessDocuments(ctx context.Context, docs []*core.DocumentInput, opts ProcessOptions) iter.Seq[*core.ProcessedDocument] {
	return func(yield func(*core.ProcessedDocument) bool) {
		for i, doc := range docs {
			if ctx.Err() != nil {
				return
			}
			docOpts := opts
			if opts.SessionID != "" {
				docOpts.SessionID = fmt.Sprintf("%s-%d", opts.SessionID, i)
			}
			var (
				result *core.ProcessedDocument
				err    error
			)
			if p.checkpoints != nil {
				result, err = p.ResumeFromCheckpoint(ctx, doc, docOpts)
			} else {
				result, err = p.ProcessDocument(ctx, doc, docOpts)
			}
			if err != nil {
				filename := ""
				if doc != nil {
					filename = doc.Filename
				}
				p.logger.Warn("skipping document", "index", i, "filename", filename, "err", err)
				continue
			}
			if !yield(result) {
				return
			}
		}
	}
}

func (p *Pipeline) run(ctx context.Context, doc *core.DocumentInput, partial *core.ProcessedDocument, opts ProcessOptions) (*core.ProcessedDocument, error) {
	start := time.Now()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, core.NewValidationError(core.ValidationStructure, "", core.ErrNilDocument)
	}
	if opts.ValidateInput {
		if err := p.validator.Validate(doc); err != nil {
			return nil, err
		}
	}

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	p.tracker.StartSession(sessionID, 0)

	result, totalTokens, err := p.prepare(doc, partial, opts)
	if err != nil {
		p.tracker.CancelSession(sessionID)
		return nil, err
	}
	p.tracker.SetTotal(sessionID, len(result.Chunks))

	var metrics embedding.BatchMetrics
	if opts.GenerateEmbeddings {
		p.tracker.UpdateProgress(sessionID, progress.Update{
			ChunksProcessed:     len(result.Embeddings),
			EmbeddingsGenerated: len(result.Embeddings),
			Stage:               progress.StageEmbedding,
		})
		if err := p.embedRemaining(ctx, sessionID, result, opts, &metrics); err != nil {
			p.tracker.CancelSession(sessionID)
			return nil, err
		}
	} else {
		p.tracker.UpdateProgress(sessionID, progress.Update{ChunksProcessed: len(result.Chunks)})
	}

	result.Processing = core.ProcessingStats{
		TotalTokens:    totalTokens,
		ChunkCount:     len(result.Chunks),
		EmbeddingCount: len(result.Embeddings),
		ProcessingTime: time.Since(start),
	}
	if opts.TrackCosts {
		model := p.embeddings.Model()
		result.Processing.Costs = &core.CostBreakdown{
			EmbeddingTokens: metrics.TotalTokens,
			EmbeddingCost:   embedding.CostFor(model, metrics.TotalTokens),
			Model:           model,
		}
	}

	if summary, ok := p.tracker.CompleteSession(sessionID); ok && !summary.Success {
		p.logger.Warn("document processed with errors", "documentID", result.DocumentID, "errors", summary.ErrorCount)
	}
	p.clearCheckpoint(ctx, result.DocumentID)

	p.logger.Info("processed document",
		"documentID", result.DocumentID,
		"filename", result.Filename,
		"chunks", result.Processing.ChunkCount,
		"embeddings", result.Processing.EmbeddingCount,
		"tokens", result.Processing.TotalTokens,
		"duration", result.Processing.ProcessingTime)

	if opts.ExtractInsights {
		p.submitInsights(result, opts.UserID)
	}
	return result, nil
}

// prepare builds the result shell, reusing partial chunks when they belong
// to doc. The token total is the document estimate on both paths, so overlap
// is never counted twice.
func (p *Pipeline) prepare(doc *core.DocumentInput, partial *core.ProcessedDocument, opts ProcessOptions) (*core.ProcessedDocument, int, error) {
	documentID := doc.DocumentID().String()
	result := &core.ProcessedDocument{
		DocumentID: documentID,
		Filename:   doc.Filename,
	}

	if partial != nil && len(partial.Chunks) > 0 {
		if partial.DocumentID != "" && partial.DocumentID != documentID {
			return nil, 0, fmt.Errorf("%w: partial is for document %s", ErrPartialMismatch, partial.DocumentID)
		}
		if err := checkPartial(partial); err != nil {
			return nil, 0, err
		}
		result.Chunks = partial.Chunks
		if opts.GenerateEmbeddings {
			result.Embeddings = partial.Embeddings
		}
		return result, core.EstimateTokens(doc.Content), nil
	}

	chunked, err := chunking.ChunkDocument(doc, opts.Chunking)
	if err != nil {
		return nil, 0, err
	}
	result.Chunks = chunked.Chunks
	return result, core.EstimateTokens(doc.Content), nil
}

// checkPartial verifies partial embeddings line up with a prefix of the chunks.
func checkPartial(partial *core.ProcessedDocument) error {
	if len(partial.Embeddings) > len(partial.Chunks) {
		return fmt.Errorf("%w: %d embeddings for %d chunks", ErrPartialMismatch, len(partial.Embeddings), len(partial.Chunks))
	}
	for i, e := range partial.Embeddings {
		if e.ID != partial.Chunks[i].ID {
			return fmt.Errorf("%w: embedding %d is for chunk %q, not %q", ErrPartialMismatch, i, e.ID, partial.Chunks[i].ID)
		}
	}
	return nil
}

// embedRemaining embeds chunks that have no embedding yet, one checkpoint
// group at a time, preserving chunk order.
func (p *Pipeline) embedRemaining(ctx context.Context, sessionID string, result *core.ProcessedDocument, opts ProcessOptions, metrics *embedding.BatchMetrics) error {
	policy := opts.retryPolicy(p.embeddings.RetryPolicy())
	batchOpts := embedding.BatchOptions{
		BatchSize:    opts.BatchSize,
		DisableCache: !opts.CacheEmbeddings,
		Retry:        &policy,
	}

	embeddings := make([]core.EmbeddingResult, len(result.Embeddings), len(result.Chunks))
	copy(embeddings, result.Embeddings)

	for start := len(embeddings); start < len(result.Chunks); start += p.checkpointInterval {
		group := result.Chunks[start:min(start+p.checkpointInterval, len(result.Chunks))]
		inputs := make([]core.EmbeddingInput, len(group))
		for i, chunk := range group {
			inputs[i] = core.EmbeddingInput{ID: chunk.ID, Text: chunk.Content, Metadata: chunk.Metadata}
		}

		embedded, groupMetrics, err := p.embeddings.GenerateBatchEmbeddingsWithMetrics(ctx, inputs, batchOpts)
		if groupMetrics != nil {
			metrics.TotalInputs += groupMetrics.TotalInputs
			metrics.CacheHits += groupMetrics.CacheHits
			metrics.ProviderCalls += groupMetrics.ProviderCalls
			metrics.TotalTokens += groupMetrics.TotalTokens
		}
		if err != nil {
			p.tracker.UpdateProgress(sessionID, progress.Update{Err: err})
			p.logger.Error("embedding failed",
				"documentID", result.DocumentID,
				"completed", len(embeddings),
				"total", len(result.Chunks),
				"err", err)
			return err
		}

		embeddings = append(embeddings, embedded...)
		result.Embeddings = embeddings
		p.tracker.UpdateProgress(sessionID, progress.Update{
			ChunksProcessed:     len(embeddings),
			EmbeddingsGenerated: len(embeddings),
		})
		p.saveCheckpoint(ctx, result)
	}
	result.Embeddings = embeddings
	return nil
}

func (p *Pipeline) saveCheckpoint(ctx context.Context, result *core.ProcessedDocument) {
	if p.checkpoints == nil || len(result.Embeddings) == len(result.Chunks) {
		return
	}
	err := p.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		DocumentID: result.DocumentID,
		Filename:   result.Filename,
		Chunks:     result.Chunks,
		Embeddings: result.Embeddings,
	})
	if err != nil {
		p.logger.Warn("failed to save checkpoint", "documentID", result.DocumentID, "err", err)
	}
}

func (p *Pipeline) clearCheckpoint(ctx context.Context, documentID string) {
	if p.checkpoints == nil {
		return
	}
	if err := p.checkpoints.DeleteCheckpoint(ctx, documentID); err != nil {
		p.logger.Warn("failed to delete checkpoint", "documentID", documentID, "err", err)
	}
}

// submitInsights queues insight extraction for a finished document.
func (p *Pipeline) submitInsights(doc *core.ProcessedDocument, userID string) {
	if p.insightProc == nil || len(doc.Chunks) == 0 {
		return
	}
	p.pending.Add(1)
	err := p.pool.Submit(func() {
		defer p.pending.Done()
		if err := p.insightProc.process(context.Background(), doc, userID); err != nil {
			p.logger.Error("error processing insights", "documentID", doc.DocumentID, "err", err)
		}
	})
	if err != nil {
		p.pending.Done()
		p.logger.Error("failed to queue insight extraction", "documentID", doc.DocumentID, "err", err)
	}
}

// Wait blocks until queued insight extraction has finished.
func (p *Pipeline) Wait() {
	p.pending.Wait()
}

// Release waits for queued work and releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.pending.Wait()
	if p.pool != nil {
		p.pool.Release()
	}
}

// CostEstimate is the projected cost of processing a document.
type CostEstimate struct {
	EstimatedChunks int
	EstimatedTokens int
	EstimatedCost   float64 // USD
	Model           string
}

// EstimateProcessingCost previews chunking for doc and prices the result
// without calling the provider.
func (p *Pipeline) EstimateProcessingCost(ctx context.Context, doc *core.DocumentInput, opts ProcessOptions) (*CostEstimate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, core.NewValidationError(core.ValidationStructure, "", core.ErrNilDocument)
	}
	if opts.ValidateInput {
		if err := p.validator.Validate(doc); err != nil {
			return nil, err
		}
	}
	if err := opts.Chunking.Validate(); err != nil {
		return nil, &core.ChunkingError{Filename: doc.Filename, ContentLength: len(doc.Content), Err: err}
	}

	preview := chunking.PreviewChunking(doc.Content, opts.Chunking)
	// Overlapping tokens are sent to the provider once per chunk they appear in.
	tokens := preview.EstimatedTokens + max(0, preview.EstimatedChunks-1)*opts.Chunking.OverlapTokens
	model := p.embeddings.Model()
	return &CostEstimate{
		EstimatedChunks: preview.EstimatedChunks,
		EstimatedTokens: tokens,
		EstimatedCost:   embedding.CostFor(model, tokens),
		Model:           model,
	}, nil
}
