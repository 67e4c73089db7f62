package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/docembed/ai"
)

// Embedder implements ai.Embedder with Gemini batch embedding.
type Embedder struct {
	model  *genai.EmbeddingModel
	logger *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		perr := classify(ctx, err)
		e.logger.Error("failed to generate embedding", "err", perr)
		return nil, perr
	}
	if resp.Embedding == nil {
		return nil, ai.NewProviderError(providerName, ai.KindUnknown, ai.ErrEmptyResponse)
	}
	return resp.Embedding.Values, nil
}

// EmbedTexts batches all texts in one request.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	batch := e.model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := e.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		perr := classify(ctx, err)
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", perr)
		return nil, perr
	}

	return batchVectors(resp, len(texts))
}

// batchVectors unpacks a batch response, which must hold one embedding per input.
func batchVectors(resp *genai.BatchEmbedContentsResponse, want int) ([][]float32, error) {
	if len(resp.Embeddings) != want {
		return nil, ai.NewProviderError(providerName, ai.KindUnknown,
			fmt.Errorf("%w: got %d, want %d", ai.ErrCountMismatch, len(resp.Embeddings), want))
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		out = append(out, emb.Values)
	}
	return out, nil
}
