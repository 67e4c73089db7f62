package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/poiesic/docembed/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config, httpClient *http.Client) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(tokenOrPlaceholder(config.APIKey)),
		openai.WithEmbeddingModel(config.EmbeddingModel),
		openai.WithHTTPClient(newRecordingClient(httpClient)),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config, nil)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	callCtx, obs := observe(ctx)
	// langchaingo strips newlines in place; keep the caller's slice intact.
	vectors, err := e.embedder.EmbedDocuments(callCtx, slices.Clone(texts))
	if err != nil {
		perr := classify(ctx, obs, err)
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", perr)
		return nil, perr
	}

	if len(vectors) != len(texts) {
		return nil, ai.NewProviderError(providerName, ai.KindUnknown,
			fmt.Errorf("%w: got %d, want %d", ai.ErrCountMismatch, len(vectors), len(texts)))
	}

	return vectors, nil
}

// tokenOrPlaceholder returns key, or "none" for local servers that do not authenticate.
func tokenOrPlaceholder(key string) string {
	if key == "" {
		return "none"
	}
	return key
}
