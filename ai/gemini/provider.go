package gemini

import (
	"context"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/docembed/ai"
	"google.golang.org/api/option"
)

// Provider implements ai.AIProvider on a single Gemini client.
type Provider struct {
	client    *genai.Client
	embedder  *Embedder
	generator *Generator
	logger    *slog.Logger
}

// NewProvider creates a Gemini-backed provider. The client is shared by the
// embedder and generator and released by Close.
func NewProvider(ctx context.Context, config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, err
	}

	return &Provider{
		client: client,
		embedder: &Embedder{
			model:  client.EmbeddingModel(config.EmbeddingModel),
			logger: slog.Default().With("component", "gemini-embedder"),
		},
		generator: &Generator{
			client:    client,
			modelName: config.GeneratorModel,
			logger:    slog.Default().With("component", "gemini-generator"),
		},
		logger: slog.Default().With("component", "gemini-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Generator returns the text generation service.
func (p *Provider) Generator() ai.TextGenerator {
	return p.generator
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	p.logger.Debug("closing Gemini provider")
	return p.client.Close()
}
