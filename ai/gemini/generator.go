package gemini

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/poiesic/docembed/ai"
)

// Generator implements ai.TextGenerator with a Gemini generative model.
type Generator struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

var _ ai.TextGenerator = (*Generator)(nil)

// Generate returns the concatenated text parts of the first candidate.
func (g *Generator) Generate(ctx context.Context, system, prompt string) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	m.SetTemperature(0.2)
	if system != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		perr := classify(ctx, err)
		g.logger.Error("failed to generate content", "err", perr)
		return "", perr
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ai.NewProviderError(providerName, ai.KindUnknown, ai.ErrEmptyResponse)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}
