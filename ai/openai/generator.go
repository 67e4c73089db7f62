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

package openai

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/poiesic/docembed/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// defaultTemperature keeps extraction output stable across runs.
const defaultTemperature = 0.2

// Generator implements ai.TextGenerator using OpenAI-compatible chat APIs.
type Generator struct {
	client llms.Model
	logger *slog.Logger
}

var _ ai.TextGenerator = (*Generator)(nil)

func newGenerator(config *ai.Config, httpClient *http.Client) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.GeneratorHost),
		openai.WithToken(tokenOrPlaceholder(config.APIKey)),
		openai.WithModel(config.GeneratorModel),
		openai.WithHTTPClient(newRecordingClient(httpClient)),
	)
	if err != nil {
		return nil, err
	}

	return &Generator{
		client: client,
		logger: slog.Default().With("component", "openai-generator"),
	}, nil
}

// NewGenerator creates a new text generator using the provided configuration.
//
// Returns ai.TextGenerator interface to enforce abstraction.
func NewGenerator(config *ai.Config) (ai.TextGenerator, error) {
	return newGenerator(config, nil)
}

// Generate returns the model's completion for prompt.
func (g *Generator) Generate(ctx context.Context, system, prompt string) (string, error) {
	content := make([]llms.MessageContent, 0, 2)
	if system != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	callCtx, obs := observe(ctx)
	response, err := g.client.GenerateContent(callCtx, content, llms.WithTemperature(defaultTemperature))
	if err != nil {
		perr := classify(ctx, obs, err)
		g.logger.Error("failed to generate content", "err", perr)
		return "", perr
	}

	if len(response.Choices) < 1 {
		return "", ai.NewProviderError(providerName, ai.KindUnknown, ai.ErrEmptyResponse)
	}

	return response.Choices[0].Content, nil
}
