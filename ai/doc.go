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

// Package ai provides abstractions for the AI services docembed depends on.
//
// The package is designed around three interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - TextGenerator: Produces completions from a system and user prompt
//   - AIProvider: Aggregates both for convenient initialization
//
// # Error Classification
//
// Adapters classify every provider failure into an ErrorKind and return it
// as a *ProviderError. Retry decisions elsewhere in docembed are made with
// IsRetryable, never by matching error text:
//
//	if ai.IsRetryable(err) {
//	    // back off and try again
//	}
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs through langchaingo
//   - ai/gemini: Google Gemini through generative-ai-go
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors (openai.NewProvider, gemini.NewProvider) return the
// ai.AIProvider interface. Mock constructors return concrete types so tests
// can inject behavior and assert call counts.
//
//	provider, err := openai.NewProvider(ai.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vec, err := provider.Embedder().EmbedText(ctx, "Hello world")
package ai
