package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/docembed/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(host string) *ai.Config {
	return ai.NewConfig(
		ai.WithHost(host),
		ai.WithAPIKey("test-key"),
		ai.WithEmbeddingModel("test-embed"),
		ai.WithGeneratorModel("test-chat"),
		ai.WithDimensions(3),
	)
}

func embeddingHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"))
		var payload struct {
			Input []string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		type datum struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]datum, len(payload.Input))
		for i := range payload.Input {
			data[i] = datum{Object: "embedding", Embedding: []float32{float32(i), 1, 2}, Index: i}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "test-embed",
			"usage":  map[string]int{"prompt_tokens": 4, "total_tokens": 4},
		})
	}
}

func errorHandler(status int, code string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "failure for test", "type": code, "code": code},
		})
	}
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	srv := httptest.NewServer(embeddingHandler(t))
	defer srv.Close()

	embedder, err := newEmbedder(testConfig(srv.URL), srv.Client())
	require.NoError(t, err)

	texts := []string{"first\nline", "second"}
	vectors, err := embedder.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 1, 2}, vectors[1])

	// The caller's slice is not rewritten by newline stripping.
	assert.Equal(t, "first\nline", texts[0])

	single, err := embedder.EmbedText(context.Background(), "solo")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 2}, single)
}

func TestEmbedder_ClassifiesStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		code      string
		wantKind  ai.ErrorKind
		retryable bool
	}{
		{"quota exhausted", http.StatusTooManyRequests, "insufficient_quota", ai.KindQuotaExceeded, false},
		{"rate limited", http.StatusTooManyRequests, "rate_limit_exceeded", ai.KindRateLimited, true},
		{"bad key", http.StatusUnauthorized, "invalid_api_key", ai.KindUnauthorized, false},
		{"forbidden", http.StatusForbidden, "", ai.KindForbidden, false},
		{"bad request", http.StatusBadRequest, "invalid_request_error", ai.KindInvalidInput, false},
		{"overloaded", http.StatusServiceUnavailable, "", ai.KindUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(errorHandler(tt.status, tt.code))
			defer srv.Close()

			embedder, err := newEmbedder(testConfig(srv.URL), srv.Client())
			require.NoError(t, err)

			_, err = embedder.EmbedTexts(context.Background(), []string{"x"})
			require.Error(t, err)

			var perr *ai.ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.wantKind, perr.Kind)
			assert.Equal(t, tt.status, perr.Status)
			assert.Equal(t, tt.retryable, ai.IsRetryable(err))
		})
	}
}

func TestEmbedder_ClassifiesNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(embeddingHandler(t))
	url := srv.URL
	srv.Close()

	embedder, err := newEmbedder(testConfig(url), nil)
	require.NoError(t, err)

	_, err = embedder.EmbedTexts(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, ai.KindNetwork, ai.KindOf(err))
	assert.True(t, ai.IsRetryable(err))
}

func TestEmbedder_ClassifiesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	embedder, err := newEmbedder(testConfig(srv.URL), srv.Client())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = embedder.EmbedTexts(ctx, []string{"x"})
	require.Error(t, err)
	assert.Equal(t, ai.KindTimeout, ai.KindOf(err))
}

func TestGenerator_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test-chat",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": `[{"insight":"x","confidence":0.9}]`},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 5, "completion_tokens": 5, "total_tokens": 10},
		})
	}))
	defer srv.Close()

	generator, err := newGenerator(testConfig(srv.URL), srv.Client())
	require.NoError(t, err)

	out, err := generator.Generate(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)
	assert.Equal(t, `[{"insight":"x","confidence":0.9}]`, out)
}

func TestGenerator_ClassifiesStatus(t *testing.T) {
	srv := httptest.NewServer(errorHandler(http.StatusPaymentRequired, "billing_not_active"))
	defer srv.Close()

	generator, err := newGenerator(testConfig(srv.URL), srv.Client())
	require.NoError(t, err)

	_, err = generator.Generate(context.Background(), "", "prompt")
	require.Error(t, err)
	assert.Equal(t, ai.KindQuotaExceeded, ai.KindOf(err))
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider(testConfig("http://localhost:1"))
	require.NoError(t, err)
	assert.NotNil(t, provider.Embedder())
	assert.NotNil(t, provider.Generator())
	assert.NoError(t, provider.Close())

	_, err = NewProvider(ai.NewConfig(ai.WithEmbeddingModel("")))
	assert.Error(t, err)
}

func TestStatusKind(t *testing.T) {
	assert.Equal(t, ai.KindQuotaExceeded, statusKind(http.StatusTooManyRequests, "insufficient_quota", ""))
	assert.Equal(t, ai.KindRateLimited, statusKind(http.StatusTooManyRequests, "", ""))
	assert.Equal(t, ai.KindTimeout, statusKind(http.StatusGatewayTimeout, "", ""))
	assert.Equal(t, ai.KindUnknown, statusKind(418, "", ""))
}
