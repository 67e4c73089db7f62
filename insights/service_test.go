package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/ai/mock"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/embedding"
	"github.com/poiesic/docembed/storage"
	"github.com/poiesic/docembed/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 8

func fastPolicy() embedding.RetryPolicy {
	return embedding.RetryPolicy{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

type fixture struct {
	service   *Service
	generator *mock.MockGenerator
	repo      storage.InsightRepository
}

func newFixture(t *testing.T, repo storage.InsightRepository) *fixture {
	t.Helper()
	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = testDims
	embeddings, err := embedding.NewService(embedder,
		embedding.WithDimensions(testDims),
		embedding.WithRetryPolicy(fastPolicy()))
	require.NoError(t, err)
	t.Cleanup(embeddings.Close)

	if repo == nil {
		insights, _, backend, err := badger.NewMemoryRepositories()
		require.NoError(t, err)
		t.Cleanup(func() {
			insights.Close()
			backend.Close()
		})
		repo = insights
	}

	generator := mock.NewMockGenerator()
	service, err := NewService(generator, embeddings, repo, WithRetryPolicy(fastPolicy()))
	require.NoError(t, err)
	return &fixture{service: service, generator: generator, repo: repo}
}

func makeChunks(n int) []core.TextChunk {
	chunks := make([]core.TextChunk, n)
	for i := range chunks {
		chunks[i] = core.TextChunk{
			ID:      fmt.Sprintf("chunk-%d", i),
			Index:   i,
			Content: fmt.Sprintf("Chunk number %d describes a separate finding.", i),
		}
	}
	return chunks
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	assert.ErrorIs(t, err, ErrGeneratorRequired)
	_, err = NewService(mock.NewMockGenerator(), nil, nil)
	assert.ErrorIs(t, err, ErrEmbeddingsRequired)
}

func TestExtractInsights_SegmentsOfThree(t *testing.T) {
	f := newFixture(t, nil)

	result, err := f.service.ExtractInsights(context.Background(), "doc-1", "user-1", makeChunks(7), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, f.generator.CallCount())
	assert.Equal(t, 7, result.ChunksProcessed)
	assert.Positive(t, result.TotalInsights)
	require.NotEmpty(t, result.Insights)

	for i := 1; i < len(result.Insights); i++ {
		assert.GreaterOrEqual(t, result.Insights[i-1].ConfidenceScore, result.Insights[i].ConfidenceScore)
	}
	for _, rec := range result.Insights {
		assert.NotZero(t, rec.Id)
		assert.Equal(t, "doc-1", rec.DocumentID)
		assert.Equal(t, "user-1", rec.UserID)
		assert.Len(t, rec.Embedding, testDims)
		assert.NotEmpty(t, rec.SourceChunkIDs)
	}

	stored, err := f.repo.GetInsightsByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Len(t, stored, len(result.Insights))
}

func TestExtractInsights_FilterSortTruncate(t *testing.T) {
	f := newFixture(t, nil)
	f.generator.GenerateFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return `[
			{"insight":"Low confidence claim.","confidence":0.3},
			{"insight":"Middle confidence claim.","confidence":0.7},
			{"insight":"High confidence claim.","confidence":0.95},
			{"insight":"Fairly sure claim.","confidence":0.8}
		]`, nil
	}

	opts := DefaultOptions()
	opts.MaxInsights = 2
	result, err := f.service.ExtractInsights(context.Background(), "doc-1", "u", makeChunks(2), opts)
	require.NoError(t, err)

	assert.Equal(t, 4, result.TotalInsights)
	require.Len(t, result.Insights, 2)
	assert.Equal(t, "High confidence claim.", result.Insights[0].Content)
	assert.Equal(t, "Fairly sure claim.", result.Insights[1].Content)
	assert.Equal(t, []string{"chunk-0", "chunk-1"}, result.Insights[0].SourceChunkIDs)
}

func TestExtractInsights_FailedSegmentIsSkipped(t *testing.T) {
	f := newFixture(t, nil)
	f.generator.GenerateFunc = func(ctx context.Context, system, prompt string) (string, error) {
		if strings.Contains(prompt, "Chunk number 3") {
			return "", ai.NewProviderError("mock", ai.KindInvalidInput, errors.New("rejected"))
		}
		return `[{"insight":"A claim from a healthy segment.","confidence":0.9}]`, nil
	}

	result, err := f.service.ExtractInsights(context.Background(), "doc-1", "u", makeChunks(6), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, result.ChunksProcessed)
	assert.Len(t, result.Insights, 1)
}

func TestExtractInsights_UnparseableSegmentIsSkipped(t *testing.T) {
	f := newFixture(t, nil)
	f.generator.GenerateFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return "Nothing here.", nil
	}

	result, err := f.service.ExtractInsights(context.Background(), "doc-1", "u", makeChunks(3), DefaultOptions())
	require.NoError(t, err)
	assert.Zero(t, result.ChunksProcessed)
	assert.Empty(t, result.Insights)
}

func TestExtractInsights_RetriesTransientGeneration(t *testing.T) {
	f := newFixture(t, nil)
	var calls atomic.Int32
	f.generator.GenerateFunc = func(ctx context.Context, system, prompt string) (string, error) {
		if calls.Add(1) == 1 {
			return "", ai.NewProviderError("mock", ai.KindRateLimited, errors.New("slow down"))
		}
		return `[{"insight":"Recovered after a retry.","confidence":0.9}]`, nil
	}

	result, err := f.service.ExtractInsights(context.Background(), "doc-1", "u", makeChunks(1), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, result.Insights, 1)
}

func TestExtractInsights_NoChunks(t *testing.T) {
	f := newFixture(t, nil)

	result, err := f.service.ExtractInsights(context.Background(), "doc-1", "u", nil, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, result.Insights)
	assert.Zero(t, f.generator.CallCount())
}

func TestExtractInsights_InvalidOptions(t *testing.T) {
	f := newFixture(t, nil)
	opts := DefaultOptions()
	opts.SegmentSize = 0

	_, err := f.service.ExtractInsights(context.Background(), "doc-1", "u", makeChunks(1), opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

type failingRepo struct {
	storage.InsightRepository
	attempts atomic.Int32
}

func (r *failingRepo) InsertInsights(ctx context.Context, records ...*core.InsightRecord) ([]*core.InsightRecord, error) {
	r.attempts.Add(1)
	return nil, errors.New("disk full")
}

func TestExtractInsights_StorageErrorCarriesContext(t *testing.T) {
	repo := &failingRepo{}
	f := newFixture(t, repo)
	f.generator.GenerateFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return `[{"insight":"One claim.","confidence":0.9},{"insight":"Another claim.","confidence":0.8}]`, nil
	}

	_, err := f.service.ExtractInsights(context.Background(), "doc-7", "u", makeChunks(1), DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStorage)

	var se *core.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "doc-7", se.DocumentID)
	assert.Equal(t, 2, se.Rows)
	assert.Equal(t, int32(fastPolicy().MaxAttempts), repo.attempts.Load())
}

func TestWithMerger(t *testing.T) {
	f := newFixture(t, nil)
	f.generator.GenerateFunc = func(ctx context.Context, system, prompt string) (string, error) {
		return `[{"insight":"Keep me.","confidence":0.9},{"insight":"Drop me.","confidence":0.9}]`, nil
	}
	WithMerger(func(ctx context.Context, in []core.ExtractedInsight) ([]core.ExtractedInsight, error) {
		return in[:1], nil
	})(f.service)

	result, err := f.service.ExtractInsights(context.Background(), "doc-1", "u", makeChunks(1), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result.Insights, 1)
	assert.Equal(t, "Keep me.", result.Insights[0].Content)
}

func TestPassthroughMerge(t *testing.T) {
	in := []core.ExtractedInsight{{Content: "a", ConfidenceScore: 0.5}}
	out, err := PassthroughMerge(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
