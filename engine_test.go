package docembed

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docembed/ai/mock"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/progress"
)

const testDims = 16

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.UserID = "tester"
	cfg.AI.Dimensions = testDims
	cfg.Chunking.MaxTokens = 60
	cfg.Chunking.OverlapTokens = 10
	cfg.Chunking.MinTokens = 5
	cfg.Pipeline.SweepInterval = Duration{}
	return cfg
}

func openTestEngine(t *testing.T, opts ...Option) (*Engine, *mock.MockProvider) {
	t.Helper()
	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = testDims
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockGenerator())

	engine, err := Open(context.Background(), testConfig(), append(opts, WithProvider(provider))...)
	require.NoError(t, err)
	return engine, provider
}

func sampleDocument() *core.DocumentInput {
	var b strings.Builder
	for i := range 12 {
		b.WriteString("Quarterly revenue grew steadily across every region this year. ")
		if i%3 == 0 {
			b.WriteString("Customer retention improved after the support team expanded.\n")
		}
	}
	return &core.DocumentInput{Filename: "report.md", Content: b.String()}
}

func TestOpen_RequiresConfig(t *testing.T) {
	_, err := Open(context.Background(), nil)
	assert.ErrorIs(t, err, ErrConfigRequired)
}

func TestOpen_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Search.MaxHits = 0
	_, err := Open(context.Background(), cfg, WithProvider(mock.NewMockProvider()))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOpen_WiresComponents(t *testing.T) {
	engine, provider := openTestEngine(t)

	assert.NotNil(t, engine.Pipeline())
	assert.NotNil(t, engine.Embeddings())
	assert.NotNil(t, engine.Insights())
	assert.NotNil(t, engine.Searcher())
	assert.NotNil(t, engine.Tracker())
	assert.NotNil(t, engine.InsightRepository())
	assert.NotNil(t, engine.CheckpointRepository())
	assert.NotNil(t, engine.Embeddings().Cache())
	assert.Equal(t, testDims, engine.Embeddings().Dimensions())

	require.NoError(t, engine.Close())
	assert.True(t, provider.Closed())
}

func TestOpen_CacheDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Disabled = true
	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = testDims

	engine, err := Open(context.Background(), cfg,
		WithProvider(mock.NewMockProviderWithServices(embedder, mock.NewMockGenerator())))
	require.NoError(t, err)
	defer engine.Close()

	assert.Nil(t, engine.Embeddings().Cache())
}

func TestEngine_ProcessAndSearch(t *testing.T) {
	var mu sync.Mutex
	var snapshots []progress.Snapshot
	engine, _ := openTestEngine(t, WithObserver(func(s progress.Snapshot) {
		mu.Lock()
		snapshots = append(snapshots, s)
		mu.Unlock()
	}))
	defer engine.Close()

	ctx := context.Background()
	doc := sampleDocument()
	processed, err := engine.ProcessDocument(ctx, doc)
	require.NoError(t, err)
	require.NotEmpty(t, processed.Chunks)
	assert.Len(t, processed.Embeddings, len(processed.Chunks))
	require.NotNil(t, processed.Processing.Costs)

	// Checkpoint is cleared on success
	cp, err := engine.CheckpointRepository().LoadCheckpoint(ctx, doc.DocumentID().String())
	require.NoError(t, err)
	assert.Nil(t, cp)

	mu.Lock()
	assert.NotEmpty(t, snapshots)
	mu.Unlock()

	// Extraction runs in the background
	engine.Pipeline().Wait()
	stored, err := engine.InsightRepository().GetInsightsByDocument(ctx, processed.DocumentID)
	require.NoError(t, err)
	require.NotEmpty(t, stored)
	for _, rec := range stored {
		assert.Equal(t, "tester", rec.UserID)
		assert.Len(t, rec.Embedding, testDims)
	}

	results, err := engine.Searcher().FindSimilar(ctx, "tester", stored[0].Content, 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, stored[0].Content, results[0].Record.Content)

	results, err = engine.Searcher().FindSimilar(ctx, "someone-else", stored[0].Content, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_ProcessDocuments(t *testing.T) {
	engine, _ := openTestEngine(t)
	defer engine.Close()

	second := sampleDocument()
	second.Filename = "second.md"
	docs := []*core.DocumentInput{sampleDocument(), {Filename: "empty.md"}, second}

	var names []string
	for processed := range engine.ProcessDocuments(context.Background(), docs) {
		assert.Len(t, processed.Embeddings, len(processed.Chunks))
		names = append(names, processed.Filename)
	}
	assert.Equal(t, []string{"report.md", "second.md"}, names)
}

func TestEngine_CloseWaitsForExtraction(t *testing.T) {
	engine, provider := openTestEngine(t)
	generator := provider.GetMockGenerator()

	_, err := engine.ProcessDocument(context.Background(), sampleDocument())
	require.NoError(t, err)
	require.NoError(t, engine.Close())
	assert.Positive(t, generator.CallCount())
}
