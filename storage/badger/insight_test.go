package badger

import (
	"context"
	"testing"

	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInsightRepo(t *testing.T) storage.InsightRepository {
	t.Helper()
	insights, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		insights.Close()
		backend.Close()
	})
	return insights
}

func insight(doc, user, content string, confidence float64, vec ...float32) *core.InsightRecord {
	return &core.InsightRecord{
		DocumentID:      doc,
		UserID:          user,
		Content:         content,
		Embedding:       vec,
		ConfidenceScore: confidence,
		SourceChunkIDs:  []string{"chunk-1"},
	}
}

func TestInsertInsights_AssignsIDsAndTimestamps(t *testing.T) {
	repo := newTestInsightRepo(t)
	ctx := context.Background()

	records, err := repo.InsertInsights(ctx,
		insight("doc-1", "u1", "first", 0.9, 1, 0),
		insight("doc-1", "u1", "second", 0.8, 0, 1),
	)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.NotZero(t, records[0].Id)
	assert.NotZero(t, records[1].Id)
	assert.NotEqual(t, records[0].Id, records[1].Id)
	assert.False(t, records[0].InsertedAt.IsZero())
}

func TestGetInsightsByDocument_OrderedByConfidence(t *testing.T) {
	repo := newTestInsightRepo(t)
	ctx := context.Background()

	_, err := repo.InsertInsights(ctx,
		insight("doc-1", "u1", "low", 0.5),
		insight("doc-1", "u1", "high", 0.95),
		insight("doc-2", "u1", "other", 0.99),
		insight("doc-1", "u1", "mid", 0.7),
	)
	require.NoError(t, err)

	records, err := repo.GetInsightsByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "high", records[0].Content)
	assert.Equal(t, "mid", records[1].Content)
	assert.Equal(t, "low", records[2].Content)
	assert.Equal(t, []string{"chunk-1"}, records[0].SourceChunkIDs)
}

func TestGetInsightsByDocument_Unknown(t *testing.T) {
	repo := newTestInsightRepo(t)

	records, err := repo.GetInsightsByDocument(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteInsightsByDocument(t *testing.T) {
	repo := newTestInsightRepo(t)
	ctx := context.Background()

	_, err := repo.InsertInsights(ctx,
		insight("doc-1", "u1", "a", 0.9, 1, 0),
		insight("doc-1", "u1", "b", 0.9, 1, 0),
		insight("doc-2", "u1", "c", 0.9, 1, 0),
	)
	require.NoError(t, err)

	removed, err := repo.DeleteInsightsByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	remaining, err := repo.GetInsightsByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// Deleted records no longer match searches
	matches, err := repo.FindSimilar(ctx, "", []float32{1, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "c", matches[0].Record.Content)
}

func TestFindSimilar_FiltersAndOrders(t *testing.T) {
	repo := newTestInsightRepo(t)
	ctx := context.Background()

	_, err := repo.InsertInsights(ctx,
		insight("doc-1", "u1", "exact", 0.9, 1, 0),
		insight("doc-1", "u1", "close", 0.9, 0.9, 0.1),
		insight("doc-1", "u1", "orthogonal", 0.9, 0, 1),
		insight("doc-1", "u2", "other user", 0.9, 1, 0),
		insight("doc-1", "u1", "no vector", 0.9),
	)
	require.NoError(t, err)

	matches, err := repo.FindSimilar(ctx, "u1", []float32{1, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "exact", matches[0].Record.Content)
	assert.Equal(t, "close", matches[1].Record.Content)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestFindSimilar_AllUsersAndLimit(t *testing.T) {
	repo := newTestInsightRepo(t)
	ctx := context.Background()

	_, err := repo.InsertInsights(ctx,
		insight("doc-1", "u1", "a", 0.9, 1, 0),
		insight("doc-1", "u2", "b", 0.9, 1, 0.1),
		insight("doc-1", "u3", "c", 0.9, 1, 0.2),
	)
	require.NoError(t, err)

	matches, err := repo.FindSimilar(ctx, "", []float32{1, 0}, 0, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].Record.Content)
}

func TestFindSimilar_InvalidLimit(t *testing.T) {
	repo := newTestInsightRepo(t)

	_, err := repo.FindSimilar(context.Background(), "", []float32{1}, 0, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestInsertInsights_ClosedBackend(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	repo, err := NewInsightRepository(backend)
	require.NoError(t, err)
	require.NoError(t, repo.Close())
	require.NoError(t, backend.Close())

	_, err = repo.InsertInsights(context.Background(), insight("d", "u", "x", 0.9))
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
