package badger

import (
	"context"
	"testing"

	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCheckpointRepo(t *testing.T) storage.CheckpointRepository {
	t.Helper()
	insights, checkpoints, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		insights.Close()
		backend.Close()
	})
	return checkpoints
}

func TestCheckpoint_SaveLoadDelete(t *testing.T) {
	repo := newTestCheckpointRepo(t)
	ctx := context.Background()

	cp := &core.Checkpoint{
		DocumentID: "doc-1",
		Filename:   "notes.md",
		Chunks: []core.TextChunk{
			{ID: "c0", Index: 0, Content: "hello world", TokenCount: 3},
			{ID: "c1", Index: 1, Content: "second chunk", TokenCount: 3},
		},
		Embeddings: []core.EmbeddingResult{
			{ID: "c0", Embedding: []float32{0.1, 0.2}, TokenCount: 3, Text: "hello world"},
		},
	}
	require.NoError(t, repo.SaveCheckpoint(ctx, cp))
	assert.False(t, cp.UpdatedAt.IsZero())

	loaded, err := repo.LoadCheckpoint(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "notes.md", loaded.Filename)
	assert.Len(t, loaded.Chunks, 2)
	require.Len(t, loaded.Embeddings, 1)
	assert.Equal(t, []float32{0.1, 0.2}, loaded.Embeddings[0].Embedding)
	assert.Len(t, loaded.Partial().Embeddings, 1)

	require.NoError(t, repo.DeleteCheckpoint(ctx, "doc-1"))
	loaded, err = repo.LoadCheckpoint(ctx, "doc-1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestCheckpoint_SaveReplaces(t *testing.T) {
	repo := newTestCheckpointRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{DocumentID: "doc-1", Filename: "a.txt"}))
	require.NoError(t, repo.SaveCheckpoint(ctx, &core.Checkpoint{DocumentID: "doc-1", Filename: "b.txt"}))

	loaded, err := repo.LoadCheckpoint(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "b.txt", loaded.Filename)
}

func TestCheckpoint_LoadMissing(t *testing.T) {
	repo := newTestCheckpointRepo(t)

	loaded, err := repo.LoadCheckpoint(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestCheckpoint_DeleteMissing(t *testing.T) {
	repo := newTestCheckpointRepo(t)
	assert.NoError(t, repo.DeleteCheckpoint(context.Background(), "nope"))
}
