package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcsurf2822/ragpipe/internal/core/domain"
)

func TestDocumentStoreReplaceChunks(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()

	require.NoError(t, store.ReplaceChunks(ctx, "f1", []domain.Chunk{
		{ID: "c1", FileID: "f1", Content: "one"},
		{ID: "c2", FileID: "f1", Content: "two"},
	}))

	n, err := store.CountChunks(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Replacement is total, not additive.
	require.NoError(t, store.ReplaceChunks(ctx, "f1", []domain.Chunk{
		{ID: "c3", FileID: "f1", Content: "three"},
	}))
	n, err = store.CountChunks(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "three", store.Chunks("f1")[0].Content)
}

func TestDocumentStoreReplaceWithEmptyRemovesFile(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()

	require.NoError(t, store.ReplaceChunks(ctx, "f1", []domain.Chunk{{ID: "c1", FileID: "f1"}}))
	require.NoError(t, store.ReplaceChunks(ctx, "f1", nil))

	ids, err := store.ListFileIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDocumentStoreDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewDocumentStore()

	require.NoError(t, store.ReplaceChunks(ctx, "f1", []domain.Chunk{{ID: "c1", FileID: "f1"}}))
	require.NoError(t, store.DeleteByFileID(ctx, "f1"))
	require.NoError(t, store.DeleteByFileID(ctx, "f1"))
	require.NoError(t, store.DeleteByFileID(ctx, "never-existed"))

	n, err := store.CountChunks(ctx, "f1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStateStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStateStore()

	_, err := store.Load(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	state := domain.NewPipelineState("p1", domain.PipelineLocalFiles)
	state.KnownFiles["f1"] = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	state.LastCheckTime = time.Date(2024, 5, 1, 12, 5, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, state))

	// Mutating the original after Save must not affect the stored copy.
	state.KnownFiles["f2"] = time.Now()

	loaded, err := store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, loaded.KnownFiles, 1)
	assert.Equal(t, domain.PipelineLocalFiles, loaded.PipelineType)
	assert.True(t, loaded.LastCheckTime.Equal(state.LastCheckTime))
}

func TestStateStoreSaveValidation(t *testing.T) {
	store := NewStateStore()
	assert.ErrorIs(t, store.Save(context.Background(), nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.Save(context.Background(), &domain.PipelineState{}), domain.ErrInvalidInput)
}

func TestStateStoreHeartbeat(t *testing.T) {
	store := NewStateStore()
	require.NoError(t, store.Heartbeat(context.Background(), "p1", "online"))
	assert.Equal(t, "online", store.LastHeartbeat("p1"))
	require.NoError(t, store.Heartbeat(context.Background(), "p1", "offline"))
	assert.Equal(t, "offline", store.LastHeartbeat("p1"))
}
