package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image-translator-backend/internal/models"
	"image-translator-backend/internal/repository"
)

func TestMemoryStore_TranslationLifecycle(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := t.Context()

	req := &models.TranslationRequest{ID: "r1", Status: models.StatusPending}
	require.NoError(t, store.CreateTranslation(ctx, req))
	assert.ErrorIs(t, store.CreateTranslation(ctx, req), models.ErrConflict)

	// Mutating the caller's copy does not leak into the store.
	req.Status = models.StatusFailed
	got, err := store.GetTranslation(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	got.Status = models.StatusProcessing
	require.NoError(t, store.UpdateTranslation(ctx, got, models.StatusPending))

	stale := got.Clone()
	stale.Status = models.StatusDone
	assert.ErrorIs(t, store.UpdateTranslation(ctx, stale, models.StatusPending), models.ErrConflict)

	got.Status = models.StatusDone
	require.NoError(t, store.UpdateTranslation(ctx, got, models.StatusProcessing))

	got.Status = models.StatusFailed
	assert.ErrorIs(t, store.UpdateTranslation(ctx, got, models.StatusDone), models.ErrConflict)

	_, err = store.GetTranslation(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStore_EraseBackwardsRejected(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := t.Context()

	job := &models.EraseJob{ID: "j1", RequestID: "r1", Status: models.StatusProcessing}
	require.NoError(t, store.CreateErase(ctx, job))

	job.Status = models.StatusPending
	assert.ErrorIs(t, store.UpdateErase(ctx, job, models.StatusProcessing), models.ErrConflict)

	job.Status = models.StatusDone
	job.ResultImageRef = "erase_result/2025-01-01/j1/x.png"
	require.NoError(t, store.UpdateErase(ctx, job, models.StatusProcessing))

	got, err := store.GetErase(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, got.Status)
	assert.Equal(t, job.ResultImageRef, got.ResultImageRef)

	assert.ErrorIs(t, store.UpdateErase(ctx, &models.EraseJob{ID: "nope"}, models.StatusPending), models.ErrNotFound)
}
