package sessions_test

import (
	"encoding/json"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image-translator-backend/internal/models"
	"image-translator-backend/internal/sessions"
)

func textOp(s string) models.Operation {
	return models.Operation{Type: models.OpAddText, Text: &models.TextLayer{Text: s, Box: models.Rect{Width: 10, Height: 10}}}
}

func backends(t *testing.T) map[string]sessions.Backend {
	t.Helper()
	out := map[string]sessions.Backend{"memory": sessions.NewMemoryBackend()}
	if url := os.Getenv("TEST_REDIS_URL"); url != "" {
		opts, err := redis.ParseURL(url)
		require.NoError(t, err)
		client := redis.NewClient(opts)
		t.Cleanup(func() { client.Close() })
		out["redis"] = sessions.NewRedisBackend(client, time.Minute)
	}
	return out
}

func TestStore_UndoRedo(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store := sessions.NewStore(backend)
			ctx := t.Context()

			sess, err := store.Create(ctx, "original/2025-01-01/r1/a.png", "r1")
			require.NoError(t, err)

			// Undo at zero is a no-op.
			sess, err = store.Undo(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, 0, sess.UndoPointer)

			for _, s := range []string{"a", "b", "c"} {
				sess, err = store.Push(ctx, sess.ID, textOp(s))
				require.NoError(t, err)
			}
			assert.Equal(t, 3, sess.UndoPointer)

			sess, err = store.Undo(ctx, sess.ID)
			require.NoError(t, err)
			sess, err = store.Undo(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, sess.UndoPointer)
			assert.True(t, sess.CanRedo())

			sess, err = store.Redo(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, 2, sess.UndoPointer)

			// Pushing after an undo drops the redo tail.
			sess, err = store.Push(ctx, sess.ID, textOp("d"))
			require.NoError(t, err)
			require.Len(t, sess.LayerStack, 3)
			assert.Equal(t, "d", sess.LayerStack[2].Text.Text)
			assert.False(t, sess.CanRedo())

			sess, err = store.Redo(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, 3, sess.UndoPointer)
		})
	}
}

func TestStore_PointerStaysInRange(t *testing.T) {
	store := sessions.NewStore(sessions.NewMemoryBackend())
	ctx := t.Context()
	rng := rand.New(rand.NewSource(42))

	sess, err := store.Create(ctx, "original/2025-01-01/r1/a.png", "")
	require.NoError(t, err)

	for i := 0; i < 300; i++ {
		switch rng.Intn(3) {
		case 0:
			sess, err = store.Push(ctx, sess.ID, textOp("x"))
		case 1:
			sess, err = store.Undo(ctx, sess.ID)
		default:
			sess, err = store.Redo(ctx, sess.ID)
		}
		require.NoError(t, err)
		require.GreaterOrEqual(t, sess.UndoPointer, 0)
		require.LessOrEqual(t, sess.UndoPointer, len(sess.LayerStack))
	}
}

func TestStore_ResetKeepsExports(t *testing.T) {
	store := sessions.NewStore(sessions.NewMemoryBackend())
	ctx := t.Context()

	sess, err := store.Create(ctx, "original/2025-01-01/r1/a.png", "r1")
	require.NoError(t, err)
	_, err = store.Push(ctx, sess.ID, textOp("a"))
	require.NoError(t, err)
	_, err = store.AddExport(ctx, sess.ID, "export/2025-01-01/s/e.png")
	require.NoError(t, err)

	sess, err = store.Push(ctx, sess.ID, models.Operation{Type: models.OpReset})
	require.NoError(t, err)
	assert.NotNil(t, sess.LayerStack)
	assert.Empty(t, sess.LayerStack)
	assert.Equal(t, 0, sess.UndoPointer)
	assert.Equal(t, []string{"export/2025-01-01/s/e.png"}, sess.Exports)

	snap, err := store.Snapshot(ctx, sess.ID)
	require.NoError(t, err)
	body, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"layerStack":[]`)
}

func TestStore_SaveIsIdempotent(t *testing.T) {
	store := sessions.NewStore(sessions.NewMemoryBackend())
	ctx := t.Context()

	sess, err := store.Create(ctx, "original/2025-01-01/r1/a.png", "r1")
	require.NoError(t, err)

	ops := []models.Operation{textOp("a"), {Type: models.OpErase, JobID: "job-1"}}
	first, err := store.Save(ctx, sess.ID, ops)
	require.NoError(t, err)
	second, err := store.Save(ctx, sess.ID, ops)
	require.NoError(t, err)

	assert.Equal(t, first.LayerStack, second.LayerStack)
	assert.Equal(t, 2, second.UndoPointer)

	_, err = store.Save(ctx, "missing", ops)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = store.Save(ctx, sess.ID, []models.Operation{{Type: "paint"}})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestStore_Errors(t *testing.T) {
	store := sessions.NewStore(sessions.NewMemoryBackend())
	ctx := t.Context()

	_, err := store.Create(ctx, "", "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = store.Snapshot(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = store.Undo(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)

	sess, err := store.Create(ctx, "original/2025-01-01/r1/a.png", "")
	require.NoError(t, err)
	_, err = store.Push(ctx, sess.ID, models.Operation{Type: models.OpErase})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
