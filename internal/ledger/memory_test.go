package ledger_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"image-translator-backend/internal/ledger"
	"image-translator-backend/internal/models"
)

func TestMemory_AuthorizeCommit(t *testing.T) {
	l := ledger.NewMemory(2)
	ctx := t.Context()

	tok, err := l.Authorize(ctx, "acct", "job-1")
	require.NoError(t, err)
	assert.False(t, tok.Replayed)

	acc, err := l.Balance(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.Balance)
	assert.Equal(t, int64(1), acc.Held)
	assert.Empty(t, acc.History)

	require.NoError(t, l.Commit(ctx, tok))
	require.NoError(t, l.Commit(ctx, tok))

	acc, err = l.Balance(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.Balance)
	assert.Equal(t, int64(0), acc.Held)
	require.Len(t, acc.History, 1)
	assert.Equal(t, "job-1", acc.History[0].JobID)
	assert.Equal(t, -ledger.EraseCost, acc.History[0].Amount)
}

func TestMemory_SameJobNotChargedTwice(t *testing.T) {
	l := ledger.NewMemory(5)
	ctx := t.Context()

	first, err := l.Authorize(ctx, "acct", "job-1")
	require.NoError(t, err)
	require.NoError(t, l.Commit(ctx, first))

	again, err := l.Authorize(ctx, "acct", "job-1")
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.ID, again.ID)

	acc, err := l.Balance(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, int64(4), acc.Balance)
	assert.Len(t, acc.History, 1)
}

func TestMemory_ReleaseRestoresExactly(t *testing.T) {
	l := ledger.NewMemory(1)
	ctx := t.Context()

	tok, err := l.Authorize(ctx, "acct", "job-1")
	require.NoError(t, err)
	require.NoError(t, l.Release(ctx, tok))

	acc, err := l.Balance(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.Balance)
	assert.Equal(t, int64(0), acc.Held)
	assert.Empty(t, acc.History)

	assert.ErrorIs(t, l.Release(ctx, tok), models.ErrNotFound)

	// The job id can be authorized again after a release.
	tok, err = l.Authorize(ctx, "acct", "job-1")
	require.NoError(t, err)
	assert.False(t, tok.Replayed)
	require.NoError(t, l.Commit(ctx, tok))
	assert.ErrorIs(t, l.Release(ctx, tok), models.ErrConflict)
}

func TestMemory_InsufficientCredits(t *testing.T) {
	l := ledger.NewMemory(0)

	_, err := l.Authorize(t.Context(), "acct", "job-1")
	assert.ErrorIs(t, err, models.ErrInsufficientCredits)

	require.NoError(t, l.Grant(t.Context(), "acct", 3))
	_, err = l.Authorize(t.Context(), "acct", "job-1")
	assert.NoError(t, err)

	assert.ErrorIs(t, l.Grant(t.Context(), "acct", 0), models.ErrInvalidInput)
}

func TestMemory_ConcurrentAuthorizeNeverOverdraws(t *testing.T) {
	l := ledger.NewMemory(10)
	ctx := t.Context()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := l.Authorize(ctx, "acct", fmt.Sprintf("job-%d", i)); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, models.ErrInsufficientCredits)
			}
		}(i)
	}
	wg.Wait()

	acc, err := l.Balance(ctx, "acct")
	require.NoError(t, err)
	assert.Equal(t, 10, granted)
	assert.Equal(t, int64(0), acc.Balance)
}
