// Package ledger accounts for erase credits with a two-phase
// authorize/commit/release protocol keyed by erase job id.
package ledger

import (
	"context"

	"image-translator-backend/internal/models"
)

// EraseCost is the number of credits one erase call consumes.
const EraseCost int64 = 1

// GrantJobID marks history entries that added credits.
const GrantJobID = "grant"

// Token is an authorization hold for one job. Replayed is set when the job
// was already authorized earlier and nothing was charged this time.
type Token struct {
	ID         string `json:"tokenId"`
	AccountKey string `json:"accountKey"`
	JobID      string `json:"jobId"`
	Replayed   bool   `json:"replayed"`
}

type Ledger interface {
	// Authorize holds EraseCost credits for jobID. It fails with
	// models.ErrInsufficientCredits when the balance cannot cover it.
	Authorize(ctx context.Context, accountKey, jobID string) (Token, error)
	// Commit turns the hold into a debit in the history. Committing twice is
	// a no-op.
	Commit(ctx context.Context, token Token) error
	// Release returns held credits. Releasing a committed token fails with
	// models.ErrConflict.
	Release(ctx context.Context, token Token) error
	Balance(ctx context.Context, accountKey string) (*models.CreditAccount, error)
	Grant(ctx context.Context, accountKey string, amount int64) error
}
