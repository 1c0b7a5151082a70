package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"image-translator-backend/internal/ledger"
	"image-translator-backend/internal/models"
)

// Ledger is a ledger.Ledger backed by Postgres. Every operation runs in one
// transaction holding the account row lock.
type Ledger struct {
	db      *sql.DB
	initial int64
}

func NewLedger(db *sql.DB, initialBalance int64) *Ledger {
	return &Ledger{db: db, initial: initialBalance}
}

type lockedAccount struct {
	balance, held int64
}

func (l *Ledger) inTx(ctx context.Context, accountKey string, fn func(tx *sql.Tx, acc *lockedAccount) error) error {
	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credit_accounts (account_key, balance) VALUES ($1, $2)
		ON CONFLICT (account_key) DO NOTHING
	`, accountKey, l.initial); err != nil {
		return fmt.Errorf("failed to ensure credit account: %w", err)
	}

	var acc lockedAccount
	if err := tx.QueryRowContext(ctx, `
		SELECT balance, held FROM credit_accounts WHERE account_key = $1 FOR UPDATE
	`, accountKey).Scan(&acc.balance, &acc.held); err != nil {
		return fmt.Errorf("failed to lock credit account: %w", err)
	}

	if err := fn(tx, &acc); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (l *Ledger) Authorize(ctx context.Context, accountKey, jobID string) (ledger.Token, error) {
	if accountKey == "" || jobID == "" {
		return ledger.Token{}, fmt.Errorf("%w: account key and job id are required", models.ErrInvalidInput)
	}
	token := ledger.Token{AccountKey: accountKey, JobID: jobID}

	err := l.inTx(ctx, accountKey, func(tx *sql.Tx, acc *lockedAccount) error {
		err := tx.QueryRowContext(ctx, `
			SELECT token_id FROM credit_holds WHERE account_key = $1 AND job_id = $2
		`, accountKey, jobID).Scan(&token.ID)
		if err == nil {
			token.Replayed = true
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check credit hold: %w", err)
		}

		if acc.balance < ledger.EraseCost {
			return fmt.Errorf("%w: balance %d", models.ErrInsufficientCredits, acc.balance)
		}
		token.ID = uuid.New().String()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO credit_holds (account_key, job_id, token_id) VALUES ($1, $2, $3)
		`, accountKey, jobID, token.ID); err != nil {
			return fmt.Errorf("failed to create credit hold: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE credit_accounts SET balance = balance - $1, held = held + $1 WHERE account_key = $2
		`, ledger.EraseCost, accountKey); err != nil {
			return fmt.Errorf("failed to hold credits: %w", err)
		}
		return nil
	})
	if err != nil {
		return ledger.Token{}, err
	}
	return token, nil
}

func (l *Ledger) Commit(ctx context.Context, token ledger.Token) error {
	return l.inTx(ctx, token.AccountKey, func(tx *sql.Tx, acc *lockedAccount) error {
		committed, err := lockHold(ctx, tx, token)
		if err != nil || committed {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE credit_holds SET committed = TRUE WHERE account_key = $1 AND job_id = $2
		`, token.AccountKey, token.JobID); err != nil {
			return fmt.Errorf("failed to commit credit hold: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE credit_accounts SET held = held - $1 WHERE account_key = $2
		`, ledger.EraseCost, token.AccountKey); err != nil {
			return fmt.Errorf("failed to update credit account: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO credit_history (account_key, job_id, amount, created_at) VALUES ($1, $2, $3, $4)
		`, token.AccountKey, token.JobID, -ledger.EraseCost, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to record credit history: %w", err)
		}
		return nil
	})
}

func (l *Ledger) Release(ctx context.Context, token ledger.Token) error {
	return l.inTx(ctx, token.AccountKey, func(tx *sql.Tx, acc *lockedAccount) error {
		committed, err := lockHold(ctx, tx, token)
		if err != nil {
			return err
		}
		if committed {
			return fmt.Errorf("%w: job %s is already charged", models.ErrConflict, token.JobID)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM credit_holds WHERE account_key = $1 AND job_id = $2
		`, token.AccountKey, token.JobID); err != nil {
			return fmt.Errorf("failed to delete credit hold: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE credit_accounts SET balance = balance + $1, held = held - $1 WHERE account_key = $2
		`, ledger.EraseCost, token.AccountKey); err != nil {
			return fmt.Errorf("failed to release credits: %w", err)
		}
		return nil
	})
}

func (l *Ledger) Balance(ctx context.Context, accountKey string) (*models.CreditAccount, error) {
	out := &models.CreditAccount{AccountKey: accountKey, History: []models.LedgerEntry{}}
	err := l.inTx(ctx, accountKey, func(tx *sql.Tx, acc *lockedAccount) error {
		out.Balance, out.Held = acc.balance, acc.held

		rows, err := tx.QueryContext(ctx, `
			SELECT job_id, amount, created_at FROM credit_history WHERE account_key = $1 ORDER BY id
		`, accountKey)
		if err != nil {
			return fmt.Errorf("failed to query credit history: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var e models.LedgerEntry
			if err := rows.Scan(&e.JobID, &e.Amount, &e.Timestamp); err != nil {
				return fmt.Errorf("failed to scan credit history: %w", err)
			}
			out.History = append(out.History, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Ledger) Grant(ctx context.Context, accountKey string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: grant amount must be positive", models.ErrInvalidInput)
	}
	return l.inTx(ctx, accountKey, func(tx *sql.Tx, acc *lockedAccount) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE credit_accounts SET balance = balance + $1 WHERE account_key = $2
		`, amount, accountKey); err != nil {
			return fmt.Errorf("failed to grant credits: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO credit_history (account_key, job_id, amount, created_at) VALUES ($1, $2, $3, $4)
		`, accountKey, ledger.GrantJobID, amount, time.Now().UTC()); err != nil {
			return fmt.Errorf("failed to record credit history: %w", err)
		}
		return nil
	})
}

// lockHold reports whether the token's hold is committed.
func lockHold(ctx context.Context, tx *sql.Tx, token ledger.Token) (bool, error) {
	var (
		tokenID   string
		committed bool
	)
	err := tx.QueryRowContext(ctx, `
		SELECT token_id, committed FROM credit_holds WHERE account_key = $1 AND job_id = $2
	`, token.AccountKey, token.JobID).Scan(&tokenID, &committed)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && tokenID != token.ID) {
		return false, fmt.Errorf("%w: no hold for job %s", models.ErrNotFound, token.JobID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to read credit hold: %w", err)
	}
	return committed, nil
}

var _ ledger.Ledger = (*Ledger)(nil)
