package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"image-translator-backend/internal/models"
)

type holdState int

const (
	stateHeld holdState = iota
	stateCommitted
)

type hold struct {
	tokenID string
	state   holdState
}

type account struct {
	mu      sync.Mutex
	balance int64
	held    int64
	history []models.LedgerEntry
	holds   map[string]*hold
}

// Memory is a process-local Ledger. Each account is guarded by its own mutex.
type Memory struct {
	mu       sync.Mutex
	accounts map[string]*account
	initial  int64
	now      func() time.Time
}

func NewMemory(initialBalance int64) *Memory {
	return &Memory{
		accounts: make(map[string]*account),
		initial:  initialBalance,
		now:      time.Now,
	}
}

func (m *Memory) account(key string) *account {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[key]
	if !ok {
		acc = &account{balance: m.initial, holds: make(map[string]*hold)}
		m.accounts[key] = acc
	}
	return acc
}

func (m *Memory) Authorize(ctx context.Context, accountKey, jobID string) (Token, error) {
	if accountKey == "" || jobID == "" {
		return Token{}, fmt.Errorf("%w: account key and job id are required", models.ErrInvalidInput)
	}
	acc := m.account(accountKey)
	acc.mu.Lock()
	defer acc.mu.Unlock()

	if h, ok := acc.holds[jobID]; ok {
		return Token{ID: h.tokenID, AccountKey: accountKey, JobID: jobID, Replayed: true}, nil
	}
	if acc.balance < EraseCost {
		return Token{}, fmt.Errorf("%w: balance %d", models.ErrInsufficientCredits, acc.balance)
	}

	acc.balance -= EraseCost
	acc.held += EraseCost
	h := &hold{tokenID: uuid.New().String(), state: stateHeld}
	acc.holds[jobID] = h
	return Token{ID: h.tokenID, AccountKey: accountKey, JobID: jobID}, nil
}

func (m *Memory) Commit(ctx context.Context, token Token) error {
	acc := m.account(token.AccountKey)
	acc.mu.Lock()
	defer acc.mu.Unlock()

	h, err := lookup(acc, token)
	if err != nil {
		return err
	}
	if h.state == stateCommitted {
		return nil
	}
	h.state = stateCommitted
	acc.held -= EraseCost
	acc.history = append(acc.history, models.LedgerEntry{JobID: token.JobID, Amount: -EraseCost, Timestamp: m.now().UTC()})
	return nil
}

func (m *Memory) Release(ctx context.Context, token Token) error {
	acc := m.account(token.AccountKey)
	acc.mu.Lock()
	defer acc.mu.Unlock()

	h, err := lookup(acc, token)
	if err != nil {
		return err
	}
	if h.state == stateCommitted {
		return fmt.Errorf("%w: job %s is already charged", models.ErrConflict, token.JobID)
	}
	delete(acc.holds, token.JobID)
	acc.held -= EraseCost
	acc.balance += EraseCost
	return nil
}

func (m *Memory) Balance(ctx context.Context, accountKey string) (*models.CreditAccount, error) {
	acc := m.account(accountKey)
	acc.mu.Lock()
	defer acc.mu.Unlock()

	return &models.CreditAccount{
		AccountKey: accountKey,
		Balance:    acc.balance,
		Held:       acc.held,
		History:    append([]models.LedgerEntry{}, acc.history...),
	}, nil
}

func (m *Memory) Grant(ctx context.Context, accountKey string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: grant amount must be positive", models.ErrInvalidInput)
	}
	acc := m.account(accountKey)
	acc.mu.Lock()
	defer acc.mu.Unlock()

	acc.balance += amount
	acc.history = append(acc.history, models.LedgerEntry{JobID: GrantJobID, Amount: amount, Timestamp: m.now().UTC()})
	return nil
}

func lookup(acc *account, token Token) (*hold, error) {
	h, ok := acc.holds[token.JobID]
	if !ok || h.tokenID != token.ID {
		return nil, fmt.Errorf("%w: no hold for job %s", models.ErrNotFound, token.JobID)
	}
	return h, nil
}

var _ Ledger = (*Memory)(nil)
