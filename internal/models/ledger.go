package models

import "time"

// LedgerEntry is one committed debit (negative) or grant (positive).
type LedgerEntry struct {
	JobID     string    `json:"jobId"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// CreditAccount is a per-key balance with its append-only history.
type CreditAccount struct {
	AccountKey string        `json:"accountKey"`
	Balance    int64         `json:"balance"`
	Held       int64         `json:"held"`
	History    []LedgerEntry `json:"history"`
}
