package models

import "time"

// Envelope mirrors the {Code, Message, Data} body the canvas client expects
// from the upload endpoints.
type Envelope struct {
	Code    int         `json:"Code"`
	Message string      `json:"Message"`
	Data    interface{} `json:"Data"`
}

type SubmitResponse struct {
	RequestID string    `json:"requestId"`
	Status    JobStatus `json:"status"`
}

type EraseSubmitResponse struct {
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
}

type FileRefResponse struct {
	URL     string `json:"Url"`
	FileRef string `json:"FileRef"`
}

type SaveResponse struct {
	SessionID   string    `json:"sessionId"`
	UndoPointer int       `json:"undoPointer"`
	Length      int       `json:"length"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CreditsResponse struct {
	AccountKey string        `json:"accountKey"`
	Balance    int64         `json:"balance"`
	Held       int64         `json:"held"`
	History    []LedgerEntry `json:"history"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}
