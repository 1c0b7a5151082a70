// Package events publishes job lifecycle notifications.
package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	TranslationSubmitted = "translation.submitted"
	TranslationDone      = "translation.done"
	TranslationFailed    = "translation.failed"
	EraseSubmitted       = "erase.submitted"
	EraseDone            = "erase.done"
	EraseFailed          = "erase.failed"
)

type Event struct {
	Type      string    `json:"type"`
	RequestID string    `json:"requestId"`
	JobID     string    `json:"jobId,omitempty"`
	Status    string    `json:"status"`
	FileRef   string    `json:"fileRef,omitempty"`
	ErrorKind string    `json:"errorKind,omitempty"`
	Time      time.Time `json:"time"`
}

// Key is the partition key: events of one entity stay ordered.
func (e Event) Key() string {
	if e.JobID != "" {
		return e.JobID
	}
	return e.RequestID
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// LogPublisher writes events to the log. It is used when no broker is
// configured.
type LogPublisher struct {
	log logrus.FieldLogger
}

func NewLogPublisher(log logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{log: log.WithField("component", "events")}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.log.WithFields(logrus.Fields{
		"event":      e.Type,
		"request_id": e.RequestID,
		"job_id":     e.JobID,
		"status":     e.Status,
		"error_kind": e.ErrorKind,
	}).Info("job event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
