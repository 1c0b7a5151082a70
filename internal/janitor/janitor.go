// Package janitor periodically removes stored files older than a retention
// window. It only reads metadata encoded in file refs.
package janitor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"image-translator-backend/internal/filestore"
	"image-translator-backend/internal/models"
)

var kinds = []models.FileKind{models.FileOriginal, models.FileEraseResult, models.FileExport}

type Janitor struct {
	files     filestore.Store
	retention time.Duration
	interval  time.Duration
	log       logrus.FieldLogger
	now       func() time.Time
}

func New(files filestore.Store, retention, interval time.Duration, log logrus.FieldLogger) *Janitor {
	return &Janitor{
		files:     files,
		retention: retention,
		interval:  interval,
		log:       log.WithField("component", "janitor"),
		now:       time.Now,
	}
}

// Enabled reports whether a retention window is configured.
func (j *Janitor) Enabled() bool {
	return j.retention > 0 && j.interval > 0
}

// Start runs a cleanup every interval until ctx is done.
func (j *Janitor) Start(ctx context.Context) error {
	if !j.Enabled() {
		return nil
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.log.WithFields(logrus.Fields{"retention": j.retention.String(), "interval": j.interval.String()}).Info("janitor started")
	for {
		select {
		case <-ctx.Done():
			j.log.Info("janitor stopped")
			return nil
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce deletes every file older than the retention window and returns how
// many were removed and how many could not be.
func (j *Janitor) RunOnce(ctx context.Context) (deleted, failed int) {
	cutoff := j.now().Add(-j.retention)

	for _, kind := range kinds {
		refs, err := j.files.List(ctx, kind, cutoff)
		if err != nil {
			j.log.WithError(err).WithField("kind", kind).Error("failed to list expired files")
			failed++
			continue
		}
		for _, ref := range refs {
			if ctx.Err() != nil {
				j.log.Info("cleanup interrupted")
				return deleted, failed
			}
			if err := j.files.Delete(ctx, ref); err != nil {
				j.log.WithError(err).WithField("file_ref", ref).Warn("failed to delete expired file")
				failed++
				continue
			}
			deleted++
		}
	}

	if deleted > 0 || failed > 0 {
		j.log.WithFields(logrus.Fields{"deleted": deleted, "failed": failed}).Info("cleanup completed")
	}
	return deleted, failed
}
