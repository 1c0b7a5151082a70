package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"image-translator-backend/internal/imageutil"
	"image-translator-backend/internal/models"
)

// StoreEraseResult keeps client-produced bytes for an erase job as a new
// StoredFile. Each call writes a new revision; earlier ones stay readable.
func (o *Orchestrator) StoreEraseResult(ctx context.Context, accountKey, jobID string, data []byte) (*models.StoredFile, error) {
	job, err := o.repo.GetErase(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := owned(job.AccountKey, accountKey, "erase job", jobID); err != nil {
		return nil, err
	}
	if _, _, err := imageutil.Detect(data); err != nil {
		return nil, err
	}
	stored, err := o.files.Put(ctx, models.FileEraseResult, jobID, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store erase result: %w", err)
	}
	o.log.WithFields(logrus.Fields{"job_id": jobID, "file_ref": stored.Ref}).Info("erase result stored")
	return stored, nil
}

// StoreExport keeps a final composed image for a session and records its ref
// on the session.
func (o *Orchestrator) StoreExport(ctx context.Context, sessionID string, data []byte) (*models.StoredFile, error) {
	if _, err := o.sessions.Snapshot(ctx, sessionID); err != nil {
		return nil, err
	}
	if _, _, err := imageutil.Detect(data); err != nil {
		return nil, err
	}
	stored, err := o.files.Put(ctx, models.FileExport, sessionID, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store export: %w", err)
	}
	if _, err := o.sessions.AddExport(ctx, sessionID, stored.Ref); err != nil {
		return nil, fmt.Errorf("failed to record export: %w", err)
	}
	o.log.WithFields(logrus.Fields{"session_id": sessionID, "file_ref": stored.Ref}).Info("export stored")
	return stored, nil
}

// GetFile reads a stored file by ref.
func (o *Orchestrator) GetFile(ctx context.Context, ref string) ([]byte, *models.StoredFile, error) {
	return o.files.Get(ctx, ref)
}
