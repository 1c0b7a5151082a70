package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"image-translator-backend/internal/models"
)

const uniqueViolation = "23505"

// RequestStore persists translation requests and erase jobs in Postgres.
// Updates are compare-and-set on the stored status.
type RequestStore struct {
	db *sql.DB
}

func NewRequestStore(db *sql.DB) *RequestStore {
	return &RequestStore{db: db}
}

func (s *RequestStore) CreateTranslation(ctx context.Context, req *models.TranslationRequest) error {
	result, errInfo, err := encodeResult(req.Result, req.Error)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO translation_requests (
			id, account_key, source_image_ref, source_url, source_language, target_language,
			upstream_task_id, status, result, error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		req.ID, req.AccountKey, req.SourceImageRef, req.SourceURL, req.SourceLanguage, req.TargetLanguage,
		req.UpstreamTaskID, req.Status, result, errInfo, req.CreatedAt, req.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: request %s already exists", models.ErrConflict, req.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create translation request: %w", err)
	}
	return nil
}

func (s *RequestStore) GetTranslation(ctx context.Context, id string) (*models.TranslationRequest, error) {
	var (
		req             models.TranslationRequest
		result, errInfo []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_key, source_image_ref, source_url, source_language, target_language,
		       upstream_task_id, status, result, error, created_at, updated_at
		FROM translation_requests
		WHERE id = $1
	`, id).Scan(
		&req.ID, &req.AccountKey, &req.SourceImageRef, &req.SourceURL, &req.SourceLanguage, &req.TargetLanguage,
		&req.UpstreamTaskID, &req.Status, &result, &errInfo, &req.CreatedAt, &req.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: request %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get translation request: %w", err)
	}
	if len(result) > 0 {
		req.Result = &models.TranslationResult{}
		if err := json.Unmarshal(result, req.Result); err != nil {
			return nil, fmt.Errorf("failed to decode translation result: %w", err)
		}
	}
	if req.Error, err = decodeError(errInfo); err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *RequestStore) UpdateTranslation(ctx context.Context, req *models.TranslationRequest, from models.JobStatus) error {
	if !from.CanTransitionTo(req.Status) {
		return fmt.Errorf("%w: request %s cannot move from %s to %s", models.ErrConflict, req.ID, from, req.Status)
	}
	result, errInfo, err := encodeResult(req.Result, req.Error)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE translation_requests
		SET upstream_task_id = $1, status = $2, result = $3, error = $4, updated_at = $5
		WHERE id = $6 AND status = $7
	`, req.UpstreamTaskID, req.Status, result, errInfo, req.UpdatedAt, req.ID, from)
	if err != nil {
		return fmt.Errorf("failed to update translation request: %w", err)
	}
	return s.checkCAS(ctx, res, "translation_requests", req.ID)
}

func (s *RequestStore) CreateErase(ctx context.Context, job *models.EraseJob) error {
	region, err := json.Marshal(job.Region.Rects)
	if err != nil {
		return fmt.Errorf("failed to encode region: %w", err)
	}
	_, errInfo, err := encodeResult(nil, job.Error)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO erase_jobs (
			id, request_id, account_key, region, upstream_task_id, status,
			result_image_ref, error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		job.ID, job.RequestID, job.AccountKey, string(region), job.UpstreamTaskID, job.Status,
		job.ResultImageRef, errInfo, job.CreatedAt, job.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: erase job %s already exists", models.ErrConflict, job.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create erase job: %w", err)
	}
	return nil
}

func (s *RequestStore) GetErase(ctx context.Context, id string) (*models.EraseJob, error) {
	var (
		job             models.EraseJob
		region, errInfo []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, request_id, account_key, region, upstream_task_id, status,
		       result_image_ref, error, created_at, updated_at
		FROM erase_jobs
		WHERE id = $1
	`, id).Scan(
		&job.ID, &job.RequestID, &job.AccountKey, &region, &job.UpstreamTaskID, &job.Status,
		&job.ResultImageRef, &errInfo, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: erase job %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get erase job: %w", err)
	}
	if len(region) > 0 {
		if err := json.Unmarshal(region, &job.Region.Rects); err != nil {
			return nil, fmt.Errorf("failed to decode region: %w", err)
		}
	}
	if job.Error, err = decodeError(errInfo); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *RequestStore) UpdateErase(ctx context.Context, job *models.EraseJob, from models.JobStatus) error {
	if !from.CanTransitionTo(job.Status) {
		return fmt.Errorf("%w: erase job %s cannot move from %s to %s", models.ErrConflict, job.ID, from, job.Status)
	}
	_, errInfo, err := encodeResult(nil, job.Error)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE erase_jobs
		SET upstream_task_id = $1, status = $2, result_image_ref = $3, error = $4, updated_at = $5
		WHERE id = $6 AND status = $7
	`, job.UpstreamTaskID, job.Status, job.ResultImageRef, errInfo, job.UpdatedAt, job.ID, from)
	if err != nil {
		return fmt.Errorf("failed to update erase job: %w", err)
	}
	return s.checkCAS(ctx, res, "erase_jobs", job.ID)
}

// checkCAS turns a zero-row update into NotFound or Conflict.
func (s *RequestStore) checkCAS(ctx context.Context, res sql.Result, table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM "+pq.QuoteIdentifier(table)+" WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check %s: %w", table, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	return fmt.Errorf("%w: %s was updated concurrently", models.ErrConflict, id)
}

// encodeResult returns JSONB parameters, NULL when the value is absent.
func encodeResult(result *models.TranslationResult, info *models.ErrorInfo) (sql.NullString, sql.NullString, error) {
	var r, e sql.NullString
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return r, e, fmt.Errorf("failed to encode result: %w", err)
		}
		r = sql.NullString{String: string(data), Valid: true}
	}
	if info != nil {
		data, err := json.Marshal(info)
		if err != nil {
			return r, e, fmt.Errorf("failed to encode error: %w", err)
		}
		e = sql.NullString{String: string(data), Valid: true}
	}
	return r, e, nil
}

func decodeError(data []byte) (*models.ErrorInfo, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var info models.ErrorInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to decode error info: %w", err)
	}
	return &info, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
