// Package repository holds the in-memory request and erase job store used when
// no database is configured.
package repository

import (
	"context"
	"fmt"
	"sync"

	"image-translator-backend/internal/models"
)

type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*models.TranslationRequest
	jobs     map[string]*models.EraseJob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[string]*models.TranslationRequest),
		jobs:     make(map[string]*models.EraseJob),
	}
}

func (s *MemoryStore) CreateTranslation(ctx context.Context, req *models.TranslationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[req.ID]; ok {
		return fmt.Errorf("%w: request %s already exists", models.ErrConflict, req.ID)
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

func (s *MemoryStore) GetTranslation(ctx context.Context, id string) (*models.TranslationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: request %s", models.ErrNotFound, id)
	}
	return req.Clone(), nil
}

// UpdateTranslation replaces the stored record if its status is still from
// and the move to req.Status is allowed.
func (s *MemoryStore) UpdateTranslation(ctx context.Context, req *models.TranslationRequest, from models.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.requests[req.ID]
	if !ok {
		return fmt.Errorf("%w: request %s", models.ErrNotFound, req.ID)
	}
	if cur.Status != from || !from.CanTransitionTo(req.Status) {
		return fmt.Errorf("%w: request %s is %s", models.ErrConflict, req.ID, cur.Status)
	}
	s.requests[req.ID] = req.Clone()
	return nil
}

func (s *MemoryStore) CreateErase(ctx context.Context, job *models.EraseJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("%w: erase job %s already exists", models.ErrConflict, job.ID)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryStore) GetErase(ctx context.Context, id string) (*models.EraseJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: erase job %s", models.ErrNotFound, id)
	}
	return job.Clone(), nil
}

func (s *MemoryStore) UpdateErase(ctx context.Context, job *models.EraseJob, from models.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.jobs[job.ID]
	if !ok {
		return fmt.Errorf("%w: erase job %s", models.ErrNotFound, job.ID)
	}
	if cur.Status != from || !from.CanTransitionTo(job.Status) {
		return fmt.Errorf("%w: erase job %s is %s", models.ErrConflict, job.ID, cur.Status)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}
