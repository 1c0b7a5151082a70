// Package sessions keeps canvas editing timelines (layer stack plus undo
// pointer) so save and export can happen after the interactive session ends.
package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"image-translator-backend/internal/models"
)

// Backend persists sessions. Mutate must apply fn atomically with respect to
// other calls for the same id.
type Backend interface {
	Insert(ctx context.Context, s *models.CanvasSession) error
	Load(ctx context.Context, id string) (*models.CanvasSession, error)
	Mutate(ctx context.Context, id string, fn func(*models.CanvasSession) error) (*models.CanvasSession, error)
}

type Store struct {
	backend Backend
	now     func() time.Time
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend, now: time.Now}
}

func (s *Store) Create(ctx context.Context, baseImageRef, requestID string) (*models.CanvasSession, error) {
	if baseImageRef == "" {
		return nil, fmt.Errorf("%w: baseImageRef is required", models.ErrInvalidInput)
	}
	now := s.now().UTC()
	sess := &models.CanvasSession{
		ID:           uuid.New().String(),
		BaseImageRef: baseImageRef,
		RequestID:    requestID,
		LayerStack:   []models.Operation{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.backend.Insert(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess.Clone(), nil
}

func (s *Store) Snapshot(ctx context.Context, id string) (*models.CanvasSession, error) {
	return s.backend.Load(ctx, id)
}

// Push appends op and drops any redo tail.
func (s *Store) Push(ctx context.Context, id string, op models.Operation) (*models.CanvasSession, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	if op.Type == models.OpReset {
		return s.Reset(ctx, id)
	}
	return s.mutate(ctx, id, func(sess *models.CanvasSession) error {
		sess.Push(op)
		return nil
	})
}

func (s *Store) Undo(ctx context.Context, id string) (*models.CanvasSession, error) {
	return s.mutate(ctx, id, func(sess *models.CanvasSession) error {
		sess.Undo()
		return nil
	})
}

func (s *Store) Redo(ctx context.Context, id string) (*models.CanvasSession, error) {
	return s.mutate(ctx, id, func(sess *models.CanvasSession) error {
		sess.Redo()
		return nil
	})
}

// Reset empties the layer stack. Stored files referenced by the session,
// including exports, are left alone.
func (s *Store) Reset(ctx context.Context, id string) (*models.CanvasSession, error) {
	return s.mutate(ctx, id, func(sess *models.CanvasSession) error {
		sess.Reset()
		return nil
	})
}

// Save overwrites the layer stack with ops. Saving the same ops twice leaves
// the session unchanged.
func (s *Store) Save(ctx context.Context, id string, ops []models.Operation) (*models.CanvasSession, error) {
	for i, op := range ops {
		if op.Type == models.OpReset {
			return nil, fmt.Errorf("%w: operation %d: reset cannot be saved in a layer stack", models.ErrInvalidInput, i)
		}
		if err := op.Validate(); err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return s.mutate(ctx, id, func(sess *models.CanvasSession) error {
		sess.Replace(ops)
		return nil
	})
}

func (s *Store) AddExport(ctx context.Context, id, ref string) (*models.CanvasSession, error) {
	return s.mutate(ctx, id, func(sess *models.CanvasSession) error {
		sess.Exports = append(sess.Exports, ref)
		return nil
	})
}

func (s *Store) mutate(ctx context.Context, id string, fn func(*models.CanvasSession) error) (*models.CanvasSession, error) {
	return s.backend.Mutate(ctx, id, func(sess *models.CanvasSession) error {
		if err := fn(sess); err != nil {
			return err
		}
		sess.UpdatedAt = s.now().UTC()
		return nil
	})
}
