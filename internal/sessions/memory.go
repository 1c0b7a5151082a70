package sessions

import (
	"context"
	"fmt"
	"sync"

	"image-translator-backend/internal/models"
)

type MemoryBackend struct {
	mu       sync.Mutex
	sessions map[string]*models.CanvasSession
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string]*models.CanvasSession)}
}

func (b *MemoryBackend) Insert(ctx context.Context, s *models.CanvasSession) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.sessions[s.ID]; ok {
		return fmt.Errorf("%w: session %s already exists", models.ErrConflict, s.ID)
	}
	b.sessions[s.ID] = s.Clone()
	return nil
}

func (b *MemoryBackend) Load(ctx context.Context, id string) (*models.CanvasSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", models.ErrNotFound, id)
	}
	return s.Clone(), nil
}

func (b *MemoryBackend) Mutate(ctx context.Context, id string, fn func(*models.CanvasSession) error) (*models.CanvasSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", models.ErrNotFound, id)
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	b.sessions[id] = next
	return next.Clone(), nil
}
