// Package filestore keeps immutable image files addressed by opaque refs.
// Writes never overwrite: every Put allocates a new ref.
package filestore

import (
	"context"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"image-translator-backend/internal/models"
)

type Store interface {
	// Put stores data under a new ref derived from kind and owner.
	Put(ctx context.Context, kind models.FileKind, owner string, data []byte) (*models.StoredFile, error)
	// Get returns the bytes and metadata for ref, or models.ErrNotFound.
	Get(ctx context.Context, ref string) ([]byte, *models.StoredFile, error)
	// List returns the refs of kind created before the cutoff.
	List(ctx context.Context, kind models.FileKind, before time.Time) ([]string, error)
	// Delete removes ref. Deleting a missing ref is not an error.
	Delete(ctx context.Context, ref string) error
}

func extension(data []byte) string {
	if ext := mimetype.Detect(data).Extension(); ext != "" {
		return ext
	}
	return ".bin"
}
