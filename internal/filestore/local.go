package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"image-translator-backend/internal/models"
)

// LocalStore persists files under a directory on the local filesystem.
type LocalStore struct {
	basePath string
	now      func() time.Time
}

func NewLocalStore(basePath string) (*LocalStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("filestore: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: ensure base path: %w", err)
	}
	return &LocalStore{basePath: basePath, now: time.Now}, nil
}

func (s *LocalStore) Put(ctx context.Context, kind models.FileKind, owner string, data []byte) (*models.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown file kind %q", models.ErrInvalidInput, kind)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", models.ErrInvalidInput)
	}

	now := s.now()
	ref := NewRef(kind, owner, extension(data), now)
	fullPath := s.path(ref.String())
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("filestore: ensure directory: %w", err)
	}

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("filestore: create file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(fullPath)
		return nil, fmt.Errorf("filestore: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("filestore: close file: %w", err)
	}

	return describe(ref, data, now.UTC()), nil
}

func (s *LocalStore) Get(ctx context.Context, ref string) ([]byte, *models.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	parsed, err := ParseRef(ref)
	if err != nil {
		return nil, nil, err
	}
	fullPath := s.path(parsed.String())
	info, err := os.Stat(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: file %s", models.ErrNotFound, parsed)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("filestore: stat file: %w", err)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, nil, fmt.Errorf("filestore: read file: %w", err)
	}
	return data, describe(parsed, data, info.ModTime().UTC()), nil
}

func (s *LocalStore) List(ctx context.Context, kind models.FileKind, before time.Time) ([]string, error) {
	root := s.path(string(kind))
	var refs []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.ModTime().Before(before) {
			return nil
		}
		rel, err := filepath.Rel(s.basePath, p)
		if err != nil {
			return err
		}
		refs = append(refs, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("filestore: list %s: %w", kind, err)
	}
	return refs, nil
}

func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	parsed, err := ParseRef(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(s.path(parsed.String())); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filestore: delete file: %w", err)
	}
	return nil
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}
