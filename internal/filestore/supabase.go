package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	storage "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"
	"image-translator-backend/internal/models"
)

const listPageSize = 1000

// SupabaseStore keeps files in a Supabase Storage bucket using the ref as the
// object path.
type SupabaseStore struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

func NewSupabaseStore(supabaseURL, serviceRoleKey, bucket string) (*SupabaseStore, error) {
	if bucket == "" {
		return nil, errors.New("filestore: bucket is required")
	}
	client, err := supabase.NewClient(strings.TrimSuffix(supabaseURL, "/"), serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("filestore: failed to create supabase client: %w", err)
	}
	return &SupabaseStore{client: client.Storage, bucket: bucket, now: time.Now}, nil
}

func (s *SupabaseStore) Put(ctx context.Context, kind models.FileKind, owner string, data []byte) (*models.StoredFile, error) {
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
	meta := describe(ref, data, now.UTC())

	contentType := meta.ContentType
	upsert := false
	_, err := s.client.UploadFile(s.bucket, ref.String(), bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}
	return meta, nil
}

func (s *SupabaseStore) Get(ctx context.Context, ref string) ([]byte, *models.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	parsed, err := ParseRef(ref)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.client.DownloadFile(s.bucket, parsed.String())
	if err != nil {
		if isNotFound(err) {
			return nil, nil, fmt.Errorf("%w: file %s", models.ErrNotFound, parsed)
		}
		return nil, nil, fmt.Errorf("failed to download file: %w", err)
	}
	return data, describe(parsed, data, parsed.Day), nil
}

// List walks kind/<day>/<owner>/ and returns refs whose day is before the
// cutoff's day. Bucket objects carry no reliable timestamps, so age is taken
// from the ref.
func (s *SupabaseStore) List(ctx context.Context, kind models.FileKind, before time.Time) ([]string, error) {
	cutoff := before.UTC().Truncate(24 * time.Hour)

	days, err := s.names(string(kind))
	if err != nil {
		return nil, err
	}
	var refs []string
	for _, day := range days {
		t, err := time.Parse(dateLayout, day)
		if err != nil || !t.Before(cutoff) {
			continue
		}
		owners, err := s.names(path.Join(string(kind), day))
		if err != nil {
			return nil, err
		}
		for _, owner := range owners {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			dir := path.Join(string(kind), day, owner)
			files, err := s.names(dir)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				refs = append(refs, path.Join(dir, f))
			}
		}
	}
	return refs, nil
}

func (s *SupabaseStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	parsed, err := ParseRef(ref)
	if err != nil {
		return err
	}
	if _, err := s.client.RemoveFile(s.bucket, []string{parsed.String()}); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *SupabaseStore) names(prefix string) ([]string, error) {
	files, err := s.client.ListFiles(s.bucket, prefix+"/", storage.FileSearchOptions{
		Limit: listPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		if f.Name != "" && !strings.HasPrefix(f.Name, ".") {
			out = append(out, f.Name)
		}
	}
	return out, nil
}

func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "404")
}
