package filestore

import (
	"encoding/hex"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"image-translator-backend/internal/models"
)

const dateLayout = "2006-01-02"

var unsafeOwner = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Ref is the parsed form of a file reference
// "<kind>/<YYYY-MM-DD>/<owner>/<uuid><ext>".
type Ref struct {
	Kind  models.FileKind
	Day   time.Time
	Owner string
	Name  string
}

func (r Ref) String() string {
	return path.Join(string(r.Kind), r.Day.Format(dateLayout), r.Owner, r.Name)
}

// NewRef allocates a fresh reference. Two calls never return the same ref.
func NewRef(kind models.FileKind, owner, ext string, now time.Time) Ref {
	owner = unsafeOwner.ReplaceAllString(owner, "_")
	if owner == "" {
		owner = "_"
	}
	return Ref{
		Kind:  kind,
		Day:   now.UTC().Truncate(24 * time.Hour),
		Owner: owner,
		Name:  uuid.New().String() + ext,
	}
}

// ParseRef validates ref and splits it into its parts.
func ParseRef(ref string) (Ref, error) {
	clean, err := sanitizeKey(ref)
	if err != nil {
		return Ref{}, err
	}
	parts := strings.Split(clean, "/")
	if len(parts) != 4 {
		return Ref{}, fmt.Errorf("%w: malformed file ref", models.ErrInvalidInput)
	}
	kind := models.FileKind(parts[0])
	if !kind.Valid() {
		return Ref{}, fmt.Errorf("%w: unknown file kind %q", models.ErrInvalidInput, parts[0])
	}
	day, err := time.Parse(dateLayout, parts[1])
	if err != nil {
		return Ref{}, fmt.Errorf("%w: malformed file ref date", models.ErrInvalidInput)
	}
	return Ref{Kind: kind, Day: day, Owner: parts[2], Name: parts[3]}, nil
}

// Checksum returns the hex BLAKE3-256 digest of data.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func describe(ref Ref, data []byte, created time.Time) *models.StoredFile {
	mtype := mimetype.Detect(data).String()
	if i := strings.Index(mtype, ";"); i >= 0 {
		mtype = mtype[:i]
	}
	return &models.StoredFile{
		Ref:         ref.String(),
		Kind:        ref.Kind,
		Owner:       ref.Owner,
		Size:        int64(len(data)),
		ContentType: mtype,
		Checksum:    Checksum(data),
		CreatedAt:   created,
	}
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w: file ref is required", models.ErrInvalidInput)
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: invalid file ref", models.ErrInvalidInput)
	}
	return cleaned, nil
}
