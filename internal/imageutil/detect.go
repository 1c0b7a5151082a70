package imageutil

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"image-translator-backend/internal/models"
)

// Detect sniffs data and returns its content type and file extension. Only
// images are accepted.
func Detect(data []byte) (contentType, ext string, err error) {
	if len(data) == 0 {
		return "", "", fmt.Errorf("%w: image is empty", models.ErrInvalidInput)
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", "", fmt.Errorf("%w: unsupported content type %s", models.ErrInvalidInput, mtype.String())
	}
	contentType = mtype.String()
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return contentType, mtype.Extension(), nil
}

// ExtensionFor returns the extension for arbitrary bytes, falling back to
// ".bin" when nothing better is known.
func ExtensionFor(data []byte) string {
	if ext := mimetype.Detect(data).Extension(); ext != "" {
		return ext
	}
	return ".bin"
}
