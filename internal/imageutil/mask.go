package imageutil

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"image-translator-backend/internal/models"
)

// Size returns the pixel dimensions of an encoded image.
func Size(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: failed to decode image: %v", models.ErrInvalidInput, err)
	}
	return cfg.Width, cfg.Height, nil
}

// RenderMask draws rects in white on a black canvas of the given size and
// encodes it as PNG. Rects are clipped to the canvas.
func RenderMask(width, height int, rects []models.Rect) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: mask size must be positive", models.ErrInvalidInput)
	}
	bounds := image.Rect(0, 0, width, height)
	mask := imaging.New(width, height, color.Black)

	painted := false
	for _, r := range rects {
		area := image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height).Intersect(bounds)
		if area.Empty() {
			continue
		}
		patch := imaging.New(area.Dx(), area.Dy(), color.White)
		mask = imaging.Paste(mask, patch, area.Min)
		painted = true
	}
	if !painted {
		return nil, fmt.Errorf("%w: region does not cover the image", models.ErrInvalidInput)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, mask, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode mask: %w", err)
	}
	return buf.Bytes(), nil
}

// MaskForImage renders rects onto a mask sized like source.
func MaskForImage(source []byte, rects []models.Rect) ([]byte, error) {
	w, h, err := Size(source)
	if err != nil {
		return nil, err
	}
	return RenderMask(w, h, rects)
}

// DecodeBase64 accepts raw base64 or a data: URL.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 image data", models.ErrInvalidInput)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image is empty", models.ErrInvalidInput)
	}
	return data, nil
}
