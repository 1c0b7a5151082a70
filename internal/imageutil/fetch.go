package imageutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"image-translator-backend/internal/models"
)

// MaxImageSize bounds both uploads and fetched sources.
const MaxImageSize = 20 << 20

// Fetcher downloads source images referenced by URL.
type Fetcher struct {
	client  *http.Client
	maxSize int64
}

func NewFetcher(client *http.Client, maxSize int64) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxSize <= 0 {
		maxSize = MaxImageSize
	}
	return &Fetcher{client: client, maxSize: maxSize}
}

// Fetch downloads rawURL. Any failure to obtain an image is reported as
// invalid input since the URL came from the caller.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: image url must be an absolute http(s) url", models.ErrInvalidInput)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", models.ErrInvalidInput, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: image url is unreachable", models.ErrInvalidInput)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: image url returned status %d", models.ErrInvalidInput, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read image: %v", models.ErrInvalidInput, err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", models.ErrInvalidInput, f.maxSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image url returned no data", models.ErrInvalidInput)
	}
	return data, nil
}
