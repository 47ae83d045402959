// Package images reads photos from local paths or http(s) URLs.
package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMaxBytes matches the server's default upload cap
const DefaultMaxBytes = 10 << 20

// Fetcher retrieves images for detection
type Fetcher struct {
	HTTPClient *http.Client
	MaxBytes   int64
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		MaxBytes: DefaultMaxBytes,
	}
}

// IsURL reports whether source should be downloaded rather than opened
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Fetch returns the bytes of source and a file name suitable for an upload.
func (f *Fetcher) Fetch(ctx context.Context, source string) ([]byte, string, error) {
	if IsURL(source) {
		return f.download(ctx, source)
	}

	file, err := os.Open(source)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	data, err := f.readLimited(file)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(source), nil
}

func (f *Fetcher) download(ctx context.Context, source string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", source, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	data, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, "", err
	}

	name := "image"
	if u, err := url.Parse(source); err == nil {
		if base := path.Base(u.Path); base != "/" && base != "." {
			name = base
		}
	}
	return data, name, nil
}

func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("image too large (max %dMB)", limit>>20)
	}
	return data, nil
}
