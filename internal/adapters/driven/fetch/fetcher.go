// Package fetch provides the HTTP document fetcher used for URL
// ingestion.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/custodia-labs/ragdex/internal/core/ports/driven"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxBytes  = 10 << 20 // 10 MiB
	DefaultUserAgent = "ragdex/1.0"
)

// Config holds configuration for the HTTP fetcher.
type Config struct {
	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// MaxBytes caps the response body size (default: 10 MiB).
	MaxBytes int64

	// UserAgent is sent with every request.
	UserAgent string
}

// Fetcher downloads documents over HTTP for ingestion.
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

// NewFetcher creates a new HTTP fetcher.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
	}
}

// Fetch downloads the URL and returns the raw document with the MIME
// type taken from the Content-Type header.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*domain.RawDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", url, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("fetching %s: response exceeds %d bytes", url, f.maxBytes)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType != "" {
		if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
			mimeType = parsed
		}
	}
	if mimeType == "" {
		mimeType = "text/html"
	}

	return &domain.RawDocument{
		URI:      url,
		MIMEType: mimeType,
		Content:  body,
	}, nil
}
