package design

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"tools.zach/dev/iconsmith/internal/atomicfile"
	"tools.zach/dev/iconsmith/internal/paths"
)

// maxDesignBytes bounds remote design responses.
const maxDesignBytes = 1 << 20 // 1 MiB

// Fetcher downloads remote designs and keeps the last good copy of each in
// a cache directory.
type Fetcher struct {
	client   *retryablehttp.Client
	cacheDir string
}

// NewFetcher returns a Fetcher caching into cacheDir. Each HTTP attempt is
// bounded by timeout; failed attempts are retried twice.
func NewFetcher(cacheDir string, timeout time.Duration) *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.HTTPClient.Timeout = timeout
	client.Logger = nil // suppress retryablehttp's default logging
	return &Fetcher{client: client, cacheDir: cacheDir}
}

// Fetch downloads the design at rawURL. A fresh download is not cached;
// callers [Fetcher.Store] it once it has parsed.
//
// When the download fails, the cached copy is returned together with a
// non-nil error describing the failure. Returns nil data only when both the
// download and the cache fail.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, Format, error) {
	data, format, err := f.download(ctx, rawURL)
	if err == nil {
		return data, format, nil
	}
	slog.Warn("failed to fetch design, trying cache", "url", rawURL, "error", err)

	data, format, cacheErr := f.Cached(rawURL)
	if cacheErr == nil {
		return data, format, fmt.Errorf("using cached design: fetch failed: %w", err)
	}
	return nil, "", fmt.Errorf("all design sources failed: fetch: %w; cache: %w", err, cacheErr)
}

func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, Format, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch design: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDesignBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading response from %s: %w", rawURL, err)
	}
	if len(body) > maxDesignBytes {
		return nil, "", fmt.Errorf("response from %s exceeds %d bytes", rawURL, maxDesignBytes)
	}

	format, err := urlFormat(rawURL)
	if err != nil {
		if format, err = FormatFromContentType(resp.Header.Get("Content-Type")); err != nil {
			return nil, "", err
		}
	}
	return body, format, nil
}

func urlFormat(rawURL string) (Format, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	return FormatFromName(u.Path)
}

// ///////////////////////////////////////////////
// Cache
// ///////////////////////////////////////////////

var cacheFormats = []Format{FormatTOML, FormatYAML, FormatJSON}

// Store records data as the last good copy of rawURL.
func (f *Fetcher) Store(rawURL string, data []byte, format Format) error {
	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return fmt.Errorf("creating design cache directory: %w", err)
	}
	// A URL whose format changed leaves a stale copy under another extension.
	for _, other := range cacheFormats {
		if other != format {
			_ = os.Remove(filepath.Join(f.cacheDir, paths.DesignCacheFile(rawURL, other.Ext())))
		}
	}
	return atomicfile.Write(filepath.Join(f.cacheDir, paths.DesignCacheFile(rawURL, format.Ext())), data, 0o644)
}

// Cached returns the last good copy of rawURL.
func (f *Fetcher) Cached(rawURL string) ([]byte, Format, error) {
	for _, format := range cacheFormats {
		data, err := os.ReadFile(filepath.Join(f.cacheDir, paths.DesignCacheFile(rawURL, format.Ext())))
		if err == nil {
			return data, format, nil
		}
		if !os.IsNotExist(err) {
			return nil, "", fmt.Errorf("read design cache: %w", err)
		}
	}
	return nil, "", fmt.Errorf("no cached copy of %s", rawURL)
}
