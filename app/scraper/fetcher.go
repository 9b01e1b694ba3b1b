package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	log "github.com/go-pkgz/lgr"
	"golang.org/x/net/html/charset"
)

const defaultMaxBody = 5 * 1024 * 1024

// HTTPFetcher gets the page with a plain GET request
type HTTPFetcher struct {
	Client    *http.Client // http.DefaultClient if nil
	UserAgent string
	MaxBody   int64 // response size limit, 5MB if 0. Larger pages are rejected, not cut.
}

// Fetch implements Fetcher. Only http and https urls are accepted, any non-2xx response is an error.
// The body is returned as utf-8, decoded by the charset of Content-Type or the page's meta tag.
func (f *HTTPFetcher) Fetch(ctx context.Context, link string) ([]byte, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", link, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid url %q: unsupported scheme %q", link, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err //nolint:wrapcheck // http client error already names method and url
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("[WARN] failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s for url: %s", resp.Status, link)
	}

	limit := f.MaxBody
	if limit <= 0 {
		limit = defaultMaxBody
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("page %s exceeds %d bytes", link, limit)
	}

	rdr, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", link, err)
	}
	body, err := io.ReadAll(rdr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", link, err)
	}
	return body, nil
}
