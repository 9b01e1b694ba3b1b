// Package scraper fetches a job posting page and extracts a best-effort title and description.
// Fetching is pluggable: HTTPFetcher does a plain GET, BrowserFetcher renders the page in headless chromium.
// All fetch failures are reported as ErrFetch with the cause in the message.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	log "github.com/go-pkgz/lgr"
)

// ErrFetch is the sentinel for any failure to get the page body
var ErrFetch = errors.New("failed to fetch page")

// DefaultTimeout for a single fetch attempt
const DefaultTimeout = 10 * time.Second

// NoTitle is used when the page has no h1
const NoTitle = "No title found"

// Page is the extracted result. Link is the requested url as is.
type Page struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// Fetcher returns raw html of the page
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Repeater repeats fetch attempts, implemented by go-pkgz/repeater
type Repeater interface {
	Do(ctx context.Context, fun func() error, errors ...error) (err error)
}

// Params for Scraper. Only Fetcher is required.
type Params struct {
	Fetcher        Fetcher
	Timeout        time.Duration // per attempt, DefaultTimeout if 0
	Repeater       Repeater      // single attempt if nil
	MaxDescription int           // in runes, 0 means no limit
}

// Scraper extracts job pages
type Scraper struct {
	Params
}

// New makes Scraper with defaults applied
func New(p Params) *Scraper {
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	return &Scraper{Params: p}
}

// Scrape fetches url and extracts the page. Storage is never touched.
func (s *Scraper) Scrape(ctx context.Context, url string) (Page, error) {
	var body []byte
	fetch := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.Timeout)
		defer cancel()
		b, err := s.Fetcher.Fetch(attemptCtx, url)
		if err != nil {
			log.Printf("[DEBUG] fetch %s failed: %v", url, err)
			return err
		}
		body = b
		return nil
	}

	var err error
	if s.Repeater != nil {
		err = s.Repeater.Do(ctx, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		log.Printf("[WARN] can't scrape %s: %v", url, err)
		return Page{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	title, descr, err := extract(body)
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse page %s: %w", url, err)
	}
	log.Printf("[INFO] scraped %s, title %q, %d bytes", url, title, len(body))
	return Page{Title: title, Description: truncate(descr, s.MaxDescription), Link: url}, nil
}

// truncate cuts s to max runes, no-op for max <= 0
func truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}
