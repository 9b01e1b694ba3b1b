package scraper

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/playwright-community/playwright-go"
)

// BrowserFetcher renders pages in headless chromium, for job boards filling the posting with javascript.
// Playwright and the browser are started on the first Fetch and shared by all later calls.
type BrowserFetcher struct {
	Install bool // download chromium and the driver if missing

	once    sync.Once
	initErr error
	pw      *playwright.Playwright
	browser playwright.Browser
}

// Fetch implements Fetcher. The page is loaded in a fresh browser context and its rendered html returned.
func (b *BrowserFetcher) Fetch(ctx context.Context, link string) ([]byte, error) {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid url %q", link)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.once.Do(func() { b.initErr = b.start() })
	if b.initErr != nil {
		return nil, b.initErr
	}

	bctx, err := b.browser.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	closeCtx := sync.OnceFunc(func() {
		if closeErr := bctx.Close(); closeErr != nil {
			log.Printf("[WARN] failed to close browser context: %v", closeErr)
		}
	})
	defer closeCtx()
	// closing the browser context aborts any pending page call
	stop := context.AfterFunc(ctx, closeCtx)
	defer stop()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, canceledOr(ctx, fmt.Errorf("failed to open page: %w", err))
	}

	opts := playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded}
	if deadline, ok := ctx.Deadline(); ok {
		opts.Timeout = playwright.Float(float64(max(time.Until(deadline).Milliseconds(), 1))) // 0 disables timeout in playwright
	}
	resp, err := page.Goto(link, opts)
	if err != nil {
		return nil, canceledOr(ctx, fmt.Errorf("failed to load %s: %w", link, err))
	}
	if resp != nil && (resp.Status() < 200 || resp.Status() >= 300) {
		return nil, fmt.Errorf("%d %s for url: %s", resp.Status(), resp.StatusText(), link)
	}

	content, err := page.Content()
	if err != nil {
		return nil, canceledOr(ctx, fmt.Errorf("failed to get page content: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte(content), nil
}

// canceledOr reports cancellation of ctx instead of the error of the aborted browser call
func canceledOr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

// Close stops the browser and playwright driver if they were started
func (b *BrowserFetcher) Close() error {
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			log.Printf("[WARN] failed to close browser: %v", err)
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
	}
	return nil
}

func (b *BrowserFetcher) start() error {
	if b.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(true)})
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("failed to launch chromium: %w", err)
	}
	log.Printf("[INFO] headless chromium started, version %s", browser.Version())
	b.pw, b.browser = pw, browser
	return nil
}
