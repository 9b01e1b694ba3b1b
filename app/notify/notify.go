// Package notify posts job change notifications to webhooks
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/notify"
	"github.com/go-pkgz/syncs"

	"github.com/umputun/jobtrack/app/jobs"
)

// Params for Webhooks
type Params struct {
	URLs        []string      // http or https webhook endpoints
	Timeout     time.Duration // per request
	Headers     []string      // extra headers as "Name:Value"
	Concurrency int           // max parallel requests, 4 if 0
}

// Webhooks sends one text line per job change to every configured url
type Webhooks struct {
	sender      notify.Notifier
	urls        []string
	timeout     time.Duration
	concurrency int
	wg          sync.WaitGroup
}

// NewWebhooks makes Webhooks, returns nil if no urls set
func NewWebhooks(p Params) *Webhooks {
	if len(p.URLs) == 0 {
		return nil
	}
	if p.Timeout <= 0 {
		p.Timeout = 5 * time.Second
	}
	if p.Concurrency <= 0 {
		p.Concurrency = 4
	}
	log.Printf("[INFO] webhook notifications enabled for %d url(s)", len(p.URLs))
	return &Webhooks{
		sender:      notify.NewWebhook(notify.WebhookParams{Timeout: p.Timeout, Headers: p.Headers}),
		urls:        p.URLs,
		timeout:     p.Timeout,
		concurrency: p.Concurrency,
	}
}

// OnChange implements jobs.Listener. Delivery runs in background and failures are only logged,
// the request which caused the change doesn't wait for it.
func (w *Webhooks) OnChange(ctx context.Context, ev jobs.Event) {
	text := "jobtrack: " + ev.String()
	sendCtx := context.WithoutCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.Send(sendCtx, text); err != nil {
			log.Printf("[WARN] failed to notify about %s event for job %s: %v", ev.Type, ev.Record.ID, err)
		}
	}()
}

// Send posts text to all urls in parallel and returns combined error, if any
func (w *Webhooks) Send(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	grp := syncs.NewErrSizedGroup(w.concurrency)
	for _, u := range w.urls {
		grp.Go(func() error {
			if err := w.sender.Send(ctx, u, text); err != nil {
				return fmt.Errorf("webhook %s: %w", u, err)
			}
			log.Printf("[DEBUG] webhook %s notified", u)
			return nil
		})
	}
	return grp.Wait()
}

// Wait blocks until all background deliveries are done
func (w *Webhooks) Wait() {
	w.wg.Wait()
}
