// Package backup makes point-in-time json copies of the job collection on a cron schedule
// and keeps only the newest ones.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"

	"github.com/umputun/jobtrack/app/jobs"
	"github.com/umputun/jobtrack/app/store"
)

const (
	filePrefix = "jobs-"
	fileExt    = ".json"
	tsFormat   = "20060102T150405.000Z"
)

// Lister returns the current collection
type Lister interface {
	List() ([]jobs.Record, error)
}

// Params for Backup
type Params struct {
	Dir  string
	Keep int              // number of snapshots to keep, all if 0
	Now  func() time.Time // time.Now if nil
}

// Backup writes snapshots to a directory
type Backup struct {
	Params
	src Lister
}

// New makes Backup for the given source
func New(src Lister, p Params) *Backup {
	if p.Now == nil {
		p.Now = time.Now
	}
	return &Backup{Params: p, src: src}
}

// Snapshot writes the current collection to a new timestamped file and prunes old ones.
// Returns the name of the new file.
func (b *Backup) Snapshot() (string, error) {
	if err := os.MkdirAll(b.Dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to make backup dir %s: %w", b.Dir, err)
	}
	records, err := b.src.List()
	if err != nil {
		return "", fmt.Errorf("failed to read jobs for backup: %w", err)
	}

	name := filepath.Join(b.Dir, filePrefix+b.Now().UTC().Format(tsFormat)+fileExt)
	if err := store.NewFile(name, store.JSON{}).Save(records); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	log.Printf("[INFO] backup %s created, %d job(s)", name, len(records))

	if err := b.prune(); err != nil {
		return name, err
	}
	return name, nil
}

// Run makes snapshots on cron schedule until ctx is canceled
func (b *Backup) Run(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := b.Snapshot(); err != nil {
			log.Printf("[WARN] backup failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	log.Printf("[INFO] backups to %s scheduled with %q, keep %d", b.Dir, spec, b.Keep)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	log.Printf("[DEBUG] backup scheduler stopped")
	return nil
}

// List returns snapshot file names, oldest first
func (b *Backup) List() ([]string, error) {
	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup dir %s: %w", b.Dir, err)
	}
	var res []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filePrefix) || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		res = append(res, filepath.Join(b.Dir, e.Name()))
	}
	sort.Strings(res) // timestamps sort lexically
	return res, nil
}

func (b *Backup) prune() error {
	if b.Keep <= 0 {
		return nil
	}
	files, err := b.List()
	if err != nil {
		return err
	}
	if len(files) <= b.Keep {
		return nil
	}
	for _, f := range files[:len(files)-b.Keep] {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("failed to remove old backup: %w", err)
		}
		log.Printf("[DEBUG] old backup %s removed", f)
	}
	return nil
}
