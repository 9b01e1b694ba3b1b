package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/jobtrack/app/jobs"
)

// File keeps all records in a single serialized file
type File struct {
	path  string
	codec Codec
	lock  sync.Mutex
}

// NewFile makes File store for the given path and codec. Nothing is touched on disk until the first Load or Save.
func NewFile(path string, codec Codec) *File {
	if codec == nil {
		codec = JSON{}
	}
	return &File{path: path, codec: codec}
}

// Path returns location of the file
func (f *File) Path() string { return f.path }

// Load reads the full collection. Missing file is created with an empty collection first.
// A file which can't be decoded is reported with ErrMalformed and left as is.
func (f *File) Load() ([]jobs.Record, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("[INFO] storage %s not found, creating empty", f.path)
		if err := f.write([]jobs.Record{}); err != nil {
			return nil, err
		}
		return []jobs.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	records := []jobs.Record{}
	if err := f.codec.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, f.path, err)
	}
	if records == nil { // literal null or empty yaml document
		records = []jobs.Record{}
	}
	return records, nil
}

// Save overwrites the file with the given collection
func (f *File) Save(records []jobs.Record) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if records == nil {
		records = []jobs.Record{}
	}
	return f.write(records)
}

// write encodes records to a temp file in the same directory, syncs and renames it over the target
func (f *File) write(records []jobs.Record) error {
	data, err := f.codec.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // data file, not a secret
		return fmt.Errorf("failed to set mode on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}
