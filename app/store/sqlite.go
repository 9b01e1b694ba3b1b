package store

import (
	"fmt"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/umputun/jobtrack/app/jobs"
)

// SQLite keeps records in a sqlite table, one row per record
type SQLite struct {
	db *sqlx.DB
}

type sqlRecord struct {
	Seq int `db:"seq"`
	jobs.Record
}

// NewSQLite opens (or creates) the database and makes sure the schema exists
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to set WAL mode: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	query := `CREATE TABLE IF NOT EXISTS jobs (
		seq INTEGER NOT NULL,
		id TEXT PRIMARY KEY,
		job_role TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT ''
	)`
	if _, err := db.Exec(query); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create jobs table: %w", err)
	}
	log.Printf("[DEBUG] sqlite store %s ready", dbPath)
	return &SQLite{db: db}, nil
}

// Load returns all records in insertion order
func (s *SQLite) Load() ([]jobs.Record, error) {
	records := []jobs.Record{}
	if err := s.db.Select(&records, `SELECT id, job_role, status, summary, source FROM jobs ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	return records, nil
}

// Save replaces all rows with the given collection in a single transaction
func (s *SQLite) Save(records []jobs.Record) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(`DELETE FROM jobs`); err != nil {
		return fmt.Errorf("failed to clear jobs: %w", err)
	}
	for idx, rec := range records {
		_, err := tx.NamedExec(`INSERT INTO jobs (seq, id, job_role, status, summary, source)
			VALUES (:seq, :id, :job_role, :status, :summary, :source)`, sqlRecord{Seq: idx, Record: rec})
		if err != nil {
			return fmt.Errorf("failed to save job %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}
