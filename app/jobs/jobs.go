// Package jobs defines the job record and the CRUD operations over the record collection.
// Every mutating call is a single load-mutate-save cycle against the Store, serialized by the Service.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"
)

// StatusApplied is the status assigned to every new record
const StatusApplied = "applied"

// ErrNotFound returned by update and delete operations when no record matches the key
var ErrNotFound = errors.New("job not found")

// Record is a single tracked job application
type Record struct {
	ID      string `json:"id" yaml:"id" db:"id"`
	JobRole string `json:"job_role" yaml:"job_role" db:"job_role"`
	Status  string `json:"status" yaml:"status" db:"status"`
	Summary string `json:"summary" yaml:"summary" db:"summary"`
	Source  string `json:"source" yaml:"source" db:"source"`
}

// NewRecord is the caller-supplied part of a record
type NewRecord struct {
	JobRole string `json:"job_role"`
	Summary string `json:"summary"`
	Source  string `json:"source"`
}

// Store loads and saves the full record collection
type Store interface {
	Load() ([]Record, error)
	Save(records []Record) error
}

// Listener gets notified about successful mutations
type Listener interface {
	OnChange(ctx context.Context, ev Event)
}

// Config for Service. Zero value is usable: first-match role deletion, uuid ids, no listener
type Config struct {
	RolePolicy RolePolicy
	Listener   Listener
	IDFunc     func() string
}

// Service implements CRUD over a Store
type Service struct {
	store      Store
	lock       sync.Mutex // guards load-mutate-save cycles
	rolePolicy RolePolicy
	listener   Listener
	newID      func() string
}

// NewService makes Service for the given store
func NewService(store Store, cfg Config) *Service {
	res := &Service{store: store, rolePolicy: cfg.RolePolicy, listener: cfg.Listener, newID: cfg.IDFunc}
	if res.rolePolicy == "" {
		res.rolePolicy = RolePolicyFirst
	}
	if res.newID == nil {
		res.newID = uuid.NewString
	}
	return res
}

// Create adds a new record with a fresh id and the default status.
// No duplicate detection is done, it is up to the caller.
func (s *Service) Create(ctx context.Context, req NewRecord) (Record, error) {
	rec := Record{
		ID:      s.newID(),
		JobRole: req.JobRole,
		Status:  StatusApplied,
		Summary: req.Summary,
		Source:  req.Source,
	}

	s.lock.Lock()
	records, err := s.store.Load()
	if err != nil {
		s.lock.Unlock()
		return Record{}, fmt.Errorf("failed to load jobs: %w", err)
	}
	records = append(records, rec)
	err = s.store.Save(records)
	s.lock.Unlock()
	if err != nil {
		return Record{}, fmt.Errorf("failed to save job %s: %w", rec.ID, err)
	}

	log.Printf("[INFO] job %s created, role %q", rec.ID, rec.JobRole)
	s.emit(ctx, Event{Type: EventCreated, Record: rec})
	return rec, nil
}

// List returns all records in storage order
func (s *Service) List() ([]Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	records, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// UpdateStatus sets status of the record with given id and returns the updated record
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (Record, error) {
	s.lock.Lock()
	records, err := s.store.Load()
	if err != nil {
		s.lock.Unlock()
		return Record{}, fmt.Errorf("failed to load jobs: %w", err)
	}

	idx := indexOf(records, func(r Record) bool { return r.ID == id })
	if idx < 0 {
		s.lock.Unlock()
		return Record{}, fmt.Errorf("id %q: %w", id, ErrNotFound)
	}

	prev := records[idx].Status
	records[idx].Status = status
	rec := records[idx]
	err = s.store.Save(records)
	s.lock.Unlock()
	if err != nil {
		return Record{}, fmt.Errorf("failed to save job %s: %w", id, err)
	}

	log.Printf("[INFO] job %s status %q -> %q", id, prev, status)
	s.emit(ctx, Event{Type: EventStatus, Record: rec, PrevStatus: prev})
	return rec, nil
}

// DeleteByID removes the record with given id and returns it
func (s *Service) DeleteByID(ctx context.Context, id string) (Record, error) {
	removed, err := s.remove(func(r Record) bool { return r.ID == id }, false)
	if err != nil {
		return Record{}, fmt.Errorf("id %q: %w", id, err)
	}
	log.Printf("[INFO] job %s deleted", id)
	s.emit(ctx, Event{Type: EventDeleted, Record: removed[0]})
	return removed[0], nil
}

// DeleteByRole removes records with given role. Depending on the role policy
// it removes the first match in storage order or all of them.
func (s *Service) DeleteByRole(ctx context.Context, role string) ([]Record, error) {
	removed, err := s.remove(func(r Record) bool { return r.JobRole == role }, s.rolePolicy == RolePolicyAll)
	if err != nil {
		return nil, fmt.Errorf("role %q: %w", role, err)
	}
	log.Printf("[INFO] %d job(s) with role %q deleted", len(removed), role)
	for _, r := range removed {
		s.emit(ctx, Event{Type: EventDeleted, Record: r})
	}
	return removed, nil
}

// remove drops matching records and saves the rest. Nothing is saved if nothing matched.
func (s *Service) remove(match func(Record) bool, all bool) ([]Record, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	records, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	kept := make([]Record, 0, len(records))
	var removed []Record
	for _, r := range records {
		if match(r) && (all || len(removed) == 0) {
			removed = append(removed, r)
			continue
		}
		kept = append(kept, r)
	}
	if len(removed) == 0 {
		return nil, ErrNotFound
	}

	if err := s.store.Save(kept); err != nil {
		return nil, fmt.Errorf("failed to save jobs: %w", err)
	}
	return removed, nil
}

func (s *Service) emit(ctx context.Context, ev Event) {
	if s.listener == nil {
		return
	}
	s.listener.OnChange(ctx, ev)
}

func indexOf(records []Record, match func(Record) bool) int {
	for i, r := range records {
		if match(r) {
			return i
		}
	}
	return -1
}
