package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/jobtrack/app/jobs"
	"github.com/umputun/jobtrack/app/scraper"
)

// handleRoot returns the welcome message
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, jobs.MessagePayload(WelcomeMessage))
}

// handleCreate adds a job from json body {job_role, summary, source}
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req jobs.NewRecord
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	rec, err := s.jobs.Create(r.Context(), req)
	if err != nil {
		s.writeStorageError(w, "create job", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rec)
}

// handleList returns all jobs in storage order
func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	list, err := s.jobs.List()
	if err != nil {
		s.writeStorageError(w, "list jobs", err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

// handleUpdateStatus sets status of the job with given id
func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	in, err := readInputs(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, ok := in.get("id", "job_id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "job_id is required")
		return
	}
	status, ok := in.get("status")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "status is required")
		return
	}

	rec, err := s.jobs.UpdateStatus(r.Context(), id, status)
	if errors.Is(err, jobs.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, jobs.UpdateNotFoundPayload(id))
		return
	}
	if err != nil {
		s.writeStorageError(w, "update job", err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// handleDeleteByID removes the job with given id
func (s *Server) handleDeleteByID(w http.ResponseWriter, r *http.Request) {
	in, err := readInputs(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, ok := in.get("id", "job_id")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "job_id is required")
		return
	}

	_, err = s.jobs.DeleteByID(r.Context(), id)
	if errors.Is(err, jobs.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, jobs.NotFoundByIDMessage(id))
		return
	}
	if err != nil {
		s.writeStorageError(w, "delete job", err)
		return
	}
	s.writeJSON(w, http.StatusOK, jobs.MessagePayload(jobs.DeletedByIDMessage(id)))
}

// handleDeleteByRole removes job(s) with given role
func (s *Server) handleDeleteByRole(w http.ResponseWriter, r *http.Request) {
	in, err := readInputs(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	role, ok := in.get("job_role")
	if !ok {
		s.writeJSONError(w, http.StatusBadRequest, "job_role is required")
		return
	}

	_, err = s.jobs.DeleteByRole(r.Context(), role)
	if errors.Is(err, jobs.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, jobs.NotFoundByRoleMessage(role))
		return
	}
	if err != nil {
		s.writeStorageError(w, "delete job", err)
		return
	}
	s.writeJSON(w, http.StatusOK, jobs.MessagePayload(jobs.DeletedByRoleMessage(role)))
}

// handleScrape extracts title and description of the page at ?url=
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("url")
	if link == "" {
		s.writeJSONError(w, http.StatusBadRequest, "url is required")
		return
	}
	page, err := s.scraper.Scrape(r.Context(), link)
	if errors.Is(err, scraper.ErrFetch) {
		s.writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}
	if err != nil {
		log.Printf("[ERROR] failed to scrape %s: %v", link, err)
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *Server) writeStorageError(w http.ResponseWriter, op string, err error) {
	log.Printf("[ERROR] failed to %s: %v", op, err)
	s.writeJSONError(w, http.StatusInternalServerError, err.Error())
}

// inputs are request parameters looked up in path values, then query, then json body
type inputs struct {
	r    *http.Request
	body map[string]any
}

// readInputs decodes optional json object body. Empty body is fine.
func readInputs(r *http.Request) (inputs, error) {
	res := inputs{r: r}
	if r.Body == nil || r.Body == http.NoBody {
		return res, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&res.body); err != nil && !errors.Is(err, io.EOF) {
		return res, fmt.Errorf("invalid request body: %w", err)
	}
	return res, nil
}

// get returns the first present value for any of the names
func (in inputs) get(names ...string) (string, bool) {
	for _, name := range names {
		if v := in.r.PathValue(name); v != "" {
			return v, true
		}
	}
	query := in.r.URL.Query()
	for _, name := range names {
		if query.Has(name) {
			return query.Get(name), true
		}
	}
	for _, name := range names {
		v, ok := in.body[name]
		if !ok || v == nil {
			continue
		}
		if str, isStr := v.(string); isStr {
			return str, true
		}
		return fmt.Sprint(v), true
	}
	return "", false
}
