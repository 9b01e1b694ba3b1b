// Package web implements the HTTP API of jobtrack.
// Job operations are served under the legacy flat paths (/add_job, /jobs, /with_jobID ...) and under /api/v1,
// both sets call the same handlers. Agent tools are listed and called under /api/v1/tools.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/jobtrack/app/jobs"
	"github.com/umputun/jobtrack/app/scraper"
	"github.com/umputun/jobtrack/app/tools"
)

// WelcomeMessage returned by the root route
const WelcomeMessage = "Welcome to the Job Manager API!"

// JobsService defines job operations used by handlers
type JobsService interface {
	Create(ctx context.Context, req jobs.NewRecord) (jobs.Record, error)
	List() ([]jobs.Record, error)
	UpdateStatus(ctx context.Context, id, status string) (jobs.Record, error)
	DeleteByID(ctx context.Context, id string) (jobs.Record, error)
	DeleteByRole(ctx context.Context, role string) ([]jobs.Record, error)
}

// Scraper extracts job pages
type Scraper interface {
	Scrape(ctx context.Context, url string) (scraper.Page, error)
}

// Config holds server configuration
type Config struct {
	Jobs      JobsService     // required
	Scraper   Scraper         // scrape route disabled if nil
	Tools     *tools.Registry // tool routes disabled if nil
	Version   string
	AuthHash  string  // bcrypt hash for basic auth (empty to disable)
	RateLimit float64 // requests per second per ip for tools and scrape, 0 to disable
}

// Server represents the web server
type Server struct {
	jobs     JobsService
	scraper  Scraper
	tools    *tools.Registry
	version  string
	authHash string
	limiter  *limiter.Limiter
}

// New creates a new web server
func New(cfg Config) (*Server, error) {
	if cfg.Jobs == nil {
		return nil, errors.New("web server initialization failed: jobs service is required")
	}
	s := &Server{
		jobs:     cfg.Jobs,
		scraper:  cfg.Scraper,
		tools:    cfg.Tools,
		version:  cfg.Version,
		authHash: cfg.AuthHash,
	}
	if cfg.RateLimit > 0 {
		s.limiter = tollbooth.NewLimiter(cfg.RateLimit, nil)
		s.limiter.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})
		s.limiter.SetMessageContentType("application/json")
		s.limiter.SetMessage(`{"error":"too many requests"}`)
	}
	return s, nil
}

// Run starts the web server and blocks until ctx is canceled
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting web server on %s", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	// global middleware - applied to all routes
	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("jobtrack", "umputun", s.version),
		rest.Ping,
		rest.Trace,
		rest.SizeLimit(64*1024), // 64KB max request size
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)

	// must be done before any routes are defined
	if s.authHash != "" {
		log.Printf("[INFO] basic authentication enabled")
		router.Use(s.authMiddleware)
	}

	router.HandleFunc("GET /{$}", s.handleRoot)

	// flat routes kept for existing agent integrations
	router.HandleFunc("POST /add_job", s.handleCreate)
	router.HandleFunc("GET /jobs", s.handleList)
	router.HandleFunc("PUT /update_job_status_jobID", s.handleUpdateStatus)
	router.HandleFunc("DELETE /with_jobID", s.handleDeleteByID)
	router.HandleFunc("DELETE /with_jobrole", s.handleDeleteByRole)

	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)
		api.HandleFunc("POST /jobs", s.handleCreate)
		api.HandleFunc("GET /jobs", s.handleList)
		api.HandleFunc("PUT /jobs/{id}/status", s.handleUpdateStatus)
		api.HandleFunc("DELETE /jobs/{id}", s.handleDeleteByID)
		api.HandleFunc("DELETE /jobs", s.handleDeleteByRole)

		limited := api.With(s.rateLimit)
		if s.scraper != nil {
			limited.HandleFunc("GET /scrape", s.handleScrape)
		}
		if s.tools != nil {
			api.HandleFunc("GET /tools", s.handleToolsList)
			limited.HandleFunc("POST /tools/{name}", s.handleToolCall)
		}
	})

	return router
}

// rateLimit applies per-ip limiter if configured
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return tollbooth.HTTPMiddleware(s.limiter)(next)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes a JSON error response
func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, jobs.ErrorPayload(message))
}
