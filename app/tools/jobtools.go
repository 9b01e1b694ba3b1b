package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/go-pkgz/lgr"
	"github.com/invopop/jsonschema"

	"github.com/umputun/jobtrack/app/jobs"
	"github.com/umputun/jobtrack/app/scraper"
)

// JobsService is the set of job operations exposed as tools
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

// CreateJobArgs are arguments of create_job
type CreateJobArgs struct {
	JobRole string `json:"job_role" jsonschema_description:"role or title of the position"`
	Summary string `json:"summary" jsonschema_description:"short summary of the job posting"`
	Source  string `json:"source" jsonschema_description:"url of the posting or the word pasted"`
}

// ListJobsArgs are arguments of list_jobs, none
type ListJobsArgs struct{}

// UpdateStatusArgs are arguments of update_status
type UpdateStatusArgs struct {
	JobID  string `json:"job_id" jsonschema_description:"id of the job record"`
	Status string `json:"status" jsonschema_description:"new application status, free text like interview or rejected"`
}

// DeleteByIDArgs are arguments of delete_job_byid
type DeleteByIDArgs struct {
	JobID string `json:"job_id" jsonschema_description:"id of the job record"`
}

// DeleteByRoleArgs are arguments of delete_job_byrole
type DeleteByRoleArgs struct {
	JobRole string `json:"job_role" jsonschema_description:"exact job role of the record to delete"`
}

// ScrapeArgs are arguments of scrape_job_page
type ScrapeArgs struct {
	URL string `json:"url" jsonschema_description:"http or https url of the job posting"`
}

// RegisterJobTools adds all job tools to the registry. Scrape tool is skipped if scr is nil.
func RegisterJobTools(r *Registry, svc JobsService, scr Scraper) error {
	list := []Tool{
		newFuncTool("create_job", "Create a job application record with status applied. "+
			"Call it right away when the user pastes a job posting or after scraping a url.",
			func(ctx context.Context, a CreateJobArgs) (Result, error) {
				rec, err := svc.Create(ctx, jobs.NewRecord{JobRole: a.JobRole, Summary: a.Summary, Source: a.Source})
				if err != nil {
					return failure(jobs.ErrorPayload(err.Error()))
				}
				return success(rec)
			}),

		newFuncTool("list_jobs", "List all job application records in the order they were added.",
			func(_ context.Context, _ ListJobsArgs) (Result, error) {
				recs, err := svc.List()
				if err != nil {
					return failure(jobs.ErrorPayload(err.Error()))
				}
				return success(recs)
			}),

		newFuncTool("update_status", "Change the status of the job application with the given id.",
			func(ctx context.Context, a UpdateStatusArgs) (Result, error) {
				rec, err := svc.UpdateStatus(ctx, a.JobID, a.Status)
				if errors.Is(err, jobs.ErrNotFound) {
					return failure(jobs.UpdateNotFoundPayload(a.JobID))
				}
				if err != nil {
					return failure(jobs.ErrorPayload(err.Error()))
				}
				return success(rec)
			}),

		newFuncTool("delete_job_byid", "Delete the job application with the given id.",
			func(ctx context.Context, a DeleteByIDArgs) (Result, error) {
				_, err := svc.DeleteByID(ctx, a.JobID)
				if errors.Is(err, jobs.ErrNotFound) {
					return failure(jobs.ErrorPayload(jobs.NotFoundByIDMessage(a.JobID)))
				}
				if err != nil {
					return failure(jobs.ErrorPayload(err.Error()))
				}
				return success(jobs.MessagePayload(jobs.DeletedByIDMessage(a.JobID)))
			}),

		newFuncTool("delete_job_byrole", "Delete the job application with the given job role.",
			func(ctx context.Context, a DeleteByRoleArgs) (Result, error) {
				_, err := svc.DeleteByRole(ctx, a.JobRole)
				if errors.Is(err, jobs.ErrNotFound) {
					return failure(jobs.ErrorPayload(jobs.NotFoundByRoleMessage(a.JobRole)))
				}
				if err != nil {
					return failure(jobs.ErrorPayload(err.Error()))
				}
				return success(jobs.MessagePayload(jobs.DeletedByRoleMessage(a.JobRole)))
			}),
	}

	if scr != nil {
		list = append(list, newFuncTool("scrape_job_page",
			"Fetch a job posting page and extract its title and description. Nothing is saved, "+
				"summarize the result and pass it to create_job.",
			func(ctx context.Context, a ScrapeArgs) (Result, error) {
				page, err := scr.Scrape(ctx, a.URL)
				if err != nil {
					return failure(jobs.ErrorPayload(err.Error()))
				}
				return success(page)
			}))
	}

	for _, t := range list {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	log.Printf("[DEBUG] registered %d job tools", len(list))
	return nil
}

// funcTool is a Tool backed by a function over typed arguments
type funcTool[A any] struct {
	name   string
	descr  string
	params json.RawMessage
	exec   func(ctx context.Context, args A) (Result, error)
}

func newFuncTool[A any](name, descr string, exec func(context.Context, A) (Result, error)) *funcTool[A] {
	return &funcTool[A]{name: name, descr: descr, params: schemaOf[A](), exec: exec}
}

func (t *funcTool[A]) Name() string                { return t.name }
func (t *funcTool[A]) Description() string         { return t.descr }
func (t *funcTool[A]) Parameters() json.RawMessage { return t.params }

// Execute decodes arguments and runs the function. Malformed arguments are an error result, not a Go error.
func (t *funcTool[A]) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var a A
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &a); err != nil {
			return failure(jobs.ErrorPayload(fmt.Sprintf("invalid arguments for %s: %v", t.name, err)))
		}
	}
	return t.exec(ctx, a)
}

// schemaOf reflects the json schema of the argument struct, inlined with no $defs
func schemaOf[A any]() json.RawMessage {
	r := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	s := r.Reflect(new(A))
	s.Version = ""
	s.ID = ""
	data, err := json.Marshal(s)
	if err != nil {
		// schema of a plain struct always marshals
		panic(fmt.Sprintf("can't marshal schema: %v", err))
	}
	return data
}

func success(v any) (Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal result: %w", err)
	}
	return Result{Content: string(data)}, nil
}

func failure(v any) (Result, error) {
	res, err := success(v)
	res.IsError = true
	return res, err
}
