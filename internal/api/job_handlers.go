package api

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rflorenc/scm-migration-workbench/internal/logger"
	"github.com/rflorenc/scm-migration-workbench/internal/migration"
	"github.com/rflorenc/scm-migration-workbench/internal/models"
)

func (s *Server) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.Jobs.List()
	out := make([]models.JobSnapshot, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Snapshot())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job := s.Jobs.Get(id)
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// jobFunc is the body of an async job. It receives a service whose logger
// writes into the job output.
type jobFunc func(ctx context.Context, svc *migration.Service) (interface{}, error)

// startJob runs fn in the background and returns the job tracking it.
func (s *Server) startJob(jobType string, dryRun bool, fn jobFunc) *models.Job {
	job := s.Jobs.Create(jobType, dryRun)
	jobLog := logger.New(logger.Options{
		Level:  s.LogLevel,
		Writer: io.MultiWriter(job, s.logOutput()),
	}).With("job", job.ID, "type", jobType)

	go func() {
		ctx := context.Background()
		if s.JobTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.JobTimeout)
			defer cancel()
		}
		svc := s.Service.WithLogger(jobLog).WithDryRun(dryRun)
		result, err := fn(ctx, svc)
		if err != nil {
			jobLog.Error("job failed", "error", err)
			job.Fail(err.Error())
			return
		}
		jobLog.Info("job completed")
		job.Complete(result)
	}()
	return job
}
