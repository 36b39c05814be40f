package models

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job represents an async operation (list, stage, diff).
type Job struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"` // "list", "stage", "diff"
	Status     string      `json:"status"` // "running", "completed", "failed"
	DryRun     bool        `json:"dry_run"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Error      string      `json:"error,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	Output     []string    `json:"output"`
	mu         sync.Mutex
	partial    string
}

// AppendLog adds a log line to the job output.
func (j *Job) AppendLog(line string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Output = append(j.Output, line)
}

// Write implements io.Writer so a job can sit behind a slog handler. Output
// is split on newlines; a trailing partial line is held until completed.
func (j *Job) Write(p []byte) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	buf := j.partial + string(p)
	lines := strings.Split(buf, "\n")
	j.partial = lines[len(lines)-1]
	for _, l := range lines[:len(lines)-1] {
		j.Output = append(j.Output, l)
	}
	return len(p), nil
}

// LogsSince returns log lines starting from the given index.
func (j *Job) LogsSince(offset int) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if offset >= len(j.Output) {
		return nil
	}
	lines := make([]string, len(j.Output)-offset)
	copy(lines, j.Output[offset:])
	return lines
}

// Done reports whether the job has finished.
func (j *Job) Done() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status != "running"
}

// Complete marks the job as completed with an optional result payload.
func (j *Job) Complete(result interface{}) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.flush()
	j.Status = "completed"
	j.Result = result
	now := time.Now()
	j.FinishedAt = &now
}

// Fail marks the job as failed with an error message.
func (j *Job) Fail(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.flush()
	j.Status = "failed"
	j.Error = err
	now := time.Now()
	j.FinishedAt = &now
}

func (j *Job) flush() {
	if j.partial != "" {
		j.Output = append(j.Output, j.partial)
		j.partial = ""
	}
}

// JobSnapshot is a point-in-time copy of a Job.
type JobSnapshot struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Status     string      `json:"status"`
	DryRun     bool        `json:"dry_run"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Error      string      `json:"error,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	Output     []string    `json:"output"`
}

// Snapshot returns a copy of the job that is safe to encode while the job
// is still running.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.Output))
	copy(out, j.Output)
	return JobSnapshot{
		ID:         j.ID,
		Type:       j.Type,
		Status:     j.Status,
		DryRun:     j.DryRun,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		Error:      j.Error,
		Result:     j.Result,
		Output:     out,
	}
}

// JobStore is an in-memory thread-safe store for jobs.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewJobStore creates an empty job store.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

// Create adds a new running job, assigning it a UUID.
func (s *JobStore) Create(jobType string, dryRun bool) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    "running",
		DryRun:    dryRun,
		StartedAt: time.Now(),
		Output:    []string{},
	}
	s.jobs[j.ID] = j
	return j
}

// Get returns a job by ID.
func (s *JobStore) Get(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id]
}

// List returns all jobs, most recent first.
func (s *JobStore) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		result = append(result, j)
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].StartedAt.After(result[b].StartedAt)
	})
	return result
}
