package pipeline

import (
	"sync"
	"time"
)

// JobStatus represents the state of a fetch job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusFetching  JobStatus = "fetching"
	StatusParsing   JobStatus = "parsing"
	StatusStoring   JobStatus = "storing"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
)

// Job tracks one run over a list of patch versions.
type Job struct {
	mu sync.Mutex

	ID       string   `json:"job_id"`
	Versions []string `json:"versions"`

	Status  JobStatus `json:"status"`
	Phase   string    `json:"phase"`
	Current string    `json:"current"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	errors []string
}

// Progress counts per-version outcomes.
type Progress struct {
	Total     int      `json:"total"`
	Processed int      `json:"processed"`
	Added     int      `json:"added"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	NotFound  int      `json:"not_found"`
	TooShort  int      `json:"too_short"`
	Failed    int      `json:"failed"`
	Sections  int      `json:"sections"`
	Errors    []string `json:"errors"`
}

// NewJob creates a queued job for the given versions.
func NewJob(versions []string) *Job {
	now := time.Now()
	return &Job{
		ID:        generateULID(),
		Versions:  versions,
		Status:    StatusQueued,
		Phase:     "queued",
		Progress:  Progress{Total: len(versions)},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes jobs not updated within the TTL.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		stale := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if stale {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// SetCurrent records the version being worked on.
func (j *Job) SetCurrent(version string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Current = version
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// Record counts the result of one processed version.
func (j *Job) Record(r Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Processed++
	switch r.Outcome {
	case OutcomeAdded:
		j.Progress.Added++
	case OutcomeUpdated:
		j.Progress.Updated++
	case OutcomeSkipped:
		j.Progress.Skipped++
	case OutcomeNotFound:
		j.Progress.NotFound++
	case OutcomeTooShort:
		j.Progress.TooShort++
	case OutcomeFailed:
		j.Progress.Failed++
	}
	j.Progress.Sections += r.Sections
	j.UpdatedAt = time.Now()
}

// Finish sets the terminal status from the recorded progress. A job that
// stopped before reaching every version is never completed.
func (j *Job) Finish() {
	j.mu.Lock()
	p := j.Progress
	j.mu.Unlock()

	switch {
	case p.Failed == 0 && p.Processed >= p.Total:
		j.SetStatus(StatusCompleted, "done")
	case p.Processed > p.Failed:
		j.SetStatus(StatusPartial, "done")
	default:
		j.SetStatus(StatusFailed, "done")
	}
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Versions  []string  `json:"versions"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Current   string    `json:"current,omitempty"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	p := j.Progress
	p.Errors = append([]string{}, j.errors...)
	versions := append([]string{}, j.Versions...)
	return JobSnapshot{
		ID:        j.ID,
		Versions:  versions,
		Status:    j.Status,
		Phase:     j.Phase,
		Current:   j.Current,
		Progress:  p,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
