// Package repository implements the in-memory persistence adapters for
// C9's external interfaces. The spec's Non-goals exclude durable
// storage, so these are plain mutex-guarded maps rather than a database
// client — the deliberate absence of a driver here is itself the
// grounding decision (see DESIGN.md).
package repository

import (
	"sync"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
	"github.com/rubentxu/hodei-pipelines/internal/orcherr"
)

// JobRepository stores Jobs in memory, keyed by id.
type JobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

// NewJobRepository constructs an empty JobRepository.
func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[string]*domain.Job)}
}

// Save inserts or overwrites a job.
func (r *JobRepository) Save(job *domain.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
}

// Get returns the job by id.
func (r *JobRepository) Get(id string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, orcherr.New(orcherr.UnknownTarget, "job not found: "+id)
	}
	return job, nil
}

// List returns a snapshot of every stored job.
func (r *JobRepository) List() []*domain.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	return out
}

// UpdateStatus applies fn to the stored job under the repository lock, so
// concurrent direct writes and engine-driven status mirroring never race
// each other.
func (r *JobRepository) UpdateStatus(id string, fn func(*domain.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return orcherr.New(orcherr.UnknownTarget, "job not found: "+id)
	}
	fn(job)
	return nil
}
