package report

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tessa/caseload/internal/domain"
)

// Registry owns all live jobs. It is the only shared table in the engine and
// is mutex-guarded because different jobs may be stepped from concurrent
// requests. Abandoned jobs are reclaimed solely by the TTL sweep; there is
// no size cap.
type Registry struct {
	mu         sync.Mutex
	jobs       map[string]*domain.Job
	jobTTL     time.Duration
	contactTTL time.Duration
	now        func() time.Time
}

// NewRegistry creates a job registry.
// Parameters:
//   - jobTTL: idle time after which a job is swept.
//   - contactTTL: record cache TTL handed to each new job.
//
// Returns:
//   - *Registry: initialized registry.
func NewRegistry(jobTTL, contactTTL time.Duration) *Registry {
	return &Registry{
		jobs:       make(map[string]*domain.Job),
		jobTTL:     jobTTL,
		contactTTL: contactTTL,
		now:        time.Now,
	}
}

// SetClock overrides the registry clock. Test hook.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// Create allocates a queued job for the given window.
func (r *Registry) Create(window domain.Window) *domain.Job {
	job := domain.NewJob(uuid.New().String(), window, r.contactTTL, r.now())

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()
	return job
}

// Get returns the job for id, or false when unknown or already swept.
func (r *Registry) Get(id string) (*domain.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	return job, ok
}

// Delete removes a job. Idempotent; returns false when the id was absent.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[id]
	delete(r.jobs, id)
	return ok
}

// SweepExpired removes every job whose last activity is older than the job
// TTL and returns how many were evicted. Invoked opportunistically at the
// top of each inbound request.
func (r *Registry) SweepExpired(now time.Time) int {
	cutoff := now.Add(-r.jobTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, job := range r.jobs {
		if job.UpdatedAt.Before(cutoff) {
			delete(r.jobs, id)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of live jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
