package transcode

import (
	"sync"

	"ghosthub/internal/ghoststream"
	"ghosthub/internal/metrics"
)

// Registry tracks the active transcode job for each media identity.
//
// The invariant it exists to enforce: at most one job may be in flight
// per MediaIdentity. Reserve reports an existing job so callers reuse
// it instead of issuing a duplicate remote request. The orchestrator
// serializes the reserve/register pair per identity (see Start), so the
// registry itself only needs to make individual operations safe.
type Registry struct {
	mu   sync.Mutex
	jobs map[MediaIdentity]*ghoststream.Job
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[MediaIdentity]*ghoststream.Job),
	}
}

// Reserve returns the job already tracked for identity, if any.
func (r *Registry) Reserve(identity MediaIdentity) (*ghoststream.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[identity]
	return job, ok
}

// Register records job as the active job for identity.
func (r *Registry) Register(identity MediaIdentity, job *ghoststream.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[identity] = job
	metrics.TranscodeJobsActive.Set(float64(len(r.jobs)))
}

// Release removes the entry for identity, if present.
func (r *Registry) Release(identity MediaIdentity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.jobs, identity)
	metrics.TranscodeJobsActive.Set(float64(len(r.jobs)))
}

// ReleaseJob removes the entry whose job has the given id. The registry
// is keyed by identity, so this is a reverse lookup by value.
func (r *Registry) ReleaseJob(jobID string) (MediaIdentity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for identity, job := range r.jobs {
		if job.JobID == jobID {
			delete(r.jobs, identity)
			metrics.TranscodeJobsActive.Set(float64(len(r.jobs)))
			return identity, true
		}
	}
	return MediaIdentity{}, false
}

// Snapshot returns a copy of the current identity-to-job mapping.
func (r *Registry) Snapshot() map[MediaIdentity]*ghoststream.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[MediaIdentity]*ghoststream.Job, len(r.jobs))
	for identity, job := range r.jobs {
		out[identity] = job
	}
	return out
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.jobs)
}
