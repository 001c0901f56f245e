package operations

import (
	"sort"
	"sync"
	"time"

	"pqmeta/pkg/contracts/domain"
)

// JobStore keeps jobs for later lookup
type JobStore interface {
	Save(job *Job) error
	Get(id string) (*Job, error)
	Latest() (*Job, error)
	List() []*Job
	Delete(id string) error
}

// MemoryJobStore is an in-memory JobStore with a retention period and a
// capacity. Finished jobs older than the TTL are invisible and removed by
// CleanupExpired; when the store is full the oldest finished job is evicted.
type MemoryJobStore struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	ttl     time.Duration
	maxJobs int
	now     func() time.Time
}

// NewMemoryJobStore creates a store. Non-positive ttl or maxJobs disable the
// corresponding limit.
func NewMemoryJobStore(ttl time.Duration, maxJobs int) *MemoryJobStore {
	return &MemoryJobStore{
		jobs:    make(map[string]*Job),
		ttl:     ttl,
		maxJobs: maxJobs,
		now:     time.Now,
	}
}

// TTL returns the retention period of finished jobs; zero means forever
func (s *MemoryJobStore) TTL() time.Duration {
	if s.ttl < 0 {
		return 0
	}
	return s.ttl
}

// Save inserts or replaces a copy of job
func (s *MemoryJobStore) Save(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; !exists && s.maxJobs > 0 && len(s.jobs) >= s.maxJobs {
		s.evictOldestLocked()
	}
	s.jobs[job.ID] = job.clone()
	return nil
}

// Get retrieves a job by ID
func (s *MemoryJobStore) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists || s.expired(job) {
		return nil, notFound(id)
	}
	return job.clone(), nil
}

// Latest returns the most recently completed job that has a document
func (s *MemoryJobStore) Latest() (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *Job
	for _, job := range s.jobs {
		if job.Status != domain.JobStatusCompleted || job.Document == nil || s.expired(job) {
			continue
		}
		if latest == nil || job.CompletedAt.After(latest.CompletedAt) {
			latest = job
		}
	}
	if latest == nil {
		return nil, ErrJobNotFound
	}
	return latest.clone(), nil
}

// List returns all visible jobs, newest first
func (s *MemoryJobStore) List() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if !s.expired(job) {
			result = append(result, job.clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// Delete removes a job from the store
func (s *MemoryJobStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; !exists {
		return notFound(id)
	}
	delete(s.jobs, id)
	return nil
}

// CleanupExpired removes finished jobs past the TTL and returns how many
// were deleted.
func (s *MemoryJobStore) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, job := range s.jobs {
		if s.expired(job) {
			delete(s.jobs, id)
			deleted++
		}
	}
	return deleted
}

// Stats returns job counts by status
func (s *MemoryJobStore) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]int{"total_jobs": len(s.jobs)}
	for _, status := range []domain.JobStatus{
		domain.JobStatusReceived,
		domain.JobStatusProcessing,
		domain.JobStatusCompleted,
		domain.JobStatusCancelled,
	} {
		stats[string(status)] = 0
	}
	for _, job := range s.jobs {
		stats[string(job.Status)]++
	}
	return stats
}

// expired reports whether a finished job is past the TTL. Running jobs
// never expire.
func (s *MemoryJobStore) expired(job *Job) bool {
	if s.ttl <= 0 || !job.Status.IsTerminal() {
		return false
	}
	return s.now().Sub(job.CompletedAt) > s.ttl
}

func (s *MemoryJobStore) evictOldestLocked() {
	var oldest *Job
	for _, job := range s.jobs {
		if !job.Status.IsTerminal() {
			continue
		}
		if oldest == nil || job.CompletedAt.Before(oldest.CompletedAt) {
			oldest = job
		}
	}
	if oldest != nil {
		delete(s.jobs, oldest.ID)
	}
}
