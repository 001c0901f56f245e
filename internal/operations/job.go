package operations

import (
	"time"

	"pqmeta/internal/exporter"
	"pqmeta/pkg/contracts/domain"
)

// Job is one extraction batch. The orchestrator owns a Job while it runs;
// stores keep copies.
type Job struct {
	ID          string              `json:"id"`
	Status      domain.JobStatus    `json:"status"`
	Files       []string            `json:"files"`
	CreatedAt   time.Time           `json:"created_at"`
	StartedAt   time.Time           `json:"started_at,omitempty"`
	CompletedAt time.Time           `json:"completed_at,omitempty"`
	Error       string              `json:"error,omitempty"`
	Result      *domain.BatchResult `json:"result,omitempty"`
	Document    *exporter.Document  `json:"-"`
}

func newJob(id string, files []string, now time.Time) *Job {
	return &Job{
		ID:        id,
		Status:    domain.JobStatusReceived,
		Files:     files,
		CreatedAt: now,
	}
}

// transition moves the job to next, stamping the matching timestamp
func (j *Job) transition(next domain.JobStatus, now time.Time) error {
	if !j.Status.CanTransitionTo(next) {
		return invalidTransition(j.ID, j.Status, next)
	}
	j.Status = next
	switch next {
	case domain.JobStatusProcessing:
		j.StartedAt = now
	case domain.JobStatusCompleted, domain.JobStatusCancelled:
		j.CompletedAt = now
	}
	return nil
}

// Duration returns the processing time, or zero if the job never started
func (j *Job) Duration() time.Duration {
	if j.StartedAt.IsZero() || j.CompletedAt.IsZero() {
		return 0
	}
	return j.CompletedAt.Sub(j.StartedAt)
}

// Metadata summarizes a job for API responses
func (j *Job) Metadata() domain.ReportMetadata {
	md := domain.ReportMetadata{
		JobID:          j.ID,
		FileCount:      len(j.Files),
		ProcessingTime: j.Duration(),
		GeneratedAt:    j.CompletedAt,
	}
	if j.Result != nil {
		md.Succeeded = j.Result.Succeeded()
		md.Failed = j.Result.Failed()
	}
	return md
}

// clone returns a copy safe to hand out of a store. The result and document
// are shared; neither is mutated after completion.
func (j *Job) clone() *Job {
	c := *j
	c.Files = append([]string(nil), j.Files...)
	return &c
}
