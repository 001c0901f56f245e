package domain

// JobStatus is the state of a report job
type JobStatus string

const (
	JobStatusReceived   JobStatus = "received"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

// CanTransitionTo reports whether the job may move from s to next
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusReceived:
		return next == JobStatusProcessing || next == JobStatusCancelled
	case JobStatusProcessing:
		return next == JobStatusCompleted || next == JobStatusCancelled
	default:
		return false
	}
}
