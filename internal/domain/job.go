package domain

import "time"

// JobStatus enumerates the lifecycle states a remote job reports.
type JobStatus string

const (
	JobStatusStarting   JobStatus = "starting"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCanceled   JobStatus = "canceled"
)

// Terminal reports whether polling should stop. No transition ever leaves a
// terminal state.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

// Job tracks a remote, asynchronously-processed unit of work. It is owned by
// the queue dispatcher and mutated only by polling snapshots.
type Job struct {
	ID           string
	Status       JobStatus
	ErrorMessage string
	OutputURL    string
	LogsTail     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
