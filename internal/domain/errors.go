package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound reports a lookup for a session that does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports user input that fails form constraints. Generation
// never starts when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SchemaIncompleteError reports a remote schema with no image-capable field.
// It is raised before submission; an image-to-video request must never fall
// back silently to a text-only payload.
type SchemaIncompleteError struct {
	Version string
}

func (e *SchemaIncompleteError) Error() string {
	return fmt.Sprintf("model version %s does not declare an image input; pick a model that accepts a reference image", e.Version)
}

// SubmissionError wraps a failure to enqueue a remote job.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string { return "job submission failed: " + e.Err.Error() }
func (e *SubmissionError) Unwrap() error { return e.Err }

// PollError wraps a failure to read a job's status.
type PollError struct {
	JobID string
	Err   error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll job %s: %v", e.JobID, e.Err)
}
func (e *PollError) Unwrap() error { return e.Err }

// ErrSucceededWithoutOutput indicates a job reached its succeeded state but
// exposed no extractable output reference. Hard failure, never retried.
var ErrSucceededWithoutOutput = errors.New("job succeeded but returned no output reference")

// CapabilityUnavailableError indicates the local renderer cannot encode video
// at all. It is terminal: the local renderer is itself the fallback.
type CapabilityUnavailableError struct {
	Err error
}

func (e *CapabilityUnavailableError) Error() string {
	return "local video encoding is unavailable: " + e.Err.Error()
}
func (e *CapabilityUnavailableError) Unwrap() error { return e.Err }

// AllCandidatesExhaustedError is raised after every candidate service and
// attempt profile has failed. Its message enumerates concrete next steps.
type AllCandidatesExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *AllCandidatesExhaustedError) Error() string {
	return fmt.Sprintf(
		"all %d generation attempts failed; try a shorter duration, lower motion intensity, a different provider, or the local backend (last error: %v)",
		e.Attempts, e.LastErr,
	)
}
func (e *AllCandidatesExhaustedError) Unwrap() error { return e.LastErr }

// overloadSignatures are message fragments that mark a remote failure as
// transient capacity pressure rather than a fatal request problem.
var overloadSignatures = []string{
	"gpu task aborted",
	"zerogpu worker error",
	"insufficient gpu",
	"insufficient gpu time",
	"quota",
	"requested",
	"timed out",
	"overloaded",
}

// IsTransientOverload classifies an error by its message content. Matching
// errors are worth retrying with a cheaper attempt profile on the same
// candidate; anything else abandons the candidate.
func IsTransientOverload(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range overloadSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
