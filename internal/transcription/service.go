package transcription

import (
	"context"
	"errors"
	"fmt"
)

// JobStatus mirrors the managed service's job lifecycle
type JobStatus string

const (
	JobQueued     JobStatus = "QUEUED"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// IsTerminal reports whether the job will not change state again.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

var (
	// ErrJobExists is returned when the job name is already taken in the
	// service's namespace.
	ErrJobExists = errors.New("transcription job name already exists")

	// ErrPollLimit is returned when a job is still running after the
	// configured number of status checks.
	ErrPollLimit = errors.New("transcription job did not finish within poll limit")
)

// JobFailedError reports a job that reached the FAILED state
type JobFailedError struct {
	Name   string
	Reason string
}

func (e *JobFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("transcription job %s failed", e.Name)
	}
	return fmt.Sprintf("transcription job %s failed: %s", e.Name, e.Reason)
}

// JobRequest describes a job to submit. OutputBucket and OutputKey are
// optional; without them the service keeps the result itself.
type JobRequest struct {
	Name         string
	MediaURI     string
	MediaFormat  string
	LanguageCode string
	OutputBucket string
	OutputKey    string
}

// JobInfo is a snapshot of a job's remote state
type JobInfo struct {
	Name          string
	Status        JobStatus
	TranscriptURI string
	FailureReason string
}

// StatusGetter fetches the current state of a job.
type StatusGetter interface {
	GetJob(ctx context.Context, name string) (*JobInfo, error)
}

// Service is the asynchronous speech-to-text backend.
type Service interface {
	StatusGetter
	StartJob(ctx context.Context, req JobRequest) error
}
