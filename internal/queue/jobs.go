package queue

import (
	"context"
	"sync"
	"time"

	"github.com/codebuildervaibhav/voice-to-text/internal/types"
)

// Pipeline stages, reported while a job is processing
const (
	StageQueued       = "queued"
	StageUploading    = "uploading"
	StageSubmitting   = "submitting"
	StageTranscribing = "transcribing"
	StageFetching     = "fetching"
	StageSaving       = "saving"
	StageDone         = "done"
)

// Job represents a transcription job. Identity fields are set before the job
// is enqueued and never change; the rest is guarded by mu.
type Job struct {
	ID          string
	RequestName string
	SourceType  string
	FilePath    string
	Language    string
	CreatedAt   time.Time

	mu               sync.RWMutex
	status           string
	stage            string
	transcriptionJob string
	pollAttempts     int
	committed        bool
	err              error
	result           *types.TranscriptionResult
	updatedAt        time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewJob creates a new job with default values
func NewJob(id, requestName, sourceType, filePath string) *Job {
	now := time.Now()
	return &Job{
		ID:          id,
		RequestName: requestName,
		SourceType:  sourceType,
		FilePath:    filePath,
		CreatedAt:   now,
		status:      types.StatusQueued,
		stage:       StageQueued,
		updatedAt:   now,
	}
}

// JobView is a point-in-time copy of a job, safe to serialize
type JobView struct {
	ID               string    `json:"job_id"`
	RequestName      string    `json:"name"`
	SourceType       string    `json:"source"`
	Status           string    `json:"status"`
	Stage            string    `json:"stage"`
	Message          string    `json:"message"`
	TranscriptionJob string    `json:"transcription_job,omitempty"`
	PollAttempts     int       `json:"poll_attempts,omitempty"`
	Error            string    `json:"error,omitempty"`
	Transcript       *string   `json:"transcript,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Result *types.TranscriptionResult `json:"-"`
}

// Snapshot returns a consistent copy of the job's state
func (j *Job) Snapshot() JobView {
	j.mu.RLock()
	defer j.mu.RUnlock()

	v := JobView{
		ID:               j.ID,
		RequestName:      j.RequestName,
		SourceType:       j.SourceType,
		Status:           j.status,
		Stage:            j.stage,
		TranscriptionJob: j.transcriptionJob,
		PollAttempts:     j.pollAttempts,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.updatedAt,
		Result:           j.result,
	}
	if j.err != nil {
		v.Error = j.err.Error()
	}
	if j.result != nil {
		text := j.result.Text
		v.Transcript = &text
	}
	v.Message = statusMessage(v)
	return v
}

// Done reports whether the job reached a terminal state
func (j *Job) Done() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return isTerminal(j.status)
}

func isTerminal(status string) bool {
	return status == types.StatusCompleted || status == types.StatusFailed || status == types.StatusCancelled
}

func (j *Job) setStage(stage string) {
	j.mu.Lock()
	if isTerminal(j.status) {
		j.mu.Unlock()
		return
	}
	j.status = types.StatusProcessing
	j.stage = stage
	j.updatedAt = time.Now()
	j.mu.Unlock()
}

func (j *Job) setTranscriptionJob(name string) {
	j.mu.Lock()
	j.transcriptionJob = name
	j.updatedAt = time.Now()
	j.mu.Unlock()
}

func (j *Job) setPollAttempts(n int) {
	j.mu.Lock()
	j.pollAttempts = n
	j.updatedAt = time.Now()
	j.mu.Unlock()
}

// commit marks the point after which the job can no longer be cancelled:
// results are being written and will be reported as COMPLETED. It returns
// false when the job already reached a terminal state.
func (j *Job) commit() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if isTerminal(j.status) {
		return false
	}
	j.committed = true
	j.status = types.StatusProcessing
	j.stage = StageSaving
	j.updatedAt = time.Now()
	return true
}

// tryCancel moves a job that has not committed its results to CANCELLED
func (j *Job) tryCancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.committed || isTerminal(j.status) {
		return false
	}
	j.status = types.StatusCancelled
	j.stage = StageDone
	j.err = context.Canceled
	j.updatedAt = time.Now()
	return true
}

// finish moves the job into a terminal state. Only the first call wins.
func (j *Job) finish(status string, err error, result *types.TranscriptionResult) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if isTerminal(j.status) {
		return false
	}
	j.status = status
	j.stage = StageDone
	j.err = err
	j.result = result
	j.updatedAt = time.Now()
	return true
}

func statusMessage(v JobView) string {
	switch v.Status {
	case types.StatusQueued:
		return "Waiting for a worker..."
	case types.StatusCompleted:
		return "Transcription completed!"
	case types.StatusFailed:
		return "Transcription failed. Please try again."
	case types.StatusCancelled:
		return "Transcription cancelled."
	}
	switch v.Stage {
	case StageUploading:
		return "Uploading audio to storage..."
	case StageSubmitting:
		return "Creating transcription job..."
	case StageTranscribing:
		return "Transcription in progress..."
	case StageFetching:
		return "Downloading transcript..."
	case StageSaving:
		return "Saving transcript..."
	}
	return "Processing..."
}
