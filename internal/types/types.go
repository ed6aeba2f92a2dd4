package types

import "time"

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
	StatusCancelled  = "CANCELLED"
)

// Source type constants
const (
	SourceUpload = "upload"
	SourceGDrive = "gdrive"
	SourceStream = "stream"
)

// TranscriptionResult is what a finished job hands back to the UI and storage
type TranscriptionResult struct {
	JobID            string    `json:"job_id"`
	TranscriptionJob string    `json:"transcription_job"`
	Text             string    `json:"text"`
	Language         string    `json:"language"`
	MediaURI         string    `json:"media_uri"`
	TranscriptURI    string    `json:"transcript_uri"`
	Duration         float64   `json:"duration_seconds"`
	WordCount        int       `json:"word_count"`
	ProcessedAt      time.Time `json:"processed_at"`
	LocalPath        string    `json:"local_path,omitempty"`
	GDriveURL        string    `json:"gdrive_url,omitempty"`
}
