package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/codebuildervaibhav/voice-to-text/internal/types"
)

var unsafeFilenameChars = regexp.MustCompile(`[/\\:*?"<>|\s]+`)

// LocalStorage handles saving transcripts to the local filesystem
type LocalStorage struct {
	outputDir string
	now       func() time.Time
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
		now:       time.Now,
	}
}

// SaveTranscript writes the transcript text and a metadata file under a dated
// directory (outputs/2025/01/23/) and returns the text file's path
func (ls *LocalStorage) SaveTranscript(requestName string, result *types.TranscriptionResult) (string, error) {
	now := ls.now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %w", err)
	}

	// 20250123_143022_podcast_episode_<job id prefix>
	baseFilename := fmt.Sprintf("%s_%s", now.Format("20060102_150405"), sanitizeFilename(requestName))
	if len(result.JobID) >= 8 {
		baseFilename += "_" + result.JobID[:8]
	}

	txtPath := filepath.Join(dateDir, baseFilename+".txt")
	metaPath := filepath.Join(dateDir, baseFilename+"_meta.json")

	if err := os.WriteFile(txtPath, []byte(result.Text), 0644); err != nil {
		return "", fmt.Errorf("failed to save transcript: %w", err)
	}

	metadata := map[string]interface{}{
		"job_id":            result.JobID,
		"request_name":      requestName,
		"transcription_job": result.TranscriptionJob,
		"media_uri":         result.MediaURI,
		"transcript_uri":    result.TranscriptURI,
		"duration_seconds":  result.Duration,
		"word_count":        result.WordCount,
		"language":          result.Language,
		"created_at":        result.ProcessedAt,
		"local_path":        txtPath,
		"gdrive_url":        result.GDriveURL,
	}

	metaJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return "", fmt.Errorf("failed to save metadata: %w", err)
	}

	return txtPath, nil
}

// sanitizeFilename replaces path separators, reserved characters and
// whitespace, and caps the length
func sanitizeFilename(name string) string {
	result := unsafeFilenameChars.ReplaceAllString(name, "_")
	if result == "" || result == "." || result == ".." {
		result = "untitled"
	}
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}
