package handlers

import (
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/voice-to-text/internal/queue"
	"github.com/codebuildervaibhav/voice-to-text/internal/storage"
	"github.com/codebuildervaibhav/voice-to-text/internal/transcription"
	"github.com/codebuildervaibhav/voice-to-text/internal/types"
)

const gdriveDownloadURL = "https://drive.google.com/uc?export=download&id=%s"

var (
	gdriveFilePattern = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	gdriveIDPattern   = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
	gdriveBarePattern = regexp.MustCompile(`^([a-zA-Z0-9_-]{25,40})$`)
)

// GDriveHandler handles Google Drive link processing
type GDriveHandler struct {
	jobs        JobQueue
	scratch     *storage.Scratch
	client      *http.Client
	downloadURL string
	maxBytes    int64
}

// NewGDriveHandler creates a new Google Drive handler
func NewGDriveHandler(jobs JobQueue, scratch *storage.Scratch, maxSizeMB int) *GDriveHandler {
	return &GDriveHandler{
		jobs:        jobs,
		scratch:     scratch,
		client:      &http.Client{Timeout: 10 * time.Minute},
		downloadURL: gdriveDownloadURL,
		maxBytes:    int64(maxSizeMB) * 1024 * 1024,
	}
}

// GDriveRequest represents the request body
type GDriveRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Handle processes Google Drive link requests
func (h *GDriveHandler) Handle(c *fiber.Ctx) error {
	var req GDriveRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", "ERR_INVALID_BODY")
	}

	if strings.TrimSpace(req.URL) == "" {
		return errorJSON(c, fiber.StatusBadRequest, "URL is required", "ERR_NO_URL")
	}

	fileID := extractGDriveFileID(strings.TrimSpace(req.URL))
	if fileID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid Google Drive URL", "ERR_INVALID_URL")
	}

	if req.Name == "" {
		req.Name = "gdrive_file"
	}

	log.Printf("Downloading from Google Drive: %s", fileID)

	httpReq, err := http.NewRequestWithContext(c.UserContext(), http.MethodGet, fmt.Sprintf(h.downloadURL, fileID), nil)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid Google Drive URL", "ERR_INVALID_URL")
	}
	resp, err := h.client.Do(httpReq)
	if err != nil {
		log.Printf("Failed to download from Google Drive: %v", err)
		return errorJSON(c, fiber.StatusBadGateway, "Failed to download file from Google Drive", "ERR_DOWNLOAD_FAILED")
	}
	defer resp.Body.Close()

	// Drive answers private or oversized files with an HTML interstitial
	if resp.StatusCode != http.StatusOK || strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		return errorJSON(c, fiber.StatusBadRequest,
			"File not accessible (may be private or doesn't exist)", "ERR_FILE_NOT_ACCESSIBLE")
	}
	if resp.ContentLength > h.maxBytes {
		return errorJSON(c, fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large (max %dMB)", h.maxBytes/(1024*1024)), "ERR_FILE_TOO_LARGE")
	}

	extension := driveFileExtension(resp.Header.Get("Content-Disposition"))
	if !transcription.ValidateAudioFormat(extension) {
		return errorJSON(c, fiber.StatusBadRequest, "Unsupported audio format", "ERR_INVALID_FORMAT")
	}

	jobID := uuid.New().String()
	path, size, err := h.scratch.WriteFrom(jobID+extension, io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		log.Printf("Failed to save Google Drive download: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to save downloaded file", "ERR_SAVE_FAILED")
	}
	if size > h.maxBytes {
		h.scratch.Remove(path)
		return errorJSON(c, fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large (max %dMB)", h.maxBytes/(1024*1024)), "ERR_FILE_TOO_LARGE")
	}
	log.Printf("Google Drive file %s saved to %s (%d bytes)", fileID, path, size)

	job := queue.NewJob(jobID, req.Name, types.SourceGDrive, path)
	if err := submit(h.jobs, h.scratch, job); err != nil {
		status, msg, code := enqueueError(err)
		return errorJSON(c, status, msg, code)
	}

	return queued(c, jobID, "Google Drive file downloaded, processing started")
}

// driveFileExtension takes the extension from the download's filename and
// falls back to mp3 when Drive does not name the file
func driveFileExtension(disposition string) string {
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		if ext := strings.ToLower(filepath.Ext(params["filename"])); ext != "" {
			return ext
		}
	}
	return ".mp3"
}

// extractGDriveFileID extracts the file ID from various Google Drive URL formats
func extractGDriveFileID(url string) string {
	// https://drive.google.com/file/d/{ID}/view
	if matches := gdriveFilePattern.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}

	// https://drive.google.com/open?id={ID}
	if matches := gdriveIDPattern.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}

	// bare ID
	if matches := gdriveBarePattern.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}

	return ""
}
