package handlers

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/voice-to-text/internal/queue"
	"github.com/codebuildervaibhav/voice-to-text/internal/storage"
	"github.com/codebuildervaibhav/voice-to-text/internal/transcription"
	"github.com/codebuildervaibhav/voice-to-text/internal/types"
)

// UploadHandler handles file uploads
type UploadHandler struct {
	jobs      JobQueue
	scratch   *storage.Scratch
	maxSizeMB int
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(jobs JobQueue, scratch *storage.Scratch, maxSizeMB int) *UploadHandler {
	return &UploadHandler{
		jobs:      jobs,
		scratch:   scratch,
		maxSizeMB: maxSizeMB,
	}
}

// Handle processes the upload request
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "No file uploaded", "ERR_NO_FILE")
	}

	requestName := strings.TrimSpace(c.FormValue("name"))
	if requestName == "" {
		requestName = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}

	language := strings.TrimSpace(c.FormValue("language"))
	if language != "" && !languageCodePattern.MatchString(language) {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid language code", "ERR_INVALID_LANGUAGE")
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return errorJSON(c, fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB), "ERR_FILE_TOO_LARGE")
	}
	if file.Size == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "Uploaded file is empty", "ERR_EMPTY_FILE")
	}

	if !transcription.ValidateAudioFormat(file.Filename) {
		return errorJSON(c, fiber.StatusBadRequest, "Unsupported audio format", "ERR_INVALID_FORMAT")
	}

	src, err := file.Open()
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Failed to read uploaded file", "ERR_READ_FAILED")
	}
	defer src.Close()

	jobID := uuid.New().String()
	extension := strings.ToLower(filepath.Ext(file.Filename))
	path, size, err := h.scratch.WriteFrom(jobID+extension, src)
	if err != nil {
		log.Printf("Failed to save uploaded file: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to save file", "ERR_SAVE_FAILED")
	}
	log.Printf("Upload %s saved to %s (%d bytes)", file.Filename, path, size)

	job := queue.NewJob(jobID, requestName, types.SourceUpload, path)
	job.Language = language
	if err := submit(h.jobs, h.scratch, job); err != nil {
		status, msg, code := enqueueError(err)
		return errorJSON(c, status, msg, code)
	}

	return queued(c, jobID, "File uploaded successfully, processing started")
}
