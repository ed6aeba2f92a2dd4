package handlers

import (
	"errors"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/voice-to-text/internal/storage"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryStore reads finished jobs back from the database
type HistoryStore interface {
	ListTranscripts(limit int) ([]storage.TranscriptRecord, error)
	GetTranscript(jobID string) (*storage.TranscriptRecord, error)
}

// HistoryHandler serves previously completed transcripts
type HistoryHandler struct {
	db HistoryStore
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(db HistoryStore) *HistoryHandler {
	return &HistoryHandler{db: db}
}

// List returns the most recent transcripts, newest first
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	transcripts, err := h.db.ListTranscripts(limit)
	if err != nil {
		log.Printf("Failed to list transcripts: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to list transcripts", "ERR_DATABASE")
	}
	if transcripts == nil {
		transcripts = []storage.TranscriptRecord{}
	}
	return c.JSON(transcripts)
}

// Text returns the stored transcript text for a job
func (h *HistoryHandler) Text(c *fiber.Ctx) error {
	transcript, err := h.db.GetTranscript(c.Params("id"))
	if errors.Is(err, storage.ErrTranscriptNotFound) {
		return errorJSON(c, fiber.StatusNotFound, "Transcript not found", "ERR_NOT_FOUND")
	}
	if err != nil {
		log.Printf("Failed to load transcript: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to load transcript", "ERR_DATABASE")
	}
	if transcript.LocalPath == "" {
		return errorJSON(c, fiber.StatusNotFound, "Transcript file path not found", "ERR_NOT_FOUND")
	}

	content, err := os.ReadFile(transcript.LocalPath)
	if err != nil {
		log.Printf("Failed to read transcript file %s: %v", transcript.LocalPath, err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to read transcript file", "ERR_READ_FAILED")
	}

	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.Send(content)
}
