package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/voice-to-text/internal/queue"
	"github.com/codebuildervaibhav/voice-to-text/internal/types"
)

// transcriptFilename is the name offered for transcript downloads
const transcriptFilename = "transcript.txt"

// JobsHandler exposes the state of queued and running jobs
type JobsHandler struct {
	jobs JobQueue
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(jobs JobQueue) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// Status returns the current state of a job, including the transcript once
// it has completed
func (h *JobsHandler) Status(c *fiber.Ctx) error {
	view, err := h.jobs.Get(c.Params("id"))
	if err != nil {
		return jobLookupError(c, err)
	}
	return c.JSON(view)
}

// Cancel stops a queued or running job
func (h *JobsHandler) Cancel(c *fiber.Ctx) error {
	view, err := h.jobs.Cancel(c.Params("id"))
	if err != nil {
		return jobLookupError(c, err)
	}
	if view.Status != types.StatusCancelled {
		return errorJSON(c, fiber.StatusConflict, "Job has already finished or is saving results", "ERR_JOB_FINISHED")
	}
	return c.JSON(view)
}

// Download sends the finished transcript as a text attachment
func (h *JobsHandler) Download(c *fiber.Ctx) error {
	view, err := h.jobs.Get(c.Params("id"))
	if err != nil {
		return jobLookupError(c, err)
	}
	if view.Status != types.StatusCompleted || view.Transcript == nil {
		return errorJSON(c, fiber.StatusConflict, "Transcript is not ready", "ERR_NOT_READY")
	}

	c.Attachment(transcriptFilename)
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.SendString(*view.Transcript)
}

func jobLookupError(c *fiber.Ctx, err error) error {
	if errors.Is(err, queue.ErrJobNotFound) {
		return errorJSON(c, fiber.StatusNotFound, "Job not found", "ERR_JOB_NOT_FOUND")
	}
	return errorJSON(c, fiber.StatusInternalServerError, err.Error(), "ERR_INTERNAL")
}
