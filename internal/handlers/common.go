package handlers

import (
	"errors"
	"log"
	"regexp"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/voice-to-text/internal/queue"
	"github.com/codebuildervaibhav/voice-to-text/internal/storage"
	"github.com/codebuildervaibhav/voice-to-text/internal/types"
)

// JobQueue is the part of the worker pool the handlers talk to
type JobQueue interface {
	EnqueueJob(job *queue.Job) error
	Get(id string) (queue.JobView, error)
	Cancel(id string) (queue.JobView, error)
}

var languageCodePattern = regexp.MustCompile(`^[a-zA-Z]{2,3}(-[a-zA-Z0-9]{2,4})?$`)

// errorJSON writes the standard error body
func errorJSON(c *fiber.Ctx, status int, message, code string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}

// submit hands a staged job to the queue. The staged file is removed when
// the queue refuses the job.
func submit(jobs JobQueue, scratch *storage.Scratch, job *queue.Job) error {
	if err := jobs.EnqueueJob(job); err != nil {
		scratch.Remove(job.FilePath)
		log.Printf("Failed to enqueue job %s: %v", job.ID, err)
		return err
	}
	return nil
}

// enqueueError maps a queue error to a response status and error code
func enqueueError(err error) (int, string, string) {
	switch {
	case errors.Is(err, queue.ErrQueueFull):
		return fiber.StatusServiceUnavailable, "Server is busy, please try again shortly", "ERR_QUEUE_FULL"
	case errors.Is(err, queue.ErrPoolStopped):
		return fiber.StatusServiceUnavailable, "Server is shutting down", "ERR_SHUTTING_DOWN"
	default:
		return fiber.StatusInternalServerError, "Failed to queue job", "ERR_ENQUEUE_FAILED"
	}
}

func queued(c *fiber.Ctx, jobID, message string) error {
	return c.JSON(fiber.Map{
		"job_id":  jobID,
		"status":  types.StatusQueued,
		"message": message,
	})
}
