package handlers

import (
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// LogBuffer captures logs in memory, keeping the most recent lines
type LogBuffer struct {
	mu    sync.Mutex
	lines []string
	size  int
}

// NewLogBuffer creates a buffer that keeps the last size lines
func NewLogBuffer(size int) *LogBuffer {
	return &LogBuffer{
		lines: make([]string, 0, size),
		size:  size,
	}
}

func (lb *LogBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, strings.TrimRight(string(p), "\n"))
	if len(lb.lines) > lb.size {
		lb.lines = lb.lines[len(lb.lines)-lb.size:]
	}
	return len(p), nil
}

// Lines returns a copy of the buffered lines, oldest first
func (lb *LogBuffer) Lines() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}

// Health reports that the server is up
func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"version": Version,
	})
}

// Logs serves the buffered server log
func Logs(buf *LogBuffer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": buf.Lines(),
		})
	}
}
