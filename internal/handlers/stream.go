package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/voice-to-text/internal/queue"
	"github.com/codebuildervaibhav/voice-to-text/internal/storage"
	"github.com/codebuildervaibhav/voice-to-text/internal/transcription"
	"github.com/codebuildervaibhav/voice-to-text/internal/types"
)

const (
	streamEndMessage    = "END"
	streamFormatPrefix  = "FORMAT:"
	defaultStreamFormat = ".webm"
	defaultStreamName   = "stream_recording"
)

var errStreamTooLarge = errors.New("recording exceeds size limit")

// StreamHandler handles WebSocket audio streaming from the browser recorder
type StreamHandler struct {
	jobs     JobQueue
	scratch  *storage.Scratch
	maxBytes int64
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(jobs JobQueue, scratch *storage.Scratch, maxSizeMB int) *StreamHandler {
	return &StreamHandler{
		jobs:     jobs,
		scratch:  scratch,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
	}
}

// recording accumulates the frames of one streaming session
type recording struct {
	id    string
	name  string
	ext   string
	limit int64
	buf   bytes.Buffer
}

func newRecording(limit int64) *recording {
	return &recording{
		id:    uuid.New().String(),
		ext:   defaultStreamFormat,
		limit: limit,
	}
}

// control applies a text frame and reports whether the stream has ended.
// "FORMAT:<ext>" selects the container, "END" finishes, anything else names
// the recording.
func (r *recording) control(msg string) bool {
	msg = strings.TrimSpace(msg)
	switch {
	case msg == streamEndMessage:
		return true
	case strings.HasPrefix(msg, streamFormatPrefix):
		ext := "." + strings.ToLower(strings.TrimPrefix(msg, streamFormatPrefix))
		if transcription.ValidateAudioFormat(ext) {
			r.ext = ext
		} else {
			log.Printf("Stream %s: ignoring unsupported format %q", r.id, ext)
		}
	case msg != "" && len(msg) < 200:
		r.name = msg
		log.Printf("Stream name set to: %s", r.name)
	}
	return false
}

func (r *recording) append(data []byte) error {
	if r.limit > 0 && int64(r.buf.Len()+len(data)) > r.limit {
		return errStreamTooLarge
	}
	r.buf.Write(data)
	return nil
}

// streamConn is the part of a WebSocket connection the recorder uses
type streamConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
}

// Handle processes WebSocket connections
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()
	h.serve(c)
}

// serve reads frames until END. A connection that drops before END is
// discarded without staging anything.
func (h *StreamHandler) serve(c streamConn) {
	rec := newRecording(h.maxBytes)
	log.Printf("WebSocket connection established: %s", rec.id)

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			log.Printf("WebSocket read error on stream %s before END, discarding %d bytes: %v",
				rec.id, rec.buf.Len(), err)
			return
		}

		if messageType == websocket.TextMessage {
			if rec.control(string(message)) {
				log.Printf("Received END signal, processing stream %s...", rec.id)
				break
			}
			continue
		}

		if messageType == websocket.BinaryMessage {
			if err := rec.append(message); err != nil {
				log.Printf("Stream %s: %v", rec.id, err)
				c.WriteJSON(fiber.Map{
					"error": fmt.Sprintf("Recording too large (max %dMB)", h.maxBytes/(1024*1024)),
					"code":  "ERR_FILE_TOO_LARGE",
				})
				return
			}
		}
	}

	if err := c.WriteJSON(h.finish(rec)); err != nil {
		log.Printf("Stream %s: failed to send reply: %v", rec.id, err)
	}
}

// finish stages the buffered audio, enqueues it and returns the reply frame
func (h *StreamHandler) finish(rec *recording) fiber.Map {
	if rec.buf.Len() == 0 {
		log.Printf("No audio data received in stream %s", rec.id)
		return fiber.Map{"error": "No audio received", "code": "ERR_NO_AUDIO"}
	}
	if rec.name == "" {
		rec.name = defaultStreamName
	}

	path, err := h.scratch.Write(rec.id+rec.ext, rec.buf.Bytes())
	if err != nil {
		log.Printf("Failed to save stream buffer: %v", err)
		return fiber.Map{"error": "Failed to save recording", "code": "ERR_SAVE_FAILED"}
	}
	log.Printf("Stream saved to %s (%d bytes)", path, rec.buf.Len())

	job := queue.NewJob(rec.id, rec.name, types.SourceStream, path)
	if err := submit(h.jobs, h.scratch, job); err != nil {
		_, msg, code := enqueueError(err)
		return fiber.Map{"error": msg, "code": code}
	}
	return fiber.Map{"job_id": rec.id, "status": types.StatusQueued}
}
