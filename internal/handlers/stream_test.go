package handlers

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/voice-to-text/internal/queue"
	"github.com/codebuildervaibhav/voice-to-text/internal/types"
)

func TestRecordingControlFrames(t *testing.T) {
	rec := newRecording(0)
	if rec.ext != ".webm" {
		t.Fatalf("expected default .webm, got %s", rec.ext)
	}

	if rec.control("standup notes") {
		t.Fatal("a name frame must not end the stream")
	}
	if rec.name != "standup notes" {
		t.Fatalf("expected name to be set, got %q", rec.name)
	}

	rec.control("FORMAT:ogg")
	if rec.ext != ".ogg" {
		t.Fatalf("expected .ogg, got %s", rec.ext)
	}
	rec.control("FORMAT:exe")
	if rec.ext != ".ogg" {
		t.Fatalf("unsupported format should be ignored, got %s", rec.ext)
	}

	if !rec.control("END") {
		t.Fatal("END must finish the stream")
	}
}

func TestRecordingLimit(t *testing.T) {
	rec := newRecording(4)
	if err := rec.append([]byte("abc")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := rec.append([]byte("de")); !errors.Is(err, errStreamTooLarge) {
		t.Fatalf("expected errStreamTooLarge, got %v", err)
	}
	if rec.buf.Len() != 3 {
		t.Fatalf("rejected chunk must not be buffered, have %d bytes", rec.buf.Len())
	}
}

func TestStreamFinishQueuesRecording(t *testing.T) {
	q := newFakeQueue()
	h := NewStreamHandler(q, newTestScratch(t), 10)

	rec := newRecording(h.maxBytes)
	rec.append([]byte("chunk-1"))
	rec.append([]byte("chunk-2"))

	reply := h.finish(rec)
	if reply["job_id"] != rec.id || reply["status"] != types.StatusQueued {
		t.Fatalf("unexpected reply %v", reply)
	}

	job := q.enqueued[0]
	if job.RequestName != defaultStreamName || job.SourceType != types.SourceStream {
		t.Fatalf("unexpected job %+v", job)
	}
	if filepath.Ext(job.FilePath) != ".webm" {
		t.Fatalf("expected .webm file, got %s", job.FilePath)
	}
	data, err := os.ReadFile(job.FilePath)
	if err != nil || string(data) != "chunk-1chunk-2" {
		t.Fatalf("unexpected staged audio %q (%v)", data, err)
	}
}

func TestStreamFinishWithoutAudio(t *testing.T) {
	q := newFakeQueue()
	h := NewStreamHandler(q, newTestScratch(t), 10)

	reply := h.finish(newRecording(h.maxBytes))
	if reply["code"] != "ERR_NO_AUDIO" {
		t.Fatalf("expected ERR_NO_AUDIO, got %v", reply)
	}
	if len(q.enqueued) != 0 {
		t.Fatal("nothing should be queued")
	}
}

func TestStreamFinishQueueFull(t *testing.T) {
	q := newFakeQueue()
	q.enqueueErr = queue.ErrQueueFull
	scratch := newTestScratch(t)
	h := NewStreamHandler(q, scratch, 10)

	rec := newRecording(h.maxBytes)
	rec.append([]byte("audio"))
	if reply := h.finish(rec); reply["code"] != "ERR_QUEUE_FULL" {
		t.Fatalf("expected ERR_QUEUE_FULL, got %v", reply)
	}
	if n := scratchEntries(t, scratch); n != 0 {
		t.Fatalf("expected staged recording to be removed, found %d entries", n)
	}
}

type frame struct {
	messageType int
	data        string
}

// scriptedConn replays frames and then fails every read with err
type scriptedConn struct {
	frames  []frame
	err     error
	replies []fiber.Map
}

func (c *scriptedConn) ReadMessage() (int, []byte, error) {
	if len(c.frames) == 0 {
		return 0, nil, c.err
	}
	f := c.frames[0]
	c.frames = c.frames[1:]
	return f.messageType, []byte(f.data), nil
}

func (c *scriptedConn) WriteJSON(v interface{}) error {
	c.replies = append(c.replies, v.(fiber.Map))
	return nil
}

var errEndOfScript = errors.New("end of script")

func TestStreamServeQueuesOnEnd(t *testing.T) {
	q := newFakeQueue()
	h := NewStreamHandler(q, newTestScratch(t), 10)

	conn := &scriptedConn{
		frames: []frame{
			{websocket.TextMessage, "standup"},
			{websocket.BinaryMessage, "audio"},
			{websocket.TextMessage, "END"},
		},
		err: errEndOfScript,
	}
	h.serve(conn)

	if len(q.enqueued) != 1 || q.enqueued[0].RequestName != "standup" {
		t.Fatalf("expected one queued recording, got %d", len(q.enqueued))
	}
	if len(conn.replies) != 1 || conn.replies[0]["job_id"] != q.enqueued[0].ID {
		t.Fatalf("unexpected replies %v", conn.replies)
	}
}

func TestStreamServeDiscardsDroppedConnection(t *testing.T) {
	q := newFakeQueue()
	scratch := newTestScratch(t)
	h := NewStreamHandler(q, scratch, 10)

	// the client goes away after one chunk without sending END
	conn := &scriptedConn{
		frames: []frame{
			{websocket.TextMessage, "standup"},
			{websocket.BinaryMessage, "partial-audio"},
		},
		err: errors.New("websocket: close 1006 (abnormal closure): unexpected EOF"),
	}
	h.serve(conn)

	if len(q.enqueued) != 0 {
		t.Fatalf("dropped stream must not be queued, got %d jobs", len(q.enqueued))
	}
	if n := scratchEntries(t, scratch); n != 0 {
		t.Fatalf("dropped stream must not be staged, found %d entries", n)
	}
	if len(conn.replies) != 0 {
		t.Fatalf("no reply expected on a dead connection, got %v", conn.replies)
	}
}

func TestStreamServeRejectsOversizedRecording(t *testing.T) {
	q := newFakeQueue()
	h := NewStreamHandler(q, newTestScratch(t), 0)
	h.maxBytes = 4

	conn := &scriptedConn{
		frames: []frame{{websocket.BinaryMessage, "too much audio"}},
		err:    errEndOfScript,
	}
	h.serve(conn)

	if len(q.enqueued) != 0 || len(conn.replies) != 1 || conn.replies[0]["code"] != "ERR_FILE_TOO_LARGE" {
		t.Fatalf("expected size rejection, got jobs=%d replies=%v", len(q.enqueued), conn.replies)
	}
}
