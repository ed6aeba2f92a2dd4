package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/voice-to-text/internal/types"
)

func TestExtractGDriveFileID(t *testing.T) {
	tests := []struct {
		url, want string
	}{
		{"https://drive.google.com/file/d/1AbC_dEf-123/view?usp=sharing", "1AbC_dEf-123"},
		{"https://drive.google.com/open?id=1AbC_dEf-123", "1AbC_dEf-123"},
		{"https://drive.google.com/uc?export=download&id=XYZ987", "XYZ987"},
		{"1AbCdEfGhIjKlMnOpQrStUvWxYz012", "1AbCdEfGhIjKlMnOpQrStUvWxYz012"},
		{"https://example.com/audio.mp3", ""},
		{"short", ""},
	}
	for _, tt := range tests {
		if got := extractGDriveFileID(tt.url); got != tt.want {
			t.Errorf("extractGDriveFileID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestDriveFileExtension(t *testing.T) {
	tests := []struct {
		disposition, want string
	}{
		{`attachment; filename="Team Call.M4A"`, ".m4a"},
		{`attachment; filename=talk.flac`, ".flac"},
		{"", ".mp3"},
		{`attachment; filename="noext"`, ".mp3"},
	}
	for _, tt := range tests {
		if got := driveFileExtension(tt.disposition); got != tt.want {
			t.Errorf("driveFileExtension(%q) = %q, want %q", tt.disposition, got, tt.want)
		}
	}
}

func newDriveTestHandler(t *testing.T, handler http.HandlerFunc) (*GDriveHandler, *fakeQueue) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	q := newFakeQueue()
	h := NewGDriveHandler(q, newTestScratch(t), 1)
	h.client = srv.Client()
	h.downloadURL = srv.URL + "/uc?id=%s"
	return h, q
}

func postDrive(t *testing.T, h *GDriveHandler, body string) (int, map[string]interface{}) {
	t.Helper()
	app := fiber.New()
	app.Post("/gdrive", h.Handle)

	req := httptest.NewRequest("POST", "/gdrive", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, raw := doRequest(t, app, req)
	return resp.StatusCode, decodeMap(t, raw)
}

func TestGDriveDownloadsAndQueues(t *testing.T) {
	var requested string
	h, q := newDriveTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Query().Get("id")
		w.Header().Set("Content-Type", "audio/mp4")
		w.Header().Set("Content-Disposition", `attachment; filename="call.m4a"`)
		fmt.Fprint(w, "m4a-bytes")
	})

	status, body := postDrive(t, h, `{"url":"https://drive.google.com/file/d/FILE_123/view","name":"call"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, body)
	}
	if requested != "FILE_123" {
		t.Fatalf("expected download of FILE_123, got %q", requested)
	}

	job := q.enqueued[0]
	if job.SourceType != types.SourceGDrive || job.RequestName != "call" || filepath.Ext(job.FilePath) != ".m4a" {
		t.Fatalf("unexpected job %+v", job)
	}
	data, err := os.ReadFile(job.FilePath)
	if err != nil || string(data) != "m4a-bytes" {
		t.Fatalf("unexpected staged file %q (%v)", data, err)
	}
}

func TestGDriveErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		handler http.HandlerFunc
		status  int
		code    string
	}{
		{
			name:   "missing url",
			body:   `{"name":"x"}`,
			status: fiber.StatusBadRequest,
			code:   "ERR_NO_URL",
		},
		{
			name:   "not a drive link",
			body:   `{"url":"https://example.com/a.mp3"}`,
			status: fiber.StatusBadRequest,
			code:   "ERR_INVALID_URL",
		},
		{
			name:   "invalid body",
			body:   `{`,
			status: fiber.StatusBadRequest,
			code:   "ERR_INVALID_BODY",
		},
		{
			name: "private file",
			body: `{"url":"https://drive.google.com/open?id=PRIVATE"}`,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				fmt.Fprint(w, "<html>sign in</html>")
			},
			status: fiber.StatusBadRequest,
			code:   "ERR_FILE_NOT_ACCESSIBLE",
		},
		{
			name: "missing file",
			body: `{"url":"https://drive.google.com/open?id=GONE"}`,
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			status: fiber.StatusBadRequest,
			code:   "ERR_FILE_NOT_ACCESSIBLE",
		},
		{
			name: "too large",
			body: `{"url":"https://drive.google.com/open?id=BIG"}`,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "audio/mpeg")
				w.Write(bytes.Repeat([]byte("x"), 1024*1024+10))
			},
			status: fiber.StatusRequestEntityTooLarge,
			code:   "ERR_FILE_TOO_LARGE",
		},
		{
			name: "unsupported format",
			body: `{"url":"https://drive.google.com/open?id=DOC"}`,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/pdf")
				w.Header().Set("Content-Disposition", `attachment; filename="slides.pdf"`)
				fmt.Fprint(w, "%PDF")
			},
			status: fiber.StatusBadRequest,
			code:   "ERR_INVALID_FORMAT",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := tt.handler
			if handler == nil {
				handler = func(w http.ResponseWriter, r *http.Request) {
					t.Errorf("unexpected download request %s", r.URL)
				}
			}
			h, q := newDriveTestHandler(t, handler)
			status, body := postDrive(t, h, tt.body)
			if status != tt.status || body["code"] != tt.code {
				t.Fatalf("expected %d %s, got %d %v", tt.status, tt.code, status, body)
			}
			if len(q.enqueued) != 0 || scratchEntries(t, h.scratch) != 0 {
				t.Fatal("failed import must not leave staged files or jobs")
			}
		})
	}
}
