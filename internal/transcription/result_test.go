package transcription

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseTranscript(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "single transcript",
			input: `{"results":{"transcripts":[{"transcript":"hello world"}]}}`,
			want:  "hello world",
		},
		{
			name:  "first of many",
			input: `{"jobName":"j","results":{"transcripts":[{"transcript":"first"},{"transcript":"second"}],"items":[]},"status":"COMPLETED"}`,
			want:  "first",
		},
		{
			name:  "empty transcript text",
			input: `{"results":{"transcripts":[{"transcript":""}]}}`,
			want:  "",
		},
		{name: "missing results", input: `{"status":"COMPLETED"}`, wantErr: true},
		{name: "empty list", input: `{"results":{"transcripts":[]}}`, wantErr: true},
		{name: "missing list", input: `{"results":{}}`, wantErr: true},
		{name: "not json", input: `<html>`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTranscript(strings.NewReader(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedResult) {
					t.Fatalf("expected ErrMalformedResult, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

type memObjects map[string][]byte

func (m memObjects) Open(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	data, ok := m[bucket+"/"+key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func TestFetchFromObjectStore(t *testing.T) {
	f := &Fetcher{Objects: memObjects{
		"audiobucketdemo/transcriptions/job.json": []byte(`{"results":{"transcripts":[{"transcript":"from s3"}]}}`),
	}}

	text, err := f.Fetch(context.Background(), "s3://audiobucketdemo/transcriptions/job.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "from s3" {
		t.Fatalf("got %q", text)
	}

	if _, err := f.Fetch(context.Background(), "s3://audiobucketdemo/missing.json"); err == nil {
		t.Fatal("expected error for missing object")
	}
	if _, err := f.Fetch(context.Background(), "s3://audiobucketdemo"); err == nil {
		t.Fatal("expected error for URI without key")
	}
}

func TestFetchOverHTTPS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.json":
			w.Write([]byte(`{"results":{"transcripts":[{"transcript":"hello world"}]}}`))
		case "/bad.json":
			w.Write([]byte(`{"results":{"transcripts":[]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := &Fetcher{HTTPClient: srv.Client()}

	text, err := f.Fetch(context.Background(), srv.URL+"/ok.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("got %q", text)
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/bad.json"); !errors.Is(err, ErrMalformedResult) {
		t.Fatalf("expected ErrMalformedResult, got %v", err)
	}
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing.json"); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestFetchUnsupportedScheme(t *testing.T) {
	f := &Fetcher{}
	if _, err := f.Fetch(context.Background(), "ftp://host/file.json"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := f.Fetch(context.Background(), "s3://bucket/key.json"); err == nil {
		t.Fatal("expected error without object store")
	}
}
