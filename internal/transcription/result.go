package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrMalformedResult is returned when a result document does not carry a
// transcript where the service is expected to put it.
var ErrMalformedResult = errors.New("malformed transcription result")

// resultDocument matches the part of the service's output JSON we read:
// {"results": {"transcripts": [{"transcript": "..."}]}}
type resultDocument struct {
	JobName string `json:"jobName"`
	Results *struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

// ParseTranscript extracts results.transcripts[0].transcript
func ParseTranscript(r io.Reader) (string, error) {
	var doc resultDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if doc.Results == nil {
		return "", fmt.Errorf("%w: missing results", ErrMalformedResult)
	}
	if len(doc.Results.Transcripts) == 0 {
		return "", fmt.Errorf("%w: empty transcripts list", ErrMalformedResult)
	}
	return doc.Results.Transcripts[0].Transcript, nil
}

// ObjectReader opens an object in a bucket.
type ObjectReader interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Fetcher retrieves result documents either from object storage (s3:// URIs)
// or over HTTPS (presigned URIs handed out by the service).
type Fetcher struct {
	Objects    ObjectReader
	HTTPClient *http.Client
}

// Fetch downloads the document at uri and returns the transcript text
func (f *Fetcher) Fetch(ctx context.Context, uri string) (string, error) {
	body, err := f.open(ctx, uri)
	if err != nil {
		return "", err
	}
	defer body.Close()

	text, err := ParseTranscript(body)
	if err != nil {
		return "", fmt.Errorf("result %s: %w", uri, err)
	}
	return text, nil
}

func (f *Fetcher) open(ctx context.Context, uri string) (io.ReadCloser, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid result URI %q: %w", uri, err)
	}

	switch u.Scheme {
	case "s3":
		if f.Objects == nil {
			return nil, fmt.Errorf("no object store configured for %s", uri)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("invalid result URI %q: bucket and key required", uri)
		}
		return f.Objects.Open(ctx, u.Host, key)

	case "http", "https":
		client := f.HTTPClient
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build result request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to download result: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to download result: status %d", resp.StatusCode)
		}
		return resp.Body, nil

	default:
		return nil, fmt.Errorf("unsupported result URI scheme %q", u.Scheme)
	}
}
