package transcription

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func TestMediaFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		wantErr  bool
	}{
		{filename: "recording.wav", want: "wav"},
		{filename: "Voice.MP3", want: "mp3"},
		{filename: "memo.m4a", want: "mp4"},
		{filename: "stream.webm", want: "webm"},
		{filename: "notes.txt", wantErr: true},
		{filename: "noext", wantErr: true},
	}

	for _, tt := range tests {
		got, err := MediaFormat(tt.filename)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.filename)
			}
			if ValidateAudioFormat(tt.filename) {
				t.Errorf("%s: expected invalid format", tt.filename)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.filename, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.filename, got, tt.want)
		}
		if !ValidateAudioFormat(tt.filename) {
			t.Errorf("%s: expected valid format", tt.filename)
		}
	}
}

func TestWAVDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const sampleRate = 16000
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, sampleRate*2),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	f.Close()

	d, err := WAVDuration(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d < 1.95 || d > 2.05 {
		t.Fatalf("expected ~2s, got %f", d)
	}
}

func TestWAVDurationInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.wav")
	if err := os.WriteFile(path, []byte("definitely not audio"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := WAVDuration(path); err == nil {
		t.Fatal("expected error for invalid wav")
	}
}
