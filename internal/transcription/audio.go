package transcription

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
)

// mediaFormats maps file extensions to the media formats the service accepts
var mediaFormats = map[string]string{
	".wav":  "wav",
	".mp3":  "mp3",
	".mp4":  "mp4",
	".m4a":  "mp4",
	".flac": "flac",
	".ogg":  "ogg",
	".webm": "webm",
	".amr":  "amr",
}

// ValidateAudioFormat checks if the file format is supported
func ValidateAudioFormat(filename string) bool {
	_, ok := mediaFormats[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// MediaFormat returns the service media format for filename
func MediaFormat(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	format, ok := mediaFormats[ext]
	if !ok {
		return "", fmt.Errorf("unsupported audio format %q", ext)
	}
	return format, nil
}

// WAVDuration reads the header of a WAV file and returns its length in
// seconds.
func WAVDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%s is not a valid WAV file", filepath.Base(path))
	}
	d, err := dec.Duration()
	if err != nil {
		return 0, fmt.Errorf("failed to read WAV duration: %w", err)
	}
	return d.Seconds(), nil
}
