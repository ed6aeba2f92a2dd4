package storage

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Scratch stages incoming audio in a local directory until it is uploaded
type Scratch struct {
	dir string
}

// NewScratch creates the scratch directory if needed
func NewScratch(dir string) (*Scratch, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &Scratch{dir: dir}, nil
}

// Dir returns the scratch directory
func (s *Scratch) Dir() string {
	return s.dir
}

// Path returns where a staged file with this name lives
func (s *Scratch) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

// Write stores data under name and returns the file path
func (s *Scratch) Write(name string, data []byte) (string, error) {
	path := s.Path(name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", name, err)
	}
	return path, nil
}

// WriteFrom copies r into a staged file and returns its path and size. A
// partially written file is removed.
func (s *Scratch) WriteFrom(name string, r io.Reader) (string, int64, error) {
	path := s.Path(name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", 0, fmt.Errorf("failed to stage %s: %w", name, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("failed to stage %s: %w", name, err)
	}
	return path, n, nil
}

// Remove deletes a staged file. Missing files are not an error.
func (s *Scratch) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to cleanup temp file %s: %v", path, err)
	}
}
