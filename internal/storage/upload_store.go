package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go-detection-viewer/pkg/validation"
)

// ErrEmptyFilename is returned when nothing is left of a filename after sanitizing
var ErrEmptyFilename = errors.New("filename is empty after sanitizing")

// UploadStore writes uploaded files into a single flat directory.
type UploadStore interface {
	// Save stores data under the sanitized form of filename, replacing any
	// earlier file with the same name, and returns the path written.
	Save(filename string, data []byte) (string, error)
	Dir() string
}

type localUploadStore struct {
	dir string
}

// NewLocalUploadStore creates a store rooted at dir
func NewLocalUploadStore(dir string) UploadStore {
	return &localUploadStore{dir: dir}
}

func (s *localUploadStore) Dir() string {
	return s.dir
}

func (s *localUploadStore) Save(filename string, data []byte) (string, error) {
	name := validation.SanitizeFilename(filename)
	if name == "" {
		return "", fmt.Errorf("save %q: %w", filename, ErrEmptyFilename)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}
