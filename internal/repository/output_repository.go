package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go-detection-viewer/pkg/models"
)

var (
	// ErrOutputDirMissing indicates the detector never created its save directory
	ErrOutputDirMissing = errors.New("output directory does not exist")

	// ErrOutputDirEmpty indicates the save directory exists but holds no files
	ErrOutputDirEmpty = errors.New("output directory is empty")
)

// OutputRepository locates the images a detector run left behind.
type OutputRepository interface {
	// FirstProcessedImage returns the first entry of dir in the order the
	// filesystem lists it. The listing is not sorted.
	FirstProcessedImage(dir string) (*models.DetectionOutput, error)

	// ListDir returns the entry names of dir, unsorted
	ListDir(dir string) ([]string, error)
}

type fsOutputRepository struct{}

// NewFSOutputRepository creates a repository reading the local filesystem
func NewFSOutputRepository() OutputRepository {
	return &fsOutputRepository{}
}

func (r *fsOutputRepository) ListDir(dir string) ([]string, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Readdirnames keeps directory order; os.ReadDir would sort
	return f.Readdirnames(-1)
}

func (r *fsOutputRepository) FirstProcessedImage(dir string) (*models.DetectionOutput, error) {
	names, err := r.ListDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, ErrOutputDirMissing)
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrOutputDirEmpty)
	}

	return &models.DetectionOutput{
		Filename: names[0],
		Dir:      filepath.Clean(dir),
		Entries:  names,
	}, nil
}
