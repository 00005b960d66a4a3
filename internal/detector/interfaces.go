package detector

import (
	"context"
	"image"

	"go-detection-viewer/pkg/models"
)

// Detector runs the pretrained object-detection model on one image and
// persists the annotated result under opts.SaveDir().
type Detector interface {
	Detect(ctx context.Context, img image.Image, opts Options) (*Result, error)

	// Name identifies the backend in logs
	Name() string

	// Lifecycle management
	Close() error
}

// HealthChecker is implemented by backends that depend on a remote service
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// Result is what the backend reported about a run
type Result struct {
	// Boxes holds per-region output when the backend reports coordinates
	Boxes []models.BoundingBox `json:"boxes,omitempty"`

	// Counts holds per-class totals when only a summary is available
	Counts map[string]int `json:"counts,omitempty"`

	SaveDir string `json:"save_dir"`
	Raw     string `json:"-"`
}

// Total returns the number of detected regions
func (r *Result) Total() int {
	if r == nil {
		return 0
	}
	if len(r.Boxes) > 0 {
		return len(r.Boxes)
	}
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}

// HasDetections reports whether any region was found
func (r *Result) HasDetections() bool {
	return r.Total() > 0
}
