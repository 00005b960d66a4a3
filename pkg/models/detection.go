package models

import "time"

// Upload is a file received by the upload form
type Upload struct {
	// OriginalFilename is the name the client sent, before sanitizing
	OriginalFilename string `json:"original_filename"`
	Filename         string `json:"filename"`
	Extension        string `json:"extension"`
	Content          []byte `json:"-"`

	// StoredPath is set once the bytes are on disk
	StoredPath string `json:"stored_path,omitempty"`
}

// Size returns the number of bytes in the upload
func (u *Upload) Size() int64 {
	return int64(len(u.Content))
}

// DetectionOutput is the annotated image located after a detector run
type DetectionOutput struct {
	Filename string `json:"filename"`
	Dir      string `json:"dir"`
	// Entries is the full directory listing the filename was taken from
	Entries []string `json:"entries,omitempty"`
}

// BoundingBox is one region reported by the detector
type BoundingBox struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Class      string  `json:"class"`
	Confidence float32 `json:"confidence"`
}

// ProcessingResult summarises one pass through the upload pipeline
type ProcessingResult struct {
	Upload            Upload          `json:"upload"`
	Output            DetectionOutput `json:"output"`
	DetectionCount    int             `json:"detection_count"`
	ProcessingTimeSec float64         `json:"processing_time_sec"`
	Timestamp         time.Time       `json:"timestamp"`
}

// ResultPage is the data rendered by result.html
type ResultPage struct {
	Filename string
	ImageURL string
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Time    string                 `json:"time"`
	Metrics map[string]interface{} `json:"metrics,omitempty"`
}
