package detector

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// Options controls a single detector run
type Options struct {
	// Output location: annotated images land in Project/Name
	Project string
	Name    string

	// Save persists the annotated image; ExistOK reuses an existing Name
	// directory instead of creating a numbered sibling
	Save    bool
	ExistOK bool

	// SourceName is the filename the input is handed over as. Backends keep
	// it for the annotated output.
	SourceName string

	Confidence float64
	ImageSize  int
}

// DefaultOptions returns the fixed output layout used by the upload form
func DefaultOptions() Options {
	return Options{
		Project:    filepath.Join("runs", "detect"),
		Name:       "latest_detect",
		Save:       true,
		ExistOK:    true,
		SourceName: "image0.jpg",
		Confidence: 0.25,
		ImageSize:  640,
	}
}

// SaveDir is the directory the annotated image is written to
func (opts Options) SaveDir() string {
	return filepath.Join(opts.Project, opts.Name)
}

// WithOutput returns options saving under project/name
func (opts Options) WithOutput(project, name string) Options {
	opts.Project = project
	opts.Name = name
	return opts
}

// WithConfidence sets the minimum confidence for reported regions
func (opts Options) WithConfidence(conf float64) Options {
	opts.Confidence = conf
	return opts
}

// WithoutSave disables persisting the annotated image
func (opts Options) WithoutSave() Options {
	opts.Save = false
	return opts
}

// CLIArgs renders the options as ultralytics key=value arguments
func (opts Options) CLIArgs() []string {
	args := []string{
		"project=" + opts.Project,
		"name=" + opts.Name,
		"save=" + pyBool(opts.Save),
		"exist_ok=" + pyBool(opts.ExistOK),
	}
	if opts.Confidence > 0 {
		args = append(args, "conf="+strconv.FormatFloat(opts.Confidence, 'f', -1, 64))
	}
	if opts.ImageSize > 0 {
		args = append(args, fmt.Sprintf("imgsz=%d", opts.ImageSize))
	}
	return args
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
