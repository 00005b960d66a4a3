package detector

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go-detection-viewer/internal/logger"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// CommandDetector runs the ultralytics `yolo` CLI against the model
// artifact. The CLI writes the annotated image itself.
type CommandDetector struct {
	command   string
	modelPath string
	timeout   time.Duration
}

// NewCommandDetector creates a detector that shells out to command
func NewCommandDetector(command, modelPath string, timeout time.Duration) *CommandDetector {
	return &CommandDetector{
		command:   command,
		modelPath: modelPath,
		timeout:   timeout,
	}
}

func (d *CommandDetector) Name() string {
	return "command"
}

func (d *CommandDetector) Close() error {
	return nil
}

// Detect hands img to the CLI as a JPEG named opts.SourceName
func (d *CommandDetector) Detect(ctx context.Context, img image.Image, opts Options) (*Result, error) {
	srcDir, err := os.MkdirTemp("", "detect-src-*")
	if err != nil {
		return nil, fmt.Errorf("create source dir: %w", err)
	}
	defer os.RemoveAll(srcDir)

	src := filepath.Join(srcDir, opts.SourceName)
	if err := imaging.Save(img, src); err != nil {
		return nil, fmt.Errorf("write source image: %w", err)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	args := d.buildArgs(src, opts)
	logger.WithFields(logrus.Fields{
		"command": d.command,
		"args":    strings.Join(args, " "),
	}).Debug("Running detector command")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s predict: %w", d.command, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("%s predict: %w", d.command, err)
		}
		return nil, fmt.Errorf("%s predict: %w: %s", d.command, err, lastLine(msg))
	}

	// ultralytics logs its per-image summary on either stream depending on version
	output := stdout.String() + "\n" + stderr.String()
	return &Result{
		Counts:  ParseSummary(output),
		SaveDir: opts.SaveDir(),
		Raw:     strings.TrimSpace(output),
	}, nil
}

func (d *CommandDetector) buildArgs(src string, opts Options) []string {
	args := []string{
		"predict",
		"model=" + d.modelPath,
		"source=" + src,
	}
	return append(args, opts.CLIArgs()...)
}

func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
