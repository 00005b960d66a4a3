package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go-detection-viewer/internal/detector"
	apperrors "go-detection-viewer/internal/errors"
	"go-detection-viewer/internal/repository"
	"go-detection-viewer/internal/storage"
	"go-detection-viewer/pkg/models"
	"go-detection-viewer/pkg/validation"
)

// fakeDetector writes a single file named output into the save directory
type fakeDetector struct {
	mu     sync.Mutex
	calls  int
	output string
	err    error
	seen   image.Image
}

func (f *fakeDetector) Detect(ctx context.Context, img image.Image, opts detector.Options) (*detector.Result, error) {
	f.mu.Lock()
	f.calls++
	f.seen = img
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if f.output != "" {
		if err := os.MkdirAll(opts.SaveDir(), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(filepath.Join(opts.SaveDir(), f.output), []byte("annotated"), 0o644); err != nil {
			return nil, err
		}
	}
	return &detector.Result{Counts: map[string]int{"dog": 1}, SaveDir: opts.SaveDir()}, nil
}

func (f *fakeDetector) Name() string { return "fake" }
func (f *fakeDetector) Close() error { return nil }

func (f *fakeDetector) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingArchive struct {
	mu    sync.Mutex
	names []string
}

func (a *recordingArchive) Put(ctx context.Context, name string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.names = append(a.names, name)
	return nil
}

func (a *recordingArchive) Name() string { return "recording" }

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{200, 100, 50, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type testEnv struct {
	service  DetectionService
	detector *fakeDetector
	archive  *recordingArchive
	uploads  string
	project  string
}

func newTestEnv(t *testing.T, det *fakeDetector) *testEnv {
	t.Helper()
	root := t.TempDir()
	uploads := filepath.Join(root, "static", "uploads")
	project := filepath.Join(root, "runs", "detect")
	archive := &recordingArchive{}

	svc := NewDetectionService(
		storage.NewLocalUploadStore(uploads),
		archive,
		det,
		repository.NewFSOutputRepository(),
		validation.NewUploadValidator(),
		nil,
		detector.DefaultOptions().WithOutput(project, "latest_detect"),
	)
	return &testEnv{service: svc, detector: det, archive: archive, uploads: uploads, project: project}
}

func TestProcessUpload_RedirectsToDetectorOutput(t *testing.T) {
	env := newTestEnv(t, &fakeDetector{output: "X"})

	upload := &models.Upload{OriginalFilename: "holiday photo.png", Content: pngBytes(t)}
	result, err := env.service.ProcessUpload(context.Background(), upload)
	if err != nil {
		t.Fatalf("ProcessUpload failed: %v", err)
	}

	if result.Output.Filename != "X" {
		t.Errorf("Expected output X, got %s", result.Output.Filename)
	}
	if result.Upload.Filename != "holiday_photo.png" {
		t.Errorf("Expected sanitized filename, got %s", result.Upload.Filename)
	}
	if result.DetectionCount != 1 {
		t.Errorf("Expected 1 detection, got %d", result.DetectionCount)
	}
	if env.detector.Calls() != 1 {
		t.Errorf("Expected detector to be called once, got %d", env.detector.Calls())
	}
	if env.detector.seen == nil || env.detector.seen.Bounds().Dx() != 8 {
		t.Error("Expected detector to receive the decoded 8x8 image")
	}
	if len(env.archive.names) != 2 {
		t.Errorf("Expected upload and output to be archived, got %v", env.archive.names)
	}
}

func TestProcessUpload_UnsupportedExtension(t *testing.T) {
	tests := []struct {
		name     string
		filename string
	}{
		{"gif", "anim.gif"},
		{"no extension", "picture"},
		{"double extension", "photo.jpg.exe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &fakeDetector{output: "X"})

			_, err := env.service.ProcessUpload(context.Background(), &models.Upload{
				OriginalFilename: tt.filename,
				Content:          []byte("not an image"),
			})
			if !apperrors.IsType(err, apperrors.ErrorTypeUnsupportedFormat) {
				t.Fatalf("Expected unsupported format error, got %v", err)
			}
			if apperrors.UserMessage(err) != validation.UnsupportedFormatMessage {
				t.Errorf("Unexpected message %q", apperrors.UserMessage(err))
			}
			if apperrors.GetStatusCode(err) != http.StatusOK {
				t.Errorf("Expected status 200, got %d", apperrors.GetStatusCode(err))
			}
			if env.detector.Calls() != 0 {
				t.Error("Expected detector not to be invoked")
			}

			// Rejected uploads are still written to the upload directory
			if _, err := os.Stat(filepath.Join(env.uploads, validation.SanitizeFilename(tt.filename))); err != nil {
				t.Errorf("Expected rejected upload on disk: %v", err)
			}
		})
	}
}

func TestProcessUpload_NoOutput(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		env := newTestEnv(t, &fakeDetector{})

		_, err := env.service.ProcessUpload(context.Background(), &models.Upload{OriginalFilename: "a.png", Content: pngBytes(t)})
		if apperrors.GetStatusCode(err) != http.StatusNotFound {
			t.Fatalf("Expected 404, got %v", err)
		}
		if apperrors.UserMessage(err) != "No processed images found" {
			t.Errorf("Unexpected message %q", apperrors.UserMessage(err))
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		env := newTestEnv(t, &fakeDetector{})
		if err := os.MkdirAll(filepath.Join(env.project, "latest_detect"), 0o755); err != nil {
			t.Fatal(err)
		}

		_, err := env.service.ProcessUpload(context.Background(), &models.Upload{OriginalFilename: "a.jpg", Content: pngBytes(t)})
		if apperrors.GetStatusCode(err) != http.StatusNotFound {
			t.Fatalf("Expected 404, got %v", err)
		}
		if apperrors.UserMessage(err) != "No processed images found in the folder" {
			t.Errorf("Unexpected message %q", apperrors.UserMessage(err))
		}
	})
}

func TestProcessUpload_Failures(t *testing.T) {
	t.Run("undecodable image", func(t *testing.T) {
		env := newTestEnv(t, &fakeDetector{output: "X"})

		_, err := env.service.ProcessUpload(context.Background(), &models.Upload{OriginalFilename: "broken.jpg", Content: []byte("garbage")})
		if apperrors.GetStatusCode(err) != http.StatusInternalServerError {
			t.Fatalf("Expected 500, got %v", err)
		}
		if !strings.HasPrefix(apperrors.UserMessage(err), "An error occurred: ") {
			t.Errorf("Unexpected message %q", apperrors.UserMessage(err))
		}
		if env.detector.Calls() != 0 {
			t.Error("Expected detector not to be invoked for an undecodable image")
		}
	})

	t.Run("detector error", func(t *testing.T) {
		env := newTestEnv(t, &fakeDetector{err: errors.New("model file best.pt not found")})

		_, err := env.service.ProcessUpload(context.Background(), &models.Upload{OriginalFilename: "a.png", Content: pngBytes(t)})
		if apperrors.GetStatusCode(err) != http.StatusInternalServerError {
			t.Fatalf("Expected 500, got %v", err)
		}
		if apperrors.UserMessage(err) != "An error occurred: model file best.pt not found" {
			t.Errorf("Unexpected message %q", apperrors.UserMessage(err))
		}
	})

	t.Run("empty sanitized filename", func(t *testing.T) {
		env := newTestEnv(t, &fakeDetector{output: "X"})

		_, err := env.service.ProcessUpload(context.Background(), &models.Upload{OriginalFilename: "../", Content: pngBytes(t)})
		if apperrors.GetStatusCode(err) != http.StatusInternalServerError {
			t.Fatalf("Expected 500, got %v", err)
		}
		if !errors.Is(err, storage.ErrEmptyFilename) {
			t.Errorf("Expected ErrEmptyFilename in chain, got %v", err)
		}
	})
}

func TestProcessUpload_OverwritesSameFilename(t *testing.T) {
	env := newTestEnv(t, &fakeDetector{output: "X"})
	ctx := context.Background()

	first := pngBytes(t)
	if _, err := env.service.ProcessUpload(ctx, &models.Upload{OriginalFilename: "same.png", Content: first}); err != nil {
		t.Fatalf("first upload failed: %v", err)
	}

	second := append(pngBytes(t), []byte("trailing")...)
	if _, err := env.service.ProcessUpload(ctx, &models.Upload{OriginalFilename: "same.png", Content: second}); err != nil {
		t.Fatalf("second upload failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(env.uploads, "same.png"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(got, second) {
		t.Error("Expected second upload to overwrite the first")
	}
}

func TestOutputDir(t *testing.T) {
	env := newTestEnv(t, &fakeDetector{})
	if env.service.OutputDir() != filepath.Join(env.project, "latest_detect") {
		t.Errorf("Unexpected output dir %s", env.service.OutputDir())
	}
}
