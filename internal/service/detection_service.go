package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"os"
	"path"
	"path/filepath"
	"time"

	"go-detection-viewer/internal/detector"
	apperrors "go-detection-viewer/internal/errors"
	"go-detection-viewer/internal/logger"
	"go-detection-viewer/internal/observer"
	"go-detection-viewer/internal/repository"
	"go-detection-viewer/internal/storage"
	"go-detection-viewer/pkg/models"
	"go-detection-viewer/pkg/validation"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

const (
	msgNoProcessedImages         = "No processed images found"
	msgNoProcessedImagesInFolder = "No processed images found in the folder"
)

// DetectionService runs an upload through storage, detection and output lookup
type DetectionService interface {
	// ProcessUpload stores the upload, runs the detector on it and returns
	// the output image to display. Errors are *apperrors.AppError.
	ProcessUpload(ctx context.Context, upload *models.Upload) (*models.ProcessingResult, error)

	// OutputDir is where the detector saves annotated images
	OutputDir() string
}

type detectionService struct {
	store     storage.UploadStore
	archive   storage.Archive
	detector  detector.Detector
	outputs   repository.OutputRepository
	validator *validation.UploadValidator
	events    observer.Subject
	options   detector.Options
}

// NewDetectionService creates a new detection service. archive and events may be nil.
func NewDetectionService(
	store storage.UploadStore,
	archive storage.Archive,
	det detector.Detector,
	outputs repository.OutputRepository,
	validator *validation.UploadValidator,
	events observer.Subject,
	options detector.Options,
) DetectionService {
	if archive == nil {
		archive = storage.NewNoopArchive()
	}
	return &detectionService{
		store:     store,
		archive:   archive,
		detector:  det,
		outputs:   outputs,
		validator: validator,
		events:    events,
		options:   options,
	}
}

func (s *detectionService) OutputDir() string {
	return s.options.SaveDir()
}

func (s *detectionService) ProcessUpload(ctx context.Context, upload *models.Upload) (*models.ProcessingResult, error) {
	start := time.Now()
	upload.Extension = validation.Extension(upload.OriginalFilename)

	// The file is stored before its extension is checked
	storedPath, err := s.store.Save(upload.OriginalFilename, upload.Content)
	if err != nil {
		s.publish(ctx, observer.DetectionFailed, upload.OriginalFilename, 0, err)
		return nil, apperrors.NewInternalError("failed to store upload", err)
	}
	upload.StoredPath = storedPath
	upload.Filename = filepath.Base(storedPath)
	s.publish(ctx, observer.UploadReceived, upload.Filename, 0, nil)

	if err := s.validator.ValidateExtension(upload.OriginalFilename); err != nil {
		s.publish(ctx, observer.UploadRejected, upload.Filename, 0, err)
		return nil, err
	}

	log := logger.WithFields(logrus.Fields{
		"filename": upload.Filename,
		"path":     storedPath,
		"detector": s.detector.Name(),
	})

	log.Debug("Reading the image")
	img, err := reencodeJPEG(storedPath)
	if err != nil {
		s.publish(ctx, observer.DetectionFailed, upload.Filename, time.Since(start), err)
		return nil, apperrors.NewProcessingError("failed to read image", err)
	}

	s.publish(ctx, observer.DetectionStarted, upload.Filename, 0, nil)
	result, err := s.detector.Detect(ctx, img, s.options)
	if err != nil {
		s.publish(ctx, observer.DetectionFailed, upload.Filename, time.Since(start), err)
		return nil, apperrors.NewProcessingError("detection failed", err)
	}

	if result.HasDetections() {
		log.WithFields(logrus.Fields{
			"detections": result.Total(),
			"counts":     result.Counts,
		}).Info("Detections found")
	} else {
		log.Info("No detections were made by the model")
	}

	if names, err := s.outputs.ListDir(s.options.Project); err == nil {
		log.WithField("contents", names).Debug("Detection root contents")
	}

	output, err := s.outputs.FirstProcessedImage(s.options.SaveDir())
	if err != nil {
		return nil, s.outputError(ctx, upload.Filename, time.Since(start), err)
	}

	s.archiveRun(ctx, upload, output)

	elapsed := time.Since(start)
	s.publishEvent(ctx, observer.DetectionEvent{
		EventType:      observer.DetectionCompleted,
		Filename:       upload.Filename,
		ProcessingTime: elapsed,
		Success:        true,
		Metadata: map[string]interface{}{
			"output":     output.Filename,
			"detections": result.Total(),
		},
	})

	return &models.ProcessingResult{
		Upload:            *upload,
		Output:            *output,
		DetectionCount:    result.Total(),
		ProcessingTimeSec: elapsed.Seconds(),
		Timestamp:         time.Now(),
	}, nil
}

func (s *detectionService) outputError(ctx context.Context, filename string, elapsed time.Duration, err error) error {
	switch {
	case errors.Is(err, repository.ErrOutputDirMissing):
		s.publish(ctx, observer.OutputMissing, filename, elapsed, err)
		return apperrors.NewNotFoundError(msgNoProcessedImages, err)
	case errors.Is(err, repository.ErrOutputDirEmpty):
		s.publish(ctx, observer.OutputMissing, filename, elapsed, err)
		return apperrors.NewNotFoundError(msgNoProcessedImagesInFolder, err)
	default:
		s.publish(ctx, observer.DetectionFailed, filename, elapsed, err)
		return apperrors.NewInternalError("failed to read detection output", err)
	}
}

// archiveRun copies the upload and its annotated output to the archive.
// Failures are logged and never fail the request.
func (s *detectionService) archiveRun(ctx context.Context, upload *models.Upload, output *models.DetectionOutput) {
	stamp := time.Now().UTC().Format("20060102T150405")

	if err := s.archive.Put(ctx, path.Join("uploads", stamp, upload.Filename), upload.Content); err != nil {
		logger.WithError(err).WithField("archive", s.archive.Name()).Warn("Failed to archive upload")
	}

	data, err := os.ReadFile(filepath.Join(output.Dir, output.Filename))
	if err != nil {
		logger.WithError(err).Debug("Skipping archive of detection output")
		return
	}
	if err := s.archive.Put(ctx, path.Join("detections", stamp, output.Filename), data); err != nil {
		logger.WithError(err).WithField("archive", s.archive.Name()).Warn("Failed to archive detection output")
	}
}

func (s *detectionService) publish(ctx context.Context, eventType observer.EventType, filename string, elapsed time.Duration, err error) {
	event := observer.DetectionEvent{
		EventType:      eventType,
		Filename:       filename,
		ProcessingTime: elapsed,
		Success:        err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	s.publishEvent(ctx, event)
}

func (s *detectionService) publishEvent(ctx context.Context, event observer.DetectionEvent) {
	if s.events == nil {
		return
	}
	event.Timestamp = time.Now()
	// Observers outlive the request
	s.events.NotifyObservers(context.WithoutCancel(ctx), event)
}

// reencodeJPEG decodes the file at filename, re-encodes it as JPEG in memory and
// decodes that buffer again, so every backend sees the same JPEG pixels.
func reencodeJPEG(filename string) (image.Image, error) {
	src, err := imaging.Open(filename, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.JPEG); err != nil {
		return nil, err
	}
	return imaging.Decode(&buf)
}
