package container

import (
	"fmt"
	"net/http"

	"go-detection-viewer/internal/config"
	"go-detection-viewer/internal/detector"
	"go-detection-viewer/internal/factory"
	"go-detection-viewer/internal/logger"
	"go-detection-viewer/internal/observer"
	"go-detection-viewer/internal/repository"
	"go-detection-viewer/internal/service"
	"go-detection-viewer/internal/storage"
	"go-detection-viewer/internal/transport"
	"go-detection-viewer/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config           *config.Config
	detector         detector.Detector
	uploadStore      storage.UploadStore
	archive          storage.Archive
	outputRepository repository.OutputRepository
	events           *observer.EventPublisher
	metrics          *observer.MetricsObserver
	detectionService service.DetectionService
	handler          http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	return NewContainerWithFactory(cfg, factory.NewComponentFactory())
}

// NewContainerWithFactory builds the dependency graph using f
func NewContainerWithFactory(cfg *config.Config, f *factory.ComponentFactory) (*Container, error) {
	det, err := f.DetectorFactory.CreateDetector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	archive, err := f.ArchiveFactory.CreateArchive(cfg)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	uploadStore := storage.NewLocalUploadStore(cfg.UploadDir)
	outputRepository := repository.NewFSOutputRepository()

	detectionService := service.NewDetectionService(
		uploadStore,
		archive,
		det,
		outputRepository,
		validation.NewUploadValidator(),
		events,
		detector.DefaultOptions().WithOutput(cfg.DetectProject, cfg.DetectName),
	)
	handler := transport.NewHandler(detectionService, metrics, cfg)

	return &Container{
		config:           cfg,
		detector:         det,
		uploadStore:      uploadStore,
		archive:          archive,
		outputRepository: outputRepository,
		events:           events,
		metrics:          metrics,
		detectionService: detectionService,
		handler:          handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Detector returns the configured detector backend
func (c *Container) Detector() detector.Detector {
	return c.detector
}

// Archive returns the upload archive
func (c *Container) Archive() storage.Archive {
	return c.archive
}

// Close releases the detector
func (c *Container) Close() error {
	return c.detector.Close()
}
