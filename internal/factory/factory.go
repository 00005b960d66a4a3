package factory

import (
	"fmt"

	"go-detection-viewer/internal/config"
	"go-detection-viewer/internal/detector"
	"go-detection-viewer/internal/storage"
)

// DetectorFactory creates detector backends
type DetectorFactory interface {
	CreateDetector(cfg *config.Config) (detector.Detector, error)
}

// ArchiveFactory creates upload archives
type ArchiveFactory interface {
	CreateArchive(cfg *config.Config) (storage.Archive, error)
}

type detectorFactory struct{}

// NewDetectorFactory creates a new detector factory
func NewDetectorFactory() DetectorFactory {
	return &detectorFactory{}
}

// CreateDetector creates the backend named by cfg.DetectorBackend
func (f *detectorFactory) CreateDetector(cfg *config.Config) (detector.Detector, error) {
	switch cfg.DetectorBackend {
	case config.BackendCommand:
		return detector.NewCommandDetector(cfg.DetectorCommand, cfg.ModelPath, cfg.DetectionTimeout), nil
	case config.BackendHTTP:
		if cfg.InferenceURL == "" {
			return nil, fmt.Errorf("http detector requires an inference URL")
		}
		return detector.NewHTTPDetector(cfg.InferenceURL, cfg.ModelPath, cfg.DetectionTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported detector backend: %s", cfg.DetectorBackend)
	}
}

type archiveFactory struct{}

// NewArchiveFactory creates a new archive factory
func NewArchiveFactory() ArchiveFactory {
	return &archiveFactory{}
}

// CreateArchive returns the Azure archive when an account is configured
func (f *archiveFactory) CreateArchive(cfg *config.Config) (storage.Archive, error) {
	if cfg.AzureAccountName == "" {
		return storage.NewNoopArchive(), nil
	}
	return storage.NewAzureArchive(cfg.AzureAccountName, cfg.AzureAccountKey, cfg.AzureContainer, "")
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	DetectorFactory DetectorFactory
	ArchiveFactory  ArchiveFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory() *ComponentFactory {
	return &ComponentFactory{
		DetectorFactory: NewDetectorFactory(),
		ArchiveFactory:  NewArchiveFactory(),
	}
}
