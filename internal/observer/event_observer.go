package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DetectionEvent represents one step of the upload pipeline
type DetectionEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Filename       string                 `json:"filename"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of pipeline event
type EventType string

const (
	// UploadReceived when an uploaded file has been stored
	UploadReceived EventType = "upload_received"
	// UploadRejected when the extension is not accepted
	UploadRejected EventType = "upload_rejected"
	// DetectionStarted when the detector is invoked
	DetectionStarted EventType = "detection_started"
	// DetectionCompleted when an output image was located
	DetectionCompleted EventType = "detection_completed"
	// DetectionFailed when decoding, detection or scanning fails
	DetectionFailed EventType = "detection_failed"
	// OutputMissing when the detector left no output to display
	OutputMissing EventType = "output_missing"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event DetectionEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event DetectionEvent)
}

// LoggingObserver logs pipeline events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

func (o *LoggingObserver) OnEvent(ctx context.Context, event DetectionEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"filename":        event.Filename,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}

	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case UploadReceived:
		entry.Info("Upload stored")
	case UploadRejected:
		entry.Warn("Unsupported file format")
	case DetectionStarted:
		entry.Info("Running detection")
	case DetectionCompleted:
		entry.Info("Processed image found")
	case DetectionFailed:
		entry.Error("Detection failed")
	case OutputMissing:
		entry.Warn("No processed images found")
	default:
		entry.Info("Pipeline event occurred")
	}
}

func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from pipeline events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalUploads        int64
	rejectedUploads     int64
	totalDetections     int64
	successfulDetection int64
	failedDetections    int64
	missingOutputs      int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

func (o *MetricsObserver) OnEvent(ctx context.Context, event DetectionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case UploadReceived:
		o.totalUploads++
	case UploadRejected:
		o.rejectedUploads++
	case DetectionStarted:
		o.totalDetections++
	case DetectionCompleted:
		o.successfulDetection++
		o.totalProcessingTime += event.ProcessingTime
	case DetectionFailed:
		o.failedDetections++
	case OutputMissing:
		o.missingOutputs++
	}
}

func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.successfulDetection > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.successfulDetection)
	}

	return map[string]interface{}{
		"total_uploads":         o.totalUploads,
		"rejected_uploads":      o.rejectedUploads,
		"total_detections":      o.totalDetections,
		"successful_detections": o.successfulDetection,
		"failed_detections":     o.failedDetections,
		"missing_outputs":       o.missingOutputs,
		"avg_processing_time":   avgProcessingTime.String(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event without waiting for them
func (p *EventPublisher) NotifyObservers(ctx context.Context, event DetectionEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		go func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}
