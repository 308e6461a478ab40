package model

// Writer defines a generic interface for persisting computed windows and
// detection results. The implementation decides the storage format.
type Writer interface {
	WriteWindow(window *MetricWindow) error
	WriteDetection(result *DetectionResult) error
	Close() error
}

// Notifier delivers alert messages to an external channel.
type Notifier interface {
	Send(subject, body string) error
}
