package metrics

import (
	"time"
)

// MetricsCollector defines the interface for collecting metrics. It is a
// superset of the report engine's recorder.
type MetricsCollector interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
	RecordWebSocketConnection(action string)
	RecordWebSocketMessage(messageType, direction string)
	RecordRateLimited(path string)

	ObserveCalculation(chartType string, valid bool, duration time.Duration)
	ObserveAssembly(rows int, duration time.Duration)
	ObserveCacheLookup(cacheName string, hit bool)
	ObserveStatUpdate(affected int, layoutChanged bool)
}

// MetricsConfig contains configuration for metrics collection
type MetricsConfig struct {
	Enabled bool
	Prefix  string
}

// NoopCollector discards everything
type NoopCollector struct{}

func (NoopCollector) RecordHTTPRequest(string, string, int, time.Duration) {}
func (NoopCollector) RecordWebSocketConnection(string)                     {}
func (NoopCollector) RecordWebSocketMessage(string, string)                {}
func (NoopCollector) RecordRateLimited(string)                             {}
func (NoopCollector) ObserveCalculation(string, bool, time.Duration)       {}
func (NoopCollector) ObserveAssembly(int, time.Duration)                   {}
func (NoopCollector) ObserveCacheLookup(string, bool)                      {}
func (NoopCollector) ObserveStatUpdate(int, bool)                          {}
