package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector implements MetricsCollector using Prometheus metrics
// registered on its own registry
type PrometheusCollector struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	// HTTP Metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     *prometheus.CounterVec

	// WebSocket Metrics
	websocketConnections prometheus.Gauge
	websocketMessages    *prometheus.CounterVec

	// Report engine Metrics
	chartCalculations   *prometheus.CounterVec
	calculationDuration *prometheus.HistogramVec
	assemblyDuration    prometheus.Histogram
	rowsSolved          prometheus.Counter
	cacheLookups        *prometheus.CounterVec
	statUpdates         *prometheus.CounterVec
	affectedCharts      prometheus.Histogram
}

// NewPrometheusCollector creates a new Prometheus metrics collector
func NewPrometheusCollector(config *MetricsConfig) *PrometheusCollector {
	if config == nil {
		config = &MetricsConfig{
			Enabled: true,
			Prefix:  "eventstats",
		}
	}

	prefix := config.Prefix
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	collector := &PrometheusCollector{
		config:   config,
		registry: registry,
	}

	// Initialize HTTP metrics
	collector.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	collector.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	collector.httpRateLimited = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"path"},
	)

	// Initialize WebSocket metrics
	collector.websocketConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_websocket_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	collector.websocketMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"type", "direction"},
	)

	// Initialize report engine metrics
	collector.chartCalculations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_chart_calculations_total",
			Help: "Chart results calculated, by chart type and validity",
		},
		[]string{"chart_type", "valid"},
	)

	collector.calculationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_chart_calculation_duration_seconds",
			Help:    "Time to calculate one chart result",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
		[]string{"chart_type"},
	)

	collector.assemblyDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_report_assembly_duration_seconds",
			Help:    "Time to lay out a report",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	collector.rowsSolved = factory.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_report_rows_solved_total",
			Help: "Rows passed through the height solver",
		},
	)

	collector.cacheLookups = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_result_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		},
		[]string{"cache", "result"},
	)

	collector.statUpdates = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_stat_updates_total",
			Help: "Live statistic updates applied",
		},
		[]string{"layout_changed"},
	)

	collector.affectedCharts = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "_stat_update_affected_charts",
			Help:    "Charts recalculated per statistic update",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
		},
	)

	return collector
}

// Registry returns the registry the collector's metrics live on
func (pc *PrometheusCollector) Registry() *prometheus.Registry {
	return pc.registry
}

// Handler serves the registry in the Prometheus exposition format
func (pc *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(pc.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records HTTP request metrics
func (pc *PrometheusCollector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	pc.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	pc.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordRateLimited counts a request rejected by the rate limiter
func (pc *PrometheusCollector) RecordRateLimited(path string) {
	pc.httpRateLimited.WithLabelValues(path).Inc()
}

// RecordWebSocketConnection tracks connects and disconnects
func (pc *PrometheusCollector) RecordWebSocketConnection(action string) {
	switch action {
	case "connect":
		pc.websocketConnections.Inc()
	case "disconnect":
		pc.websocketConnections.Dec()
	}
}

// RecordWebSocketMessage counts one message in the given direction
func (pc *PrometheusCollector) RecordWebSocketMessage(messageType, direction string) {
	pc.websocketMessages.WithLabelValues(messageType, direction).Inc()
}

// ObserveCalculation records one chart calculation
func (pc *PrometheusCollector) ObserveCalculation(chartType string, valid bool, duration time.Duration) {
	pc.chartCalculations.WithLabelValues(chartType, strconv.FormatBool(valid)).Inc()
	pc.calculationDuration.WithLabelValues(chartType).Observe(duration.Seconds())
}

// ObserveAssembly records one report layout pass
func (pc *PrometheusCollector) ObserveAssembly(rows int, duration time.Duration) {
	pc.assemblyDuration.Observe(duration.Seconds())
	pc.rowsSolved.Add(float64(rows))
}

// ObserveCacheLookup records a result cache hit or miss
func (pc *PrometheusCollector) ObserveCacheLookup(cacheName string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	pc.cacheLookups.WithLabelValues(cacheName, result).Inc()
}

// ObserveStatUpdate records one live statistic update
func (pc *PrometheusCollector) ObserveStatUpdate(affected int, layoutChanged bool) {
	pc.statUpdates.WithLabelValues(strconv.FormatBool(layoutChanged)).Inc()
	pc.affectedCharts.Observe(float64(affected))
}
