package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector_RecordsEngineMetrics(t *testing.T) {
	pc := NewPrometheusCollector(&MetricsConfig{Enabled: true, Prefix: "test"})

	pc.ObserveCalculation("kpi", true, time.Millisecond)
	pc.ObserveCalculation("kpi", true, time.Millisecond)
	pc.ObserveCalculation("bar", false, time.Millisecond)
	pc.ObserveCacheLookup("memory", true)
	pc.ObserveCacheLookup("memory", false)
	pc.ObserveAssembly(3, time.Millisecond)
	pc.ObserveStatUpdate(2, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(pc.chartCalculations.WithLabelValues("kpi", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pc.chartCalculations.WithLabelValues("bar", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pc.cacheLookups.WithLabelValues("memory", "hit")))
	assert.Equal(t, 3.0, testutil.ToFloat64(pc.rowsSolved))
	assert.Equal(t, 1.0, testutil.ToFloat64(pc.statUpdates.WithLabelValues("true")))
}

func TestPrometheusCollector_CollectorsAreIndependent(t *testing.T) {
	a := NewPrometheusCollector(nil)
	b := NewPrometheusCollector(nil)

	a.RecordWebSocketConnection("connect")
	a.RecordWebSocketConnection("connect")
	b.RecordWebSocketConnection("connect")
	a.RecordWebSocketConnection("disconnect")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.websocketConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.websocketConnections))
}

func TestPrometheusCollector_Handler(t *testing.T) {
	pc := NewPrometheusCollector(&MetricsConfig{Prefix: "eventstats"})
	pc.RecordHTTPRequest("GET", "/api/v1/charts", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	pc.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `eventstats_http_requests_total{method="GET",path="/api/v1/charts",status="200"} 1`)
}

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker(50 * time.Millisecond)

	report := h.GetOverallHealth(context.Background())
	assert.Equal(t, StatusHealthy, report.Status)

	h.Register("database", func(context.Context) HealthStatus {
		return NewHealthStatus(StatusHealthy, "ok")
	})
	h.Register("cache", func(context.Context) HealthStatus {
		return NewHealthStatus(StatusDegraded, "redis unreachable, using memory")
	})
	report = h.GetOverallHealth(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Len(t, report.Components, 2)

	h.Register("slow", func(ctx context.Context) HealthStatus {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return NewHealthStatus(StatusHealthy, "late")
	})
	report = h.GetOverallHealth(context.Background())
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, "50ms", report.Components["slow"].Details["timeout"])
}
