package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/frostdev-ops/eventstats-backend-go/internal/config"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/cache"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/charts"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/dashboard"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/formula"
	"github.com/frostdev-ops/eventstats-backend-go/internal/database"
	apperrors "github.com/frostdev-ops/eventstats-backend-go/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

type testServer struct {
	router  *gin.Engine
	manager *dashboard.Manager
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := quietLogger()

	db, err := database.Initialize(config.DatabaseConfig{Path: database.MemoryPath})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	repos := database.NewSQLiteRepositories(db)
	t.Cleanup(func() { repos.Close() })

	results, err := cache.NewMemoryCache(time.Minute, "@every 1m", logger)
	require.NoError(t, err)
	t.Cleanup(func() { results.Close() })

	manager := dashboard.NewManager(repos, results, dashboard.ManagerOptions{
		Assembler:      dashboard.DefaultAssemblerOptions(),
		DefaultWidthPx: 1200,
		Retry:          &apperrors.RetryPolicy{MaxAttempts: 1},
	}, logger)

	h := NewHandlers(Dependencies{Manager: manager, Logger: logger})

	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.GET("/chart-types", h.GetChartTypes)
	v1.GET("/charts", h.GetCharts)
	v1.POST("/charts/import", h.ImportCharts)
	v1.GET("/charts/:chartId", h.GetChart)
	v1.PUT("/charts/:chartId", h.PutChart)
	v1.DELETE("/charts/:chartId", h.DeleteChart)
	v1.GET("/projects/:projectId/stats", h.GetStatistics)
	v1.PATCH("/projects/:projectId/stats", h.PatchStatistics)
	v1.GET("/projects/:projectId/layout", h.GetLayout)
	v1.PUT("/projects/:projectId/layout", h.PutLayout)
	v1.GET("/projects/:projectId/results", h.GetResults)
	v1.GET("/projects/:projectId/report", h.GetReport)
	v1.GET("/projects/:projectId/export.csv", h.ExportCSV)
	v1.GET("/projects/:projectId/export.xlsx", h.ExportXLSX)
	v1.POST("/layout/columns", h.ComposeColumns)
	v1.POST("/layout/solve", h.SolveRow)
	v1.POST("/formula/evaluate", h.EvaluateFormula)
	v1.POST("/media/aspect-ratio", h.InferAspectRatio)
	v1.GET("/websocket/stats", h.GetWebSocketStats)
	r.GET("/health", h.Health)

	return &testServer{router: r, manager: manager}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// seed stores the charts from the image + KPI scenario plus a bar chart
// that has no data yet
func (s *testServer) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, cfg := range []charts.ChartConfiguration{
		{
			ChartID: "hero", Type: charts.TypeImage, Title: "Hero",
			Elements:    []charts.Element{{ID: "src", Ref: "heroUrl"}},
			AspectRatio: charts.AspectLandscape, Width: 1, IsActive: true, Order: 1,
		},
		{
			ChartID: "attendees", Type: charts.TypeKPI, Title: "Attendees",
			Elements:   []charts.Element{{ID: "a", Ref: "eventAttendees"}},
			Formatting: charts.Formatting{Rounded: charts.Bool(true)},
			Width:      1, IsActive: true, Order: 2,
		},
		{
			ChartID: "web", Type: charts.TypeBar, Title: "Web",
			Elements: []charts.Element{{ID: "w", Label: "Web", Ref: "visitWeb"}},
			Width:    1, IsActive: true, Order: 3,
		},
	} {
		cfg := cfg
		require.NoError(t, s.manager.SaveChart(ctx, &cfg))
	}
	require.NoError(t, s.manager.MergeStatistics(ctx, "p1", formula.Stats{
		"heroUrl":        "https://cdn.example.com/hero.jpg",
		"eventAttendees": 482,
	}))
}

func TestGetChartTypes(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/chart-types", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var defs []charts.TypeDefinition
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &defs))
	assert.Len(t, defs, 7)
}

func TestPutAndGetChart(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPut, "/api/v1/charts/female", map[string]interface{}{
		"type":     "kpi",
		"title":    "Female",
		"elements": []map[string]interface{}{{"id": "f", "ref": "female"}},
		"isActive": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/charts/female", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cfg charts.ChartConfiguration
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &cfg))
	assert.Equal(t, "Female", cfg.Title)
	assert.Equal(t, charts.TypeKPI, cfg.Type)
}

func TestPutChart_Rejections(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPut, "/api/v1/charts/a", map[string]interface{}{"chartId": "b", "type": "kpi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/charts/a", map[string]interface{}{"type": "donut"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/charts/a", map[string]interface{}{
		"type":     "kpi",
		"elements": []map[string]interface{}{{"id": "x", "ref": "a +"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, string(decode(t, w).Details), "elements[0].ref")

	w = s.do(t, http.MethodPut, "/api/v1/charts/a", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetChart_NotFound(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/charts/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/charts/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetCharts_ActiveFilter(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	require.NoError(t, s.manager.SaveChart(context.Background(), &charts.ChartConfiguration{
		ChartID: "old", Type: charts.TypeKPI, IsActive: false,
	}))

	var all, active []charts.ChartConfiguration
	require.NoError(t, json.Unmarshal(decode(t, s.do(t, http.MethodGet, "/api/v1/charts", nil)).Data, &all))
	require.NoError(t, json.Unmarshal(decode(t, s.do(t, http.MethodGet, "/api/v1/charts?active=true", nil)).Data, &active))
	assert.Len(t, all, 4)
	assert.Len(t, active, 3)
}

func TestImportCharts_YAML(t *testing.T) {
	s := newTestServer(t)
	bundle := `
charts:
  - chartId: gender
    type: pie
    title: Gender
    showPercentages: true
    elements:
      - {id: f, label: Female, ref: female}
      - {id: m, label: Male, ref: male}
  - chartId: total
    type: kpi
    formula: female + male
`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/charts/import", strings.NewReader(bundle))
	req.Header.Set("Content-Type", "application/yaml")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Imported int      `json:"imported"`
		ChartIDs []string `json:"chartIds"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &body))
	assert.Equal(t, 2, body.Imported)
	assert.Equal(t, []string{"gender", "total"}, body.ChartIDs)
}

func TestImportCharts_MultipartJSON(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "charts.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(`[{"chartId":"k","type":"kpi","elements":[{"id":"a","ref":"x"}]}]`))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/charts/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestImportCharts_InvalidBundleStoresNothing(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/charts/import", `{"charts":[
		{"chartId":"ok","type":"kpi"},
		{"chartId":"bad","type":"kpi","aspectRatio":"4:3"}
	]}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, string(decode(t, w).Details), "bad:")

	stored, err := s.manager.Charts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestGetReport(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	w := s.do(t, http.MethodGet, "/api/v1/projects/p1/report?width=1200", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report struct {
		WidthPx  float64  `json:"widthPx"`
		Excluded []string `json:"excluded"`
		Blocks   []struct {
			Rows []struct {
				RowHeightPx float64 `json:"rowHeightPx"`
				Cells       []struct {
					ChartID string `json:"chartId"`
				} `json:"cells"`
			} `json:"rows"`
		} `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &report))
	assert.Equal(t, 1200.0, report.WidthPx)
	assert.Equal(t, []string{"web"}, report.Excluded)
	require.Len(t, report.Blocks, 1)
	require.Len(t, report.Blocks[0].Rows, 1)
	row := report.Blocks[0].Rows[0]
	assert.InDelta(t, 337.5, row.RowHeightPx, 1e-9)
	require.Len(t, row.Cells, 2)
	assert.Equal(t, "hero", row.Cells[0].ChartID)
	assert.Equal(t, "attendees", row.Cells[1].ChartID)
}

func TestGetReport_BadWidth(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	for _, path := range []string{"report", "export.csv", "export.xlsx"} {
		for _, q := range []string{"abc", "-5", "Inf", "-Inf", "NaN", "1e400"} {
			w := s.do(t, http.MethodGet, "/api/v1/projects/p1/"+path+"?width="+q, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, path+"?width="+q)
		}
	}
}

func TestGetResults(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	w := s.do(t, http.MethodGet, "/api/v1/projects/p1/results", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var results map[string]charts.ChartResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &results))
	assert.Len(t, results, 3)
	assert.True(t, charts.HasValidData(results["attendees"]))
	assert.False(t, charts.HasValidData(results["web"]))
}

func TestPatchStatistics_FlipsLayout(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	w := s.do(t, http.MethodPatch, "/api/v1/projects/p1/stats", map[string]interface{}{
		"stats": map[string]interface{}{"visitWeb": 12},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env := decode(t, w)
	var meta struct {
		Updated       int  `json:"updated"`
		LayoutChanged bool `json:"layoutChanged"`
	}
	require.NoError(t, json.Unmarshal(env.Meta, &meta))
	assert.Equal(t, 1, meta.Updated)
	assert.True(t, meta.LayoutChanged)

	w = s.do(t, http.MethodGet, "/api/v1/projects/p1/stats", nil)
	var stats struct {
		Stats map[string]interface{} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &stats))
	assert.Equal(t, 12.0, stats.Stats["visitWeb"])
}

func TestPatchStatistics_Rejections(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPatch, "/api/v1/projects/p1/stats", map[string]interface{}{"stats": map[string]interface{}{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v1/projects/p1/stats", map[string]interface{}{"other": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPutAndGetLayout(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	layout := map[string]interface{}{
		"blocks": []map[string]interface{}{{
			"id": "b1", "title": "Main", "visible": true, "order": 0,
			"charts": []map[string]interface{}{{"chartId": "attendees", "order": 0}},
		}},
		"gridSettings": map[string]interface{}{"desktopUnits": 4, "tabletUnits": 2, "mobileUnits": 1},
	}
	w := s.do(t, http.MethodPut, "/api/v1/projects/p1/layout", layout)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/projects/p1/layout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var saved struct {
		ProjectID string `json:"projectId"`
		Blocks    []struct {
			ID string `json:"id"`
		} `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &saved))
	assert.Equal(t, "p1", saved.ProjectID)
	require.Len(t, saved.Blocks, 1)
	assert.Equal(t, "b1", saved.Blocks[0].ID)

	bad := map[string]interface{}{
		"blocks": []map[string]interface{}{{"id": "", "charts": []interface{}{}}},
	}
	w = s.do(t, http.MethodPut, "/api/v1/projects/p1/layout", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)
	require.NoError(t, s.manager.MergeStatistics(context.Background(), "p1", formula.Stats{"visitWeb": 12}))

	tests := []struct {
		name     string
		accept   string
		encoding string
		read     func(io.Reader) ([]byte, error)
	}{
		{"plain", "", "", io.ReadAll},
		{"gzip", "gzip", "gzip", func(r io.Reader) ([]byte, error) {
			zr, err := gzip.NewReader(r)
			if err != nil {
				return nil, err
			}
			return io.ReadAll(zr)
		}},
		{"zstd preferred", "gzip, zstd", "zstd", func(r io.Reader) ([]byte, error) {
			zr, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			defer zr.Close()
			return io.ReadAll(zr)
		}},
		{"refused zstd", "zstd;q=0, gzip;q=0.5", "gzip", func(r io.Reader) ([]byte, error) {
			zr, err := gzip.NewReader(r)
			if err != nil {
				return nil, err
			}
			return io.ReadAll(zr)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/p1/export.csv", nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Encoding", tt.accept)
			}
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.encoding, w.Header().Get("Content-Encoding"))
			assert.Contains(t, w.Header().Get("Content-Disposition"), "report-p1.csv")

			data, err := tt.read(w.Body)
			require.NoError(t, err)
			text := string(data)
			assert.True(t, strings.HasPrefix(text, "chart_id,type,title,element,value,formatted,percentage\n"))
			assert.Contains(t, text, "attendees,kpi,Attendees,,482,482,")
			assert.Contains(t, text, "web,bar,Web,Web,12,")
		})
	}
}

func TestExportXLSX(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	w := s.do(t, http.MethodGet, "/api/v1/projects/p1/export.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "report-p1.xlsx")

	f, err := excelize.OpenReader(w.Body)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(dashboard.XLSXSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "hero", rows[1][0])
	assert.Equal(t, []string{"attendees", "kpi", "Attendees", "", "482", "482"}, rows[2])
}

func TestComposeColumns(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/layout/columns", map[string]interface{}{
		"widths":     []int{1, 2, 1},
		"viewportPx": 500,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Shares []float64 `json:"shares"`
		Policy struct {
			Mode string `json:"mode"`
		} `json:"policy"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &body))
	assert.Equal(t, []float64{0.25, 0.5, 0.25}, body.Shares)
	assert.Equal(t, "stack", body.Policy.Mode)
}

func TestSolveRow(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/layout/solve", map[string]interface{}{
		"rowWidthPx": 1200,
		"cells": []map[string]interface{}{
			{"chartId": "img", "cellWidth": 1, "bodyType": "image", "aspectRatio": "16:9"},
			{"chartId": "kpi", "cellWidth": 1, "bodyType": "kpi"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var row struct {
		RowHeightPx float64 `json:"rowHeightPx"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &row))
	assert.InDelta(t, 337.5, row.RowHeightPx, 1e-9)

	w = s.do(t, http.MethodPost, "/api/v1/layout/solve", map[string]interface{}{"rowWidthPx": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvaluateFormula(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name      string
		body      map[string]interface{}
		status    int
		na        bool
		formatted string
	}{
		{
			name:      "sum",
			body:      map[string]interface{}{"formula": "female + male", "stats": map[string]interface{}{"female": 30, "male": 12}},
			status:    http.StatusOK,
			formatted: "42",
		},
		{
			name:      "missing input is NA",
			body:      map[string]interface{}{"formula": "female + male", "stats": map[string]interface{}{"female": 30}},
			status:    http.StatusOK,
			na:        true,
			formatted: "NA",
		},
		{
			name:   "syntax error",
			body:   map[string]interface{}{"formula": "female +"},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/formula/evaluate", tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				return
			}

			var body struct {
				NA         bool     `json:"na"`
				Formatted  string   `json:"formatted"`
				References []string `json:"references"`
			}
			require.NoError(t, json.Unmarshal(decode(t, w).Data, &body))
			assert.Equal(t, tt.na, body.NA)
			assert.Equal(t, tt.formatted, body.Formatted)
			assert.ElementsMatch(t, []string{"female", "male"}, body.References)
		})
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestInferAspectRatio(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "portrait.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes(t, 90, 160))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media/aspect-ratio", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var info struct {
		AspectRatio string `json:"aspectRatio"`
		MIMEType    string `json:"mimeType"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &info))
	assert.Equal(t, charts.AspectPortrait, info.AspectRatio)
	assert.Equal(t, "image/png", info.MIMEType)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/media/aspect-ratio", strings.NewReader("plain text"))
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestHealthAndWebSocketStatsWithoutHub(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cache"`)

	w = s.do(t, http.MethodGet, "/api/v1/websocket/stats", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNegotiateEncoding(t *testing.T) {
	tests := []struct {
		accept string
		want   string
	}{
		{"", ""},
		{"identity", ""},
		{"gzip, deflate, br", "gzip"},
		{"br;q=1.0, zstd;q=0.8", "zstd"},
		{"zstd;q=0", ""},
		{"GZIP", "gzip"},
	}
	for _, tt := range tests {
		out, enc, err := negotiateEncoding(io.Discard, tt.accept)
		require.NoError(t, err)
		assert.Equal(t, tt.want, enc, tt.accept)
		require.NoError(t, out.Close())
	}
}
