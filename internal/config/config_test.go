package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "server:\n  port: 8080\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 100*time.Millisecond, cfg.WebSocket.Debounce())
	assert.Equal(t, 1200.0, cfg.Report.DefaultWidthPx)
	assert.Equal(t, 120.0, cfg.Report.Solver.MinBodyHeightPx)
	assert.Equal(t, 40.0, cfg.Report.Solver.TitleReservationPx)
	assert.Equal(t, 1024.0, cfg.Report.Breakpoints.TabletPx)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.Breaker.Timeout)
	assert.Equal(t, "eventstats", cfg.Monitoring.MetricsPrefix)
}

func TestLoadFile_FileOverrides(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, `
report:
  default_width_px: 960
  solver:
    cell_padding_px: 16
    min_body_height_px: 80
websocket:
  debounce_ms: 250
cache:
  ttl: 30s
`))
	require.NoError(t, err)

	assert.Equal(t, 960.0, cfg.Report.DefaultWidthPx)
	assert.Equal(t, 16.0, cfg.Report.Solver.CellPaddingPx)
	assert.Equal(t, 80.0, cfg.Report.Solver.MinBodyHeightPx)
	assert.Equal(t, 24.0, cfg.Report.Solver.SubtitleReservationPx)
	assert.Equal(t, 250*time.Millisecond, cfg.WebSocket.Debounce())
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	t.Setenv("EVENTSTATS_REPORT_DEFAULT_WIDTH_PX", "1440")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("EVENTSTATS_AUTH_ENABLED", "true")

	cfg, err := LoadFile(writeConfig(t, "logging:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, 1440.0, cfg.Report.DefaultWidthPx)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "server:\n  port: 3001\n"))
	require.NoError(t, err)

	cfg.Server.Port = 0
	cfg.Database.Driver = "postgres"
	cfg.Auth.Enabled = true
	cfg.Auth.JWTSecret = ""
	cfg.WebSocket.DebounceMs = 0

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "database.driver")
	assert.Contains(t, err.Error(), "auth.jwt_secret")
	assert.Contains(t, err.Error(), "websocket.debounce_ms")
}

func TestValidate_MongoDriverNeedsURI(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "database:\n  driver: sqlite\n"))
	require.NoError(t, err)

	cfg.Database.Driver = DriverMongo
	cfg.Mongo.URI = ""
	assert.ErrorContains(t, cfg.Validate(), "mongo.uri")

	cfg.Mongo.URI = "mongodb://localhost:27017"
	assert.NoError(t, cfg.Validate())
}
