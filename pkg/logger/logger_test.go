package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("chatty"))

	t.Setenv("LOG_LEVEL", "error")
	assert.Equal(t, logrus.ErrorLevel, ParseLevel("debug"))
}

func TestLogRequest_BatchesSuccesses(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	var buf bytes.Buffer
	log := NewWithOutput("info", "json", &buf)

	log.LogRequest(http.MethodGet, "/api/v1/charts", http.StatusOK, 3*time.Millisecond, nil)
	log.LogRequest(http.MethodGet, "/api/v1/charts", http.StatusOK, 5*time.Millisecond, nil)
	assert.Equal(t, 2, log.PendingRequests())
	assert.Empty(t, buf.String())

	log.FlushPending()
	assert.Equal(t, 0, log.PendingRequests())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, true, entry["batch_summary"])
	assert.EqualValues(t, 2, entry["total_requests"])
}

func TestLogRequest_ErrorsLogImmediately(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	var buf bytes.Buffer
	log := NewWithOutput("info", "json", &buf)

	log.LogRequest(http.MethodPut, "/api/v1/charts/x", http.StatusUnprocessableEntity, time.Millisecond, logrus.Fields{"client_ip": "10.0.0.1"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "10.0.0.1", entry["client_ip"])
	assert.Equal(t, 0, log.PendingRequests())
}
