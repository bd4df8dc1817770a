package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		jsonData string
		expected time.Time
	}{
		{
			name:     "Unix timestamp in milliseconds as string",
			jsonData: `{"type":"test","data":{},"timestamp":"1753104374613"}`,
			expected: time.Unix(0, 1753104374613*int64(time.Millisecond)),
		},
		{
			name:     "Unix timestamp in seconds as string",
			jsonData: `{"type":"test","data":{},"timestamp":"1753104374"}`,
			expected: time.Unix(1753104374, 0),
		},
		{
			name:     "Unix timestamp as number",
			jsonData: `{"type":"test","data":{},"timestamp":1753104374613}`,
			expected: time.Unix(0, 1753104374613*int64(time.Millisecond)),
		},
		{
			name:     "RFC3339 timestamp string",
			jsonData: `{"type":"test","data":{},"timestamp":"2025-07-21T09:26:14.613Z"}`,
			expected: time.Date(2025, 7, 21, 9, 26, 14, 613000000, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg Message
			require.NoError(t, json.Unmarshal([]byte(tt.jsonData), &msg))
			assert.Equal(t, "test", msg.Type)
			assert.True(t, tt.expected.Equal(msg.Timestamp), "got %v", msg.Timestamp)
		})
	}
}

func TestMessageUnmarshalJSON_DefaultsTimestamp(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"type":"ping"}`), &msg))
	assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Minute)
	assert.NotNil(t, msg.Data)
}

func TestMessageUnmarshalJSON_TopLevelFields(t *testing.T) {
	var msg Message
	raw := `{"type":"stat_updated","projectId":"p1","statKey":"visitWeb","newValue":12,"data":{"statKey":"fromData"}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.Equal(t, "p1", msg.stringField("projectId"))
	assert.Equal(t, "fromData", msg.stringField("statKey"), "enveloped data wins")
	v, ok := msg.rawField("newValue")
	require.True(t, ok)
	assert.Equal(t, 12.0, v)
}

func TestMessageFields(t *testing.T) {
	msg := Message{Data: map[string]interface{}{
		"project_id": "p2",
		"widthPx":    "640",
		"newValue":   nil,
	}}

	assert.Equal(t, "p2", msg.stringField("projectId", "project_id"))
	width, ok := msg.numberField("widthPx")
	assert.True(t, ok)
	assert.Equal(t, 640.0, width)

	v, ok := msg.rawField("newValue")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = msg.numberField("missing")
	assert.False(t, ok)
}

func TestMessageToJSON(t *testing.T) {
	data := StatUpdatedMessage("p1", "female", 30).ToJSON()

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, MessageTypeStatUpdated, decoded["type"])
	assert.Equal(t, "female", decoded["data"].(map[string]interface{})["statKey"])
	assert.NotEmpty(t, decoded["timestamp"])
}
