package websocket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/dashboard"
)

// Message types for WebSocket communication
const (
	// Inbound
	MessageTypeSubscribeProject   = "subscribe_project"
	MessageTypeUnsubscribeProject = "unsubscribe_project"
	MessageTypeStatUpdated        = "stat_updated"
	MessageTypeViewportResized    = "viewport_resized"
	MessageTypePing               = "ping"

	// Outbound
	MessageTypeConnection          = "connection"
	MessageTypePong                = "pong"
	MessageTypeHeartbeat           = "heartbeat"
	MessageTypeChartResultsUpdated = "chart_results_updated"
	MessageTypeReportLayoutUpdated = "report_layout_updated"
	MessageTypeLayoutUpdated       = "layout_updated"
	MessageTypeError               = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m Message) ToJSON() []byte {
	m.Timestamp = time.Now().UTC()
	data, _ := json.Marshal(m)
	return data
}

// UnmarshalJSON accepts timestamps as RFC3339 strings or as unix seconds or
// milliseconds, either quoted or bare. Unknown top-level fields are folded
// into Data, so {"type":"stat_updated","statKey":"x","newValue":1} reads
// the same as the enveloped form.
func (m *Message) UnmarshalJSON(raw []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}

	*m = Message{Data: make(map[string]interface{})}
	if t, ok := fields["type"]; ok {
		if err := json.Unmarshal(t, &m.Type); err != nil {
			return err
		}
	}
	if d, ok := fields["data"]; ok && string(d) != "null" {
		if err := json.Unmarshal(d, &m.Data); err != nil {
			return err
		}
		if m.Data == nil {
			m.Data = make(map[string]interface{})
		}
	}

	m.Timestamp = time.Now().UTC()
	if ts, ok := fields["timestamp"]; ok {
		if parsed, ok := parseTimestamp(ts); ok {
			m.Timestamp = parsed
		}
	}

	for key, value := range fields {
		switch key {
		case "type", "data", "timestamp":
			continue
		}
		if _, exists := m.Data[key]; exists {
			continue
		}
		var v interface{}
		if err := json.Unmarshal(value, &v); err == nil {
			m.Data[key] = v
		}
	}
	return nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	text := strings.Trim(string(raw), `"`)
	if text == "" || text == "null" {
		return time.Time{}, false
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		// anything past 1e11 seconds is far in the future, so it must be ms
		if n > 1e11 {
			return time.UnixMilli(n), true
		}
		return time.Unix(n, 0), true
	}
	if t, err := time.Parse(time.RFC3339Nano, text); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// stringField reads a string from Data, accepting camelCase and snake_case
func (m Message) stringField(names ...string) string {
	for _, name := range names {
		if s, ok := m.Data[name].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// numberField reads a number from Data
func (m Message) numberField(names ...string) (float64, bool) {
	for _, name := range names {
		switch v := m.Data[name].(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// rawField returns the first present value, which may be nil
func (m Message) rawField(names ...string) (interface{}, bool) {
	for _, name := range names {
		if v, ok := m.Data[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// StatUpdatedMessage echoes an applied statistic change to a project room
func StatUpdatedMessage(projectID, statKey string, value interface{}) Message {
	return Message{
		Type: MessageTypeStatUpdated,
		Data: map[string]interface{}{
			"projectId": projectID,
			"statKey":   statKey,
			"newValue":  value,
		},
	}
}

// ChartResultsUpdatedMessage carries the recalculated charts of an update
func ChartResultsUpdatedMessage(update *dashboard.StatUpdateResult) Message {
	return Message{
		Type: MessageTypeChartResultsUpdated,
		Data: map[string]interface{}{
			"projectId":     update.ProjectID,
			"statKey":       update.StatKey,
			"results":       update.Results,
			"layoutChanged": update.LayoutChanged,
		},
	}
}

// ReportLayoutUpdatedMessage carries a re-assembled report after charts
// gained or lost data
func ReportLayoutUpdatedMessage(report *dashboard.Report) Message {
	return Message{
		Type: MessageTypeReportLayoutUpdated,
		Data: map[string]interface{}{
			"projectId": report.ProjectID,
			"report":    report,
		},
	}
}

// LayoutUpdatedMessage answers a viewport_resized with re-solved rows
func LayoutUpdatedMessage(report *dashboard.Report) Message {
	return Message{
		Type: MessageTypeLayoutUpdated,
		Data: map[string]interface{}{
			"projectId": report.ProjectID,
			"widthPx":   report.WidthPx,
			"gridUnits": report.GridUnits,
			"blocks":    report.Blocks,
		},
	}
}

// ErrorMessage reports a failed inbound request to one client
func ErrorMessage(requestType, message string) Message {
	return Message{
		Type: MessageTypeError,
		Data: map[string]interface{}{
			"request": requestType,
			"message": message,
		},
	}
}
