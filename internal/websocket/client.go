package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/dashboard"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/layout/resize"
)

const (
	// Maximum message size allowed from peer
	maxMessageSize = 4096

	sendBufferSize = 256

	// Re-solves attempted when statistics change mid-relayout
	maxRelayoutAttempts = 3
)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	// Unique client identifier
	ID string

	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	hub    *Hub
	logger *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// Client metadata
	UserAgent   string    `json:"user_agent"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`

	mu        sync.Mutex
	closed    bool
	projectID string
	report    *dashboard.Report
	// reportGen increases whenever the held report is discarded
	reportGen uint64
	resizer   *resize.Debouncer
}

func newClient(hub *Hub, conn *websocket.Conn, r *http.Request) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		ID:          uuid.New().String(),
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		hub:         hub,
		logger:      hub.logger,
		ctx:         ctx,
		cancel:      cancel,
		ConnectedAt: time.Now(),
	}
	if r != nil {
		c.UserAgent = r.Header.Get("User-Agent")
		c.RemoteAddr = r.RemoteAddr
	}
	return c
}

// NewUpgrader builds an upgrader that accepts the configured origins. A
// "*" entry, or no entries at all, accepts every origin.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// HandleWebSocket handles websocket requests from clients
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request) {
	upgrader := NewUpgrader(hub.opts.AllowedOrigins)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := newClient(hub, conn, r)
	if !hub.requestRegister(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	// A project can be picked at connect time: /ws?projectId=abc
	if projectID := r.URL.Query().Get("projectId"); projectID != "" {
		client.Subscribe(projectID)
	}
}

// HandleWebSocketGin is a Gin-compatible wrapper for HandleWebSocket
func HandleWebSocketGin(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		HandleWebSocket(hub, c.Writer, c.Request)
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.requestUnregister(c)
		c.conn.Close()
	}()

	pongWait := c.hub.opts.PongTimeout
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).WithField("client_id", c.ID).Error("WebSocket connection error")
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	writeWait := c.hub.opts.WriteTimeout
	ticker := time.NewTicker(c.hub.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// one JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Client) handleMessage(raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.WithError(err).WithField("client_id", c.ID).Warn("Failed to unmarshal WebSocket message")
		c.sendMessage(ErrorMessage("", "invalid message"))
		return
	}

	c.hub.recorder.RecordWebSocketMessage(msg.Type, "in")
	c.hub.mu.Lock()
	c.hub.stats.MessagesReceived++
	c.hub.mu.Unlock()

	switch msg.Type {
	case MessageTypeSubscribeProject:
		projectID := msg.stringField("projectId", "project_id")
		if projectID == "" {
			c.sendMessage(ErrorMessage(msg.Type, "projectId is required"))
			return
		}
		c.Subscribe(projectID)
		if width, ok := msg.numberField("widthPx", "width_px", "width"); ok {
			c.ObserveWidth(width)
		}

	case MessageTypeUnsubscribeProject:
		c.Unsubscribe()

	case MessageTypeStatUpdated:
		c.handleStatUpdated(msg)

	case MessageTypeViewportResized:
		width, ok := msg.numberField("widthPx", "width_px", "width")
		if !ok || width < 0 {
			c.sendMessage(ErrorMessage(msg.Type, "widthPx must be a non-negative number"))
			return
		}
		if !c.ObserveWidth(width) {
			c.sendMessage(ErrorMessage(msg.Type, "subscribe to a project first"))
		}

	case MessageTypePing:
		c.sendMessage(Message{Type: MessageTypePong, Data: map[string]interface{}{}})

	default:
		c.logger.WithField("message_type", msg.Type).Warn("Unknown WebSocket message type")
	}
}

func (c *Client) handleStatUpdated(msg Message) {
	projectID := msg.stringField("projectId", "project_id")
	if projectID == "" {
		projectID = c.Project()
	}
	statKey := msg.stringField("statKey", "stat_key")
	value, _ := msg.rawField("newValue", "new_value", "value")

	if projectID == "" || statKey == "" {
		c.sendMessage(ErrorMessage(msg.Type, "projectId and statKey are required"))
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.hub.opts.RequestTimeout)
	defer cancel()
	if _, err := c.hub.HandleStatUpdate(ctx, projectID, statKey, value); err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"client_id":  c.ID,
			"project_id": projectID,
			"stat_key":   statKey,
		}).Warn("Failed to apply statistic update")
		c.sendMessage(ErrorMessage(msg.Type, err.Error()))
	}
}

// Subscribe joins a project room. Each subscription gets its own resize
// debouncer so a pending width never lands on the wrong project.
func (c *Client) Subscribe(projectID string) {
	c.hub.subscribe(c, projectID)

	c.mu.Lock()
	if c.resizer != nil {
		c.resizer.Stop()
	}
	c.projectID = projectID
	c.report = nil
	c.reportGen++
	c.resizer = resize.NewDebouncer(c.hub.opts.Debounce, func(width float64) {
		c.relayout(projectID, width)
	})
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"client_id":  c.ID,
		"project_id": projectID,
	}).Info("Client subscribed to project")
}

// Unsubscribe leaves the current project room
func (c *Client) Unsubscribe() {
	c.hub.unsubscribe(c)

	c.mu.Lock()
	projectID := c.projectID
	if c.resizer != nil {
		c.resizer.Stop()
		c.resizer = nil
	}
	c.projectID = ""
	c.report = nil
	c.reportGen++
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"client_id":  c.ID,
		"project_id": projectID,
	}).Info("Client unsubscribed from project")
}

// Project returns the subscribed project id
func (c *Client) Project() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectID
}

// ObserveWidth feeds a viewport measurement to the debouncer. It returns
// false when the client has no project.
func (c *Client) ObserveWidth(widthPx float64) bool {
	c.mu.Lock()
	resizer := c.resizer
	c.mu.Unlock()

	if resizer == nil {
		return false
	}
	resizer.Observe(widthPx)
	return true
}

// relayout re-solves the held report at a new width. A report solved from
// one that was discarded meanwhile is thrown away and solved again.
func (c *Client) relayout(projectID string, widthPx float64) {
	ctx, cancel := context.WithTimeout(c.ctx, c.hub.opts.RequestTimeout)
	defer cancel()

	for attempt := 0; attempt < maxRelayoutAttempts; attempt++ {
		c.mu.Lock()
		previous, generation := c.report, c.reportGen
		c.mu.Unlock()

		report, err := c.hub.service.Relayout(ctx, projectID, previous, widthPx)
		if err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"client_id":  c.ID,
				"project_id": projectID,
				"width_px":   widthPx,
			}).Warn("Failed to re-solve report layout")
			c.sendMessage(ErrorMessage(MessageTypeViewportResized, err.Error()))
			return
		}

		c.mu.Lock()
		if c.projectID != projectID {
			// switched projects while solving
			c.mu.Unlock()
			return
		}
		if c.reportGen != generation {
			c.mu.Unlock()
			continue
		}
		c.report = report
		c.mu.Unlock()

		c.sendMessage(LayoutUpdatedMessage(report))
		return
	}

	c.logger.WithFields(logrus.Fields{
		"client_id":  c.ID,
		"project_id": projectID,
	}).Warn("Statistics kept changing during relayout, giving up")
}

// dropReport discards the held report so the next relayout recalculates
func (c *Client) dropReport() {
	c.mu.Lock()
	c.report = nil
	c.reportGen++
	c.mu.Unlock()
}

func (c *Client) sendMessage(msg Message) {
	if c.trySend(msg.ToJSON()) {
		c.hub.recorder.RecordWebSocketMessage(msg.Type, "out")
	}
}

// trySend queues data without blocking; it fails once the client is
// closed or its buffer is full
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close stops the debouncer and closes the send channel exactly once
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if c.resizer != nil {
		c.resizer.Stop()
	}
	c.cancel()
	close(c.send)
}
