package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/eventstats-backend-go/internal/config"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/dashboard"
)

// ReportService is the part of the report manager the hub drives
type ReportService interface {
	ApplyStatUpdate(ctx context.Context, projectID, statKey string, value interface{}) (*dashboard.StatUpdateResult, error)
	Relayout(ctx context.Context, projectID string, previous *dashboard.Report, widthPx float64) (*dashboard.Report, error)
}

// Recorder receives connection and message counts
type Recorder interface {
	RecordWebSocketConnection(action string)
	RecordWebSocketMessage(messageType, direction string)
}

type noopRecorder struct{}

func (noopRecorder) RecordWebSocketConnection(string)      {}
func (noopRecorder) RecordWebSocketMessage(string, string) {}

// HubOptions configure connection timing and resize debouncing
type HubOptions struct {
	PingInterval      time.Duration
	PongTimeout       time.Duration
	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration
	RequestTimeout    time.Duration
	// Debounce is the quiet window before a viewport_resized re-solve
	Debounce       time.Duration
	AllowedOrigins []string
	Recorder       Recorder
}

// HubOptionsFromConfig maps the websocket and security config sections
func HubOptionsFromConfig(cfg *config.Config) HubOptions {
	return HubOptions{
		PingInterval:      time.Duration(cfg.WebSocket.PingInterval) * time.Second,
		PongTimeout:       time.Duration(cfg.WebSocket.PongTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.WebSocket.WriteTimeout) * time.Second,
		HeartbeatInterval: 30 * time.Second,
		RequestTimeout:    10 * time.Second,
		Debounce:          cfg.WebSocket.Debounce(),
		AllowedOrigins:    cfg.Security.AllowedOrigins,
	}
}

func (o HubOptions) withDefaults() HubOptions {
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.PongTimeout {
		o.PingInterval = (o.PongTimeout * 9) / 10
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 30 * time.Second
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.Recorder == nil {
		o.Recorder = noopRecorder{}
	}
	return o
}

// Hub maintains the set of active clients and the project rooms they
// subscribe to
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Clients per project room
	rooms map[string]map[*Client]bool

	// Outbound messages, addressed to a room or to everyone
	broadcast chan envelope

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed once Run has returned
	done     chan struct{}
	stopOnce sync.Once

	service  ReportService
	opts     HubOptions
	recorder Recorder
	logger   *logrus.Logger

	mu    sync.RWMutex
	stats *HubStats
}

type envelope struct {
	projectID string
	data      []byte
}

// HubStats contains hub statistics
type HubStats struct {
	ConnectedClients int       `json:"connected_clients"`
	Rooms            int       `json:"rooms"`
	TotalConnections int64     `json:"total_connections"`
	MessagesSent     int64     `json:"messages_sent"`
	MessagesReceived int64     `json:"messages_received"`
	LastActivity     time.Time `json:"last_activity"`
}

// NewHub creates a new WebSocket hub
func NewHub(service ReportService, opts HubOptions, logger *logrus.Logger) *Hub {
	opts = opts.withDefaults()
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		service:    service,
		opts:       opts,
		recorder:   opts.Recorder,
		logger:     logger,
		stats: &HubStats{
			LastActivity: time.Now(),
		},
	}
}

// Run handles registration, room broadcasts and heartbeats until ctx ends
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")

	ticker := time.NewTicker(h.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.stopOnce.Do(func() { close(h.done) })
			h.shutdown()
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case env := <-h.broadcast:
			h.deliver(env)

		case <-ticker.C:
			h.sendHeartbeat()
		}
	}
}

// requestRegister hands a client to Run. It returns false once the hub has
// stopped.
func (h *Hub) requestRegister(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		client.close()
		return false
	}
}

// requestUnregister hands a client to Run, or closes it directly once the
// hub has stopped
func (h *Hub) requestUnregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.close()
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ConnectedClients = len(h.clients)
	h.stats.LastActivity = time.Now()
	connected := len(h.clients)
	h.mu.Unlock()

	h.recorder.RecordWebSocketConnection("connect")
	h.logger.WithFields(logrus.Fields{
		"client_id":         client.ID,
		"remote_addr":       client.RemoteAddr,
		"connected_clients": connected,
	}).Info("WebSocket client connected")

	client.sendMessage(Message{
		Type: MessageTypeConnection,
		Data: map[string]interface{}{
			"status":    "connected",
			"client_id": client.ID,
		},
	})
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	h.leaveLocked(client)
	h.stats.ConnectedClients = len(h.clients)
	h.stats.LastActivity = time.Now()
	connected := len(h.clients)
	h.mu.Unlock()

	client.close()
	h.recorder.RecordWebSocketConnection("disconnect")
	h.logger.WithFields(logrus.Fields{
		"client_id":         client.ID,
		"connected_clients": connected,
	}).Info("WebSocket client disconnected")
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
}

// subscribe moves a client into a project room, leaving any previous one
func (h *Hub) subscribe(client *Client, projectID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(client)
	room, ok := h.rooms[projectID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[projectID] = room
	}
	room[client] = true
	h.stats.Rooms = len(h.rooms)
}

func (h *Hub) unsubscribe(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client)
}

// leaveLocked must be called with mu held
func (h *Hub) leaveLocked(client *Client) {
	for projectID, room := range h.rooms {
		if !room[client] {
			continue
		}
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, projectID)
		}
	}
	h.stats.Rooms = len(h.rooms)
}

func (h *Hub) deliver(env envelope) {
	h.mu.RLock()
	var targets []*Client
	if env.projectID == "" {
		targets = make([]*Client, 0, len(h.clients))
		for client := range h.clients {
			targets = append(targets, client)
		}
	} else {
		for client := range h.rooms[env.projectID] {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if !client.trySend(env.data) {
			// Client's send buffer is full, drop it
			go h.requestUnregister(client)
		}
	}

	h.mu.Lock()
	h.stats.MessagesSent++
	h.stats.LastActivity = time.Now()
	h.mu.Unlock()

	h.logger.WithFields(logrus.Fields{
		"project_id":   env.projectID,
		"message_size": len(env.data),
		"clients_sent": len(targets),
	}).Debug("Message broadcasted to WebSocket clients")
}

func (h *Hub) sendHeartbeat() {
	h.mu.RLock()
	connected := len(h.clients)
	h.mu.RUnlock()

	h.BroadcastToAll(Message{
		Type: MessageTypeHeartbeat,
		Data: map[string]interface{}{
			"clients": connected,
		},
	})
}

func (h *Hub) enqueue(env envelope, messageType string) {
	select {
	case h.broadcast <- env:
		h.recorder.RecordWebSocketMessage(messageType, "out")
	default:
		h.logger.WithField("message_type", messageType).Warn("Broadcast channel is full, message dropped")
	}
}

// BroadcastToAll broadcasts a message to all connected clients
func (h *Hub) BroadcastToAll(message Message) {
	h.enqueue(envelope{data: message.ToJSON()}, message.Type)
}

// BroadcastToProject broadcasts a message to the clients viewing a project
func (h *Hub) BroadcastToProject(projectID string, message Message) {
	h.enqueue(envelope{projectID: projectID, data: message.ToJSON()}, message.Type)
}

// HandleStatUpdate applies a statistic change and fans the outcome out to
// the project's room: the echoed stat, the recalculated charts, and a
// re-assembled report whenever a chart gained or lost data.
func (h *Hub) HandleStatUpdate(ctx context.Context, projectID, statKey string, value interface{}) (*dashboard.StatUpdateResult, error) {
	update, err := h.service.ApplyStatUpdate(ctx, projectID, statKey, value)
	if err != nil {
		return nil, err
	}

	h.forgetReports(projectID)
	h.BroadcastToProject(projectID, StatUpdatedMessage(projectID, statKey, value))
	if len(update.Results) > 0 {
		h.BroadcastToProject(projectID, ChartResultsUpdatedMessage(update))
	}
	if update.LayoutChanged && update.Report != nil {
		h.BroadcastToProject(projectID, ReportLayoutUpdatedMessage(update.Report))
	}
	return update, nil
}

// forgetReports drops the reports clients hold for relayout, so their next
// resize recalculates against the new statistics
func (h *Hub) forgetReports(projectID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[projectID] {
		client.dropReport()
	}
}

// GetStats returns a snapshot of the hub statistics
func (h *Hub) GetStats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return *h.stats
}

// ProjectClients reports how many clients are in a project room
func (h *Hub) ProjectClients(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[projectID])
}
