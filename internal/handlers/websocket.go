package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scimdash/internal/common"
	"github.com/ternarybob/scimdash/internal/interfaces"
	"github.com/ternarybob/scimdash/internal/models"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// RunSnapshotter provides the current run view for the connect-time status message
type RunSnapshotter interface {
	Snapshot() models.RunSnapshot
}

type WebSocketHandler struct {
	logger            arbor.ILogger
	clients           map[*websocket.Conn]bool
	clientMutex       map[*websocket.Conn]*sync.Mutex
	mu                sync.RWMutex
	eventService      interfaces.EventService
	runs              RunSnapshotter
	progressThrottler *rate.Limiter   // Rate limiter for run_progress events
	allowedEvents     map[string]bool // Whitelist of events to broadcast (empty = allow all)
	serverInstanceID  string          // Unique ID generated on startup - clients use to detect server restart
	subscribed        []interfaces.EventType
}

func NewWebSocketHandler(eventService interfaces.EventService, runs RunSnapshotter, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		eventService:     eventService,
		runs:             runs,
		allowedEvents:    make(map[string]bool),
		serverInstanceID: uuid.New().String(),
	}

	logger.Info().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized with server instance ID")

	if config != nil {
		for _, eventType := range config.AllowedEvents {
			h.allowedEvents[eventType] = true
		}
		if len(h.allowedEvents) > 0 {
			logger.Debug().
				Int("allowed_events", len(h.allowedEvents)).
				Msg("Initialized event whitelist for WebSocketHandler")
		}

		// Nil throttler = no throttling
		if config.ProgressThrottle != "" {
			if duration, err := time.ParseDuration(config.ProgressThrottle); err == nil && duration > 0 {
				h.progressThrottler = rate.NewLimiter(rate.Every(duration), 1)
				logger.Debug().
					Str("event_type", string(interfaces.EventRunProgress)).
					Str("interval", config.ProgressThrottle).
					Msg("Throttler initialized for run_progress events")
			} else if err != nil {
				logger.Warn().
					Err(err).
					Str("interval", config.ProgressThrottle).
					Msg("Failed to parse run_progress throttle interval - throttler disabled")
			}
		}
	}

	if eventService != nil {
		h.SubscribeToRunEvents()
	}

	return h
}

// WSMessage is the envelope for every message sent to dashboard clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// StatusUpdate is sent to each client on connect
type StatusUpdate struct {
	Service          string          `json:"service"`
	ServerInstanceID string          `json:"serverInstanceId"` // Unique ID per server startup - clients clear state on change
	RunState         models.RunState `json:"runState"`
	RunID            string          `json:"runId,omitempty"`
	Progress         *int            `json:"progress"`
	CheckedTests     int             `json:"checkedTests"`
	LastError        string          `json:"lastError,omitempty"`
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Msgf("WebSocket client connected (total: %d)", clientCount)

	h.sendStatus(conn)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		clientCount := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", clientCount)
	}()

	// Read messages from client (keep connection alive)
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

// ServerInstanceID returns the ID clients use to detect a server restart
func (h *WebSocketHandler) ServerInstanceID() string {
	return h.serverInstanceID
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WebSocketHandler) currentStatus() StatusUpdate {
	status := StatusUpdate{
		Service:          "ONLINE",
		ServerInstanceID: h.serverInstanceID,
		RunState:         models.RunStateIdle,
	}
	if h.runs != nil {
		snap := h.runs.Snapshot()
		status.RunState = snap.State
		status.RunID = snap.RunID
		status.Progress = snap.Progress
		status.CheckedTests = snap.CheckedTests
		status.LastError = snap.LastError
	}
	return status
}

// sendStatus sends current status to a specific client
func (h *WebSocketHandler) sendStatus(conn *websocket.Conn) {
	data, err := json.Marshal(WSMessage{Type: "status", Payload: h.currentStatus()})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal initial status")
		return
	}

	h.mu.RLock()
	mutex := h.clientMutex[conn]
	h.mu.RUnlock()

	if mutex != nil {
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Msg("Failed to send initial status")
		}
	}
}

// BroadcastStatus sends the current status to all connected clients
func (h *WebSocketHandler) BroadcastStatus() {
	h.broadcast(WSMessage{Type: "status", Payload: h.currentStatus()}, true)
}

// broadcast writes msg to every client. Write failures are logged only when logFailures is
// set; the log stream must not log its own failures.
func (h *WebSocketHandler) broadcast(msg WSMessage, logFailures bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		if logFailures {
			h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		}
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		mutex := mutexes[i]
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil && logFailures {
			h.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to send message to client")
		}
	}
}

// SubscribeToRunEvents forwards every dashboard event type to connected clients
func (h *WebSocketHandler) SubscribeToRunEvents() {
	if h.eventService == nil {
		return
	}

	for _, eventType := range interfaces.AllEventTypes {
		if err := h.eventService.Subscribe(eventType, h.handleEvent); err != nil {
			h.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to subscribe WebSocket handler")
			continue
		}
		h.subscribed = append(h.subscribed, eventType)
	}
}

func (h *WebSocketHandler) handleEvent(ctx context.Context, event interfaces.Event) error {
	// Check whitelist (empty allowedEvents = allow all)
	if len(h.allowedEvents) > 0 && !h.allowedEvents[string(event.Type)] {
		return nil
	}

	// Progress is advisory; dropping intermediate values is safe
	if event.Type == interfaces.EventRunProgress && h.progressThrottler != nil && !h.progressThrottler.Allow() {
		return nil
	}

	h.broadcast(WSMessage{Type: string(event.Type), Payload: event.Payload}, true)

	switch event.Type {
	case interfaces.EventRunStarted, interfaces.EventRunSucceeded, interfaces.EventRunFailed:
		h.BroadcastStatus()
	}
	return nil
}

// Close unsubscribes from the event service and disconnects all clients
func (h *WebSocketHandler) Close() error {
	if h.eventService != nil {
		for _, eventType := range h.subscribed {
			_ = h.eventService.Unsubscribe(eventType, h.handleEvent)
		}
		h.subscribed = nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	return nil
}
