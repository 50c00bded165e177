package ws

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/microfront/internal/domain/events"
	"github.com/GriffinCanCode/microfront/internal/infrastructure/logging"
	"github.com/GriffinCanCode/microfront/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/microfront/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Handler streams lifecycle and routing events to WebSocket clients and
// accepts host-to-app event dispatches from them.
type Handler struct {
	dispatcher *events.Dispatcher
	logger     *logging.Logger
	metrics    *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler.
func NewHandler(dispatcher *events.Dispatcher, logger *logging.Logger, metrics *monitoring.Metrics) *Handler {
	return &Handler{dispatcher: dispatcher, logger: logger, metrics: metrics}
}

// wsConn serializes writes; the event forwarder and the reply path share
// one connection.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) writeJSON(payload map[string]interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(payload)
}

type clientMessage struct {
	Type   string                 `json:"type"`
	App    string                 `json:"app,omitempty"`
	Detail map[string]interface{} `json:"detail,omitempty"`
}

// HandleConnection handles WebSocket upgrade and message exchange.
func (h *Handler) HandleConnection(c *gin.Context) {
	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer raw.Close()
	conn := &wsConn{conn: raw}

	if h.metrics != nil {
		h.metrics.WSConnections.Inc()
		defer h.metrics.WSConnections.Dec()
	}

	h.send(conn, map[string]interface{}{
		"type":    "system",
		"message": "connected to microfront host",
	})

	stream, cancel := h.dispatcher.Subscribe()
	defer cancel()

	// Forward the event stream; the read loop below owns the connection
	// lifetime.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range stream {
			if err := conn.writeJSON(map[string]interface{}{
				"type":    "event",
				"app":     ev.App,
				"channel": ev.Channel,
				"to_app":  ev.ToApp,
				"detail":  ev.Detail,
				"time":    ev.Time.Unix(),
			}); err != nil {
				return
			}
		}
	}()

	for {
		var msg clientMessage
		if err := raw.ReadJSON(&msg); err != nil {
			break
		}

		switch msg.Type {
		case "ping":
			h.send(conn, map[string]interface{}{"type": "pong"})
		case "dispatch":
			if msg.App == "" {
				h.sendError(conn, "dispatch requires an app name")
				continue
			}
			h.dispatcher.DispatchApp(msg.App, types.AppEventStateChange, msg.Detail)
		default:
			h.sendError(conn, "unknown message type")
		}
	}

	cancel()
	<-done
}

func (h *Handler) send(conn *wsConn, payload map[string]interface{}) {
	if err := conn.writeJSON(payload); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
	}
}

func (h *Handler) sendError(conn *wsConn, message string) {
	h.send(conn, map[string]interface{}{"type": "error", "message": message})
}
