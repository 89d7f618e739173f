// Package websocket streams session state updates to connected clients.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"idea-forge/internal/forge"
	"idea-forge/internal/logging"
	"idea-forge/internal/metrics"
)

// Message is the wire format for session update frames.
type Message struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

const (
	MsgSessionState  = "session:state"
	MsgSessionUpdate = "session:update"
)

// SessionReader lets the hub serve the current state to new connections
// without importing the session store directly.
type SessionReader interface {
	GetState(ctx context.Context, sessionID string) (forge.SessionState, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); envOrigins != "" {
			for _, allowed := range strings.Split(envOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					return true
				}
			}
			return false
		}
		// Non-production: allow all for local development
		return os.Getenv("ENVIRONMENT") != "production"
	},
}

// Hub manages WebSocket connections keyed by session id.
type Hub struct {
	connections map[string]map[*Connection]bool
	broadcast   chan *broadcastMessage
	register    chan *registerRequest
	unregister  chan *Connection
	sessions    SessionReader
	mu          sync.RWMutex
}

// Connection represents a single WebSocket connection.
type Connection struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
	closeOnce sync.Once
}

type broadcastMessage struct {
	sessionID string
	message   []byte
}

type registerRequest struct {
	conn      *Connection
	sessionID string
}

// NewHub creates a hub and starts its event loop.
func NewHub(sessions SessionReader) *Hub {
	hub := &Hub{
		connections: make(map[string]map[*Connection]bool),
		broadcast:   make(chan *broadcastMessage, 256),
		register:    make(chan *registerRequest),
		unregister:  make(chan *Connection),
		sessions:    sessions,
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	for {
		select {
		case req := <-h.register:
			h.mu.Lock()
			if h.connections[req.sessionID] == nil {
				h.connections[req.sessionID] = make(map[*Connection]bool)
			}
			h.connections[req.sessionID][req.conn] = true
			h.mu.Unlock()
			metrics.Get().WebSocketConnectionsGauge.Inc()
			logging.L().Debug("websocket client connected", zap.String("session_id", req.sessionID))

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.connections[conn.sessionID]; ok {
				if _, ok := conns[conn]; ok {
					delete(conns, conn)
					conn.closeSend()
					metrics.Get().WebSocketConnectionsGauge.Dec()
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			conns := h.connections[msg.sessionID]
			h.mu.RUnlock()

			for conn := range conns {
				select {
				case conn.send <- msg.message:
					metrics.Get().WebSocketMessagesTotal.WithLabelValues("out").Inc()
				default:
					h.mu.Lock()
					conn.closeSend()
					delete(h.connections[msg.sessionID], conn)
					h.mu.Unlock()
				}
			}
		}
	}
}

func (c *Connection) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// BroadcastUpdate sends a partial state update to every client of a session.
func (h *Hub) BroadcastUpdate(sessionID string, update forge.Update) {
	h.send(sessionID, &Message{
		Type:      MsgSessionUpdate,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Data:      update,
	})
}

// BroadcastState sends the full session state.
func (h *Hub) BroadcastState(sessionID string, state forge.SessionState) {
	h.send(sessionID, &Message{
		Type:      MsgSessionState,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Data:      state,
	})
}

func (h *Hub) send(sessionID string, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.S().Warnf("failed to marshal websocket message: %v", err)
		return
	}
	h.broadcast <- &broadcastMessage{sessionID: sessionID, message: data}
}

// HandleWebSocket upgrades a request and streams session updates.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required"})
		return
	}

	state, err := h.sessions.GetState(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.S().Warnf("websocket upgrade failed for session %s: %v", sessionID, err)
		return
	}

	wsConn := &Connection{
		hub:       h,
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}
	h.register <- &registerRequest{conn: wsConn, sessionID: sessionID}

	// New clients get the full current state first.
	initial := &Message{
		Type:      MsgSessionState,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Data:      state,
	}
	if data, err := json.Marshal(initial); err == nil {
		select {
		case wsConn.send <- data:
		default:
		}
	}

	go wsConn.writePump()
	go wsConn.readPump()
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.S().Debugf("websocket error: %v", err)
			}
			break
		}
		metrics.Get().WebSocketMessagesTotal.WithLabelValues("in").Inc()
	}
}

// ConnectionCount returns the number of active connections for a session.
func (h *Hub) ConnectionCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[sessionID])
}
