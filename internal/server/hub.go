package server

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Message is a push message sent to board clients.
type Message struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Message types.
const (
	TypeHello  = "HELLO"
	TypeAck    = "ACK"
	TypeReload = "RELOAD"
)

type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

// Hub tracks connected board clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  log.FieldLogger
}

// NewHub returns an empty hub.
func NewHub(logger log.FieldLogger) *Hub {
	return &Hub{clients: make(map[string]*client), logger: logger}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every connected client. Send failures are logged.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	msg.Type = strings.ToUpper(msg.Type)
	for _, c := range clients {
		if err := c.send(msg); err != nil {
			h.logger.WithError(err).WithField("client", c.id).Warn("Failed to send message to client")
		}
	}
}

// serve registers conn and reads from it until it closes.
func (h *Hub) serve(conn *websocket.Conn) {
	c := &client{id: uuid.NewString(), conn: conn}
	logger := h.logger.WithField("client", c.id)

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	logger.Debug("Client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()
		conn.Close()
		logger.Debug("Client disconnected")
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).Warn("WebSocket error")
			}
			return
		}

		switch strings.ToUpper(msg.Type) {
		case TypeHello:
			if err := c.send(Message{Type: TypeAck, Data: map[string]any{"id": c.id}}); err != nil {
				logger.WithError(err).Warn("Failed to acknowledge client")
				return
			}
		default:
			logger.WithField("type", msg.Type).Debug("Unknown WebSocket message type")
		}
	}
}
