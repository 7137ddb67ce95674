// Package devserver serves the build output and pushes live updates over WebSocket.
package devserver

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/core/ports"
)

var _ ports.Notifier = (*Hub)(nil)

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks connected live-update clients and fans messages out to them.
type Hub struct {
	logger  ports.Logger
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates an empty Hub.
func NewHub(logger ports.Logger) *Hub {
	return &Hub{logger: logger, clients: make(map[*client]struct{})}
}

// ServeHTTP upgrades the request and keeps the connection registered until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug(fmt.Sprintf("live update upgrade failed: %v", err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(c) {
		_ = conn.Close()
		return
	}

	go h.writeLoop(c)
	h.sendTo(c, domain.LiveMessage{Type: domain.LiveConnected})

	// Clients never send anything meaningful; reading detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
}

// Broadcast sends msg to every connected client. Clients that cannot keep up are dropped.
func (h *Hub) Broadcast(msg domain.LiveMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn(fmt.Sprintf("cannot encode live update: %v", err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			c.close()
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
}

func (h *Hub) sendTo(c *client, msg domain.LiveMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer func() { _ = c.conn.Close() }()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(writeTimeout))
}
