package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"autotradev1/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

const (
	clientSendBuffer = 64
	writeWait        = 5 * time.Second
	pingInterval     = 30 * time.Second
)

// Hub fans scan-log entries out to connected WebSocket clients. Slow
// clients are dropped rather than allowed to block the publisher.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*wsClient]bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*wsClient]bool),
	}
}

// Publish sends one scan-log entry to every connected client.
// Never blocks; a client with a full send queue is disconnected.
func (h *Hub) Publish(entry model.ScanLogEntry) {
	payload, err := json.Marshal(map[string]any{
		"channel": "scanlog",
		"data":    entry,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) serve(conn *websocket.Conn) {
	c := &wsClient{conn: conn, send: make(chan []byte, clientSendBuffer)}

	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws client connected", "clients", n)

	go c.writeLoop()
	go h.readLoop(c)
}

// readLoop discards inbound frames; its job is detecting disconnect.
func (h *Hub) readLoop(c *wsClient) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

func (h *Hub) drop(c *wsClient) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	c.conn.Close()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}
