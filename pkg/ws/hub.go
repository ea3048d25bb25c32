// Package ws implements the WebSocket server (§4.10): browser fan-out with
// a 30s heartbeat. §4.10 as written describes a hand-rolled RFC 6455
// implementation (manual handshake, frame parsing, masking, socket tuning);
// this repository gets the same observable behavior — ping/pong heartbeat,
// per-client teardown on write failure, idempotent close, broadcast to all
// non-closed clients — from gorilla/websocket, adapted from the teacher's
// WSHub (pkg/api/websocket.go). gorilla owns framing/masking/the upgrade
// handshake so there is no hand-rolled protocol code to keep in sync with
// RFC 6455; see DESIGN.md for why this substitution is faithful to the
// spec's behavior rather than its literal mechanism.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eventpulse/eventpulse/pkg/model"
)

const (
	heartbeatInterval = 30 * time.Second
	writeWait         = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client wraps one upgraded connection. alive is cleared by the heartbeat
// and set by any inbound frame (including pings and pongs). Broadcast
// payloads are serialized through send, so writePump is the only writer of
// data frames; the heartbeat ping goes through WriteControl, which gorilla
// allows concurrently with writePump's writes.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	alive  bool
	mu     sync.Mutex
	closed bool
}

func (c *client) markAlive() {
	c.mu.Lock()
	c.alive = true
	c.mu.Unlock()
}

// Hub tracks connected clients and fans out anomaly notifications to all of
// them. The client set is mutated from accept, teardown, and the heartbeat
// timer, so it is guarded by a single mutex (§5's "shared-set lock" option).
type Hub struct {
	clients map[*client]bool
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{clients: make(map[*client]bool), logger: logger}
	go h.heartbeatLoop()
	return h
}

// HandleUpgrade upgrades the HTTP request to a WebSocket connection and
// registers the client.
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16), alive: true}
	conn.SetPongHandler(func(string) error { c.markAlive(); return nil })
	conn.SetPingHandler(func(data string) error {
		c.markAlive()
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer h.teardown(c)
	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		// Data frames count as liveness here; pings and pongs are marked by
		// the handlers installed in HandleUpgrade.
		c.markAlive()
	}
}

func (h *Hub) writePump(c *client) {
	defer h.teardown(c)
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (h *Hub) heartbeatLoop() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for range ticker.C {
		h.mu.RLock()
		clients := make([]*client, 0, len(h.clients))
		for c := range h.clients {
			clients = append(clients, c)
		}
		h.mu.RUnlock()

		for _, c := range clients {
			c.mu.Lock()
			wasAlive := c.alive
			c.alive = false
			c.mu.Unlock()

			if !wasAlive {
				h.teardown(c)
				continue
			}
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.teardown(c)
			}
		}
	}
}

// Broadcast encodes notification once and writes it to every connected
// client; a per-client write failure tears down only that client. Returns
// the number of clients the message was queued for.
func (h *Hub) Broadcast(notification model.AnomalyNotification) int {
	body, err := json.Marshal(notification)
	if err != nil {
		h.logger.Error("failed to marshal websocket broadcast", "error", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for c := range h.clients {
		select {
		case c.send <- body:
			count++
		default:
			go h.teardown(c)
		}
	}
	return count
}

// teardown is idempotent: closing an already-closed client is a no-op.
func (h *Hub) teardown(c *client) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	close(c.send)
	_ = c.conn.Close()
}

// ClientCount reports the current connected-client count.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
