package ws

import "sync"

// Conn is the subset of a WebSocket connection the hub needs. It exists so
// the hub can be tested without real network connections.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// client pairs a connection with a write lock. gorilla/websocket allows at
// most one concurrent writer per connection, and a replaced read loop can
// still be mid-turn when the replacement starts sending.
type client struct {
	mu   sync.Mutex
	conn Conn
}

// Hub tracks the active connection per user. Each user talks to the
// assistant over at most one socket; a new connection replaces the old one.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*client
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*client),
	}
}

// Register stores the connection for the given user, closing any previous
// one. Last connect wins.
func (h *Hub) Register(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.conns[userID]; ok && prev.conn != conn {
		prev.conn.Close()
	}
	h.conns[userID] = &client{conn: conn}
}

// Unregister removes the connection for the given user, but only if it is
// still the registered one. A stale disconnect must not evict a newer socket.
func (h *Hub) Unregister(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cur, ok := h.conns[userID]; ok && cur.conn == conn {
		delete(h.conns, userID)
	}
}

// Send delivers the payload to the user's connection if one is active.
// Users without an open socket are silently skipped. Writes to a single
// connection are serialized.
func (h *Hub) Send(userID string, payload any) {
	h.mu.RLock()
	c, ok := h.conns[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	c.mu.Lock()
	err := c.conn.WriteJSON(payload)
	c.mu.Unlock()
	if err != nil {
		c.conn.Close()
		h.Unregister(userID, c.conn)
	}
}

// Connected reports whether the user currently has an open socket.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.conns[userID]
	return ok
}
