package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub manages WebSocket connections for real-time event streaming. The
// device carries one camera, so there is a single subscriber set.
type Hub struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
	}
}

// Register adds a connection.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[conn] = true
	fmt.Printf("[WS] Client registered (total: %d)\n", len(h.clients))
}

// Unregister removes a connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		fmt.Printf("[WS] Client unregistered (total: %d)\n", len(h.clients))
	}
}

// HasClients reports whether anyone is listening.
func (h *Hub) HasClients() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients) > 0
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends raw bytes to every client, dropping dead connections.
func (h *Hub) Broadcast(message []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			fmt.Printf("[WS] Error sending to client: %v\n", err)
			h.Unregister(conn)
			conn.Close()
		}
	}
}

// BroadcastEvent sends a detection event to all subscribers.
func (h *Hub) BroadcastEvent(msg *EventMessage) {
	if !h.HasClients() {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		fmt.Printf("[WS] Error marshaling event message: %v\n", err)
		return
	}
	h.Broadcast(data)
}

// BroadcastStatus sends a pipeline status snapshot to all subscribers.
func (h *Hub) BroadcastStatus(msg *StatusMessage) {
	if !h.HasClients() {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		fmt.Printf("[WS] Error marshaling status message: %v\n", err)
		return
	}
	h.Broadcast(data)
}
