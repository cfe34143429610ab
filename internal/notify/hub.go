// Package notify pushes change events to connected browser clients over
// WebSocket. Delivery is best effort: events are not replayed and clients that
// fail a write are dropped.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event types.
const (
	ArticleAdded  = "article_added"
	ReceiptAdded  = "receipt_added"
	ReturnUpdated = "return_updated"
)

// Message is the frame sent to clients.
type Message struct {
	EventType string    `json:"eventType"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	defaultQueueSize = 64
	writeWait        = 5 * time.Second
)

// Hub tracks open connections and fans messages out to them.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*websocket.Conn
	queue   chan Message
	now     func() time.Time

	upgrader websocket.Upgrader
}

// NewHub returns a hub with a bounded outgoing queue. Call Run to start
// delivering.
func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Hub{
		clients: make(map[string]*websocket.Conn),
		queue:   make(chan Message, queueSize),
		now:     time.Now,
		upgrader: websocket.Upgrader{
			// The UI is served from a desktop shell with its own origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Broadcast queues an event for every connected client. It never blocks; when
// the queue is full the event is dropped.
func (h *Hub) Broadcast(eventType string, data any) {
	msg := Message{EventType: eventType, Data: data, Timestamp: h.now().UTC()}
	select {
	case h.queue <- msg:
	default:
		slog.Warn("notify queue full, dropping event", "event", eventType)
	}
}

// Run delivers queued messages until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.queue:
			h.deliver(msg)
		}
	}
}

func (h *Hub) deliver(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		slog.Error("encoding notify message", "event", msg.EventType, "error", err)
		return
	}

	// Each write may block for up to writeWait; the client map is not held
	// locked while writing.
	h.mu.Lock()
	clients := make(map[string]*websocket.Conn, len(h.clients))
	for id, conn := range h.clients {
		clients[id] = conn
	}
	h.mu.Unlock()

	for id, conn := range clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			slog.Info("dropping websocket client", "client", id, "error", err)
			h.unregister(id)
		}
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(conn *websocket.Conn) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.clients[id] = conn
	h.mu.Unlock()
	return id
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.clients[id]; ok {
		conn.Close()
		delete(h.clients, id)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.clients {
		conn.Close()
		delete(h.clients, id)
	}
}

// ServeWS upgrades the request and keeps the connection registered until the
// client goes away. Client frames are read and discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	id := h.register(conn)
	slog.Info("websocket client connected", "client", id)

	defer func() {
		h.unregister(id)
		slog.Info("websocket client disconnected", "client", id)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
