package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handservo/internal/app"
)

// Status broadcast timing.
const (
	// BroadcastInterval is the snapshot push period (~15 Hz).
	BroadcastInterval = 66 * time.Millisecond
	writeWait         = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// SnapshotSource provides the latest pipeline snapshot.
type SnapshotSource interface {
	Snapshot() app.Snapshot
}

// StatusHandler broadcasts pipeline snapshots to WebSocket clients.
type StatusHandler struct {
	source  SnapshotSource
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	once    sync.Once
	stopCh  chan struct{}
	stopped sync.Once
}

// NewStatusHandler creates a StatusHandler. Broadcasting starts with the first client.
func NewStatusHandler(source SnapshotSource) *StatusHandler {
	return &StatusHandler{
		source:  source,
		clients: make(map[*websocket.Conn]bool),
		stopCh:  make(chan struct{}),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.once.Do(func() { go h.broadcast() })

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer h.remove(conn)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *StatusHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcaster.
func (h *StatusHandler) Close() {
	h.stopped.Do(func() { close(h.stopCh) })
}

func (h *StatusHandler) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// broadcast sends the current snapshot to all connected clients.
func (h *StatusHandler) broadcast() {
	ticker := time.NewTicker(BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
		}

		h.mu.RLock()
		if len(h.clients) == 0 {
			h.mu.RUnlock()
			continue
		}
		conns := make([]*websocket.Conn, 0, len(h.clients))
		for conn := range h.clients {
			conns = append(conns, conn)
		}
		h.mu.RUnlock()

		msg, err := json.Marshal(h.source.Snapshot())
		if err != nil {
			log.Printf("Error encoding snapshot: %v", err)
			continue
		}

		for _, conn := range conns {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(conn)
				conn.Close()
			}
		}
	}
}
