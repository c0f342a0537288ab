package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/signbridge/internal/session"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 5 * time.Second
	wsSendBuffer = 8
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// SessionHub pushes session snapshots to WebSocket clients on every change.
type SessionHub struct {
	state   *session.State
	logger  *slog.Logger
	clients map[*wsClient]bool
	mu      sync.RWMutex
}

type wsClient struct {
	send chan session.Snapshot
}

// NewSessionHub creates a hub subscribed to state changes.
func NewSessionHub(state *session.State, logger *slog.Logger) *SessionHub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &SessionHub{
		state:   state,
		logger:  logger,
		clients: make(map[*wsClient]bool),
	}
	state.OnChange(h.broadcast)
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *SessionHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	client := &wsClient{send: make(chan session.Snapshot, wsSendBuffer)}
	client.send <- h.state.Snapshot()

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
	}()

	// Reads only detect the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case snap := <-client.send:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(snap); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

// Clients returns the number of connected clients.
func (h *SessionHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast queues the snapshot for every client, dropping it for
// clients whose buffer is full.
func (h *SessionHub) broadcast(c session.Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- c.Snapshot:
		default:
		}
	}
}
