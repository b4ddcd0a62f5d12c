package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ColonelBlimp/morsekey/internal/publish"
	"github.com/ColonelBlimp/morsekey/internal/recovery"
	"github.com/gorilla/websocket"
)

const (
	// clientBuffer is how many snapshots a slow client may fall behind before
	// older ones are discarded.
	clientBuffer = 4
	writeWait    = 5 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan publish.Snapshot
}

// Hub pushes snapshots to connected websocket clients. It implements
// http.Handler for the upgrade and publish.Sink for delivery.
type Hub struct {
	upgrader  websocket.Upgrader
	snapshots SnapshotSource
	logger    *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub that greets each new client with the current snapshot.
func NewHub(snapshots SnapshotSource, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The status page is served from the same host on a private network.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		snapshots: snapshots,
		logger:    logger,
		clients:   make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request and streams snapshots until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("server: websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan publish.Snapshot, clientBuffer)}
	c.send <- h.snapshots.Snapshot()
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	h.logger.Debug("server: websocket client connected", "remote", r.RemoteAddr)

	recovery.Go(func() { h.writeLoop(c) })

	// Reads only detect the close; clients never send anything we use.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(c)
	h.logger.Debug("server: websocket client disconnected", "remote", r.RemoteAddr)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for snap := range c.send {
		data, err := json.Marshal(snap)
		if err != nil {
			h.logger.Error("server: encode snapshot", "error", err)
			continue
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
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
		close(c.send)
	}
}

// Name implements publish.Sink.
func (h *Hub) Name() string { return "websocket" }

// Deliver implements publish.Sink. A client whose buffer is full loses its
// oldest pending snapshot; the newest always gets queued.
func (h *Hub) Deliver(_ context.Context, snap publish.Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- snap:
			continue
		default:
		}
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- snap:
		default:
		}
	}
	return nil
}

// Clients returns the number of connected websocket clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
