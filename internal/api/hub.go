package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// keepAlive is the interval between SSE comment frames on idle streams.
var keepAlive = 30 * time.Second

// Event is pushed to subscribers of a session whenever its state changes.
type Event struct {
	Type     string `json:"type"`
	Session  string `json:"session"`
	Revision uint64 `json:"revision"`
}

// Event types.
const (
	EventChanged = "changed"
	EventClosed  = "closed"
)

type client struct {
	id      uint64
	session string
	events  chan []byte
}

// Hub fans session events out to SSE clients. Slow clients miss events
// instead of blocking the session that produced them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	nextID  atomic.Uint64
	logger  *log.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{clients: make(map[*client]struct{}), logger: logger}
}

// Broadcast sends ev to every client subscribed to ev.Session. It never
// blocks.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal event", "err", err)
		return
	}
	msg := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, data))

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.session != ev.Session {
			continue
		}
		select {
		case c.events <- msg:
		default:
			h.logger.Debug("sse client is slow, dropping event", "client", c.id, "session", ev.Session)
		}
	}
}

// ClientCount returns the number of connected clients across all sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) subscribe(session string) *client {
	c := &client{
		id:      h.nextID.Add(1),
		session: session,
		events:  make(chan []byte, 64),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("sse client connected", "client", c.id, "session", session, "total", n)
	return c
}

func (h *Hub) unsubscribe(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("sse client disconnected", "client", c.id, "total", n)
}

// Serve streams the events of one session to w until the request ends or
// the session is closed.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, session string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	c := h.subscribe(session)
	defer h.unsubscribe(c)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	closed := fmt.Sprintf("event: %s\n", EventClosed)
	for {
		select {
		case msg := <-c.events:
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()
			if strings.HasPrefix(string(msg), closed) {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
