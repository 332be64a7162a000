package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/kickoff-wellness/kickoff/internal/domain"
	"github.com/kickoff-wellness/kickoff/internal/infra/metrics"
	"github.com/kickoff-wellness/kickoff/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// liveMessage is the frame written to live subscribers.
type liveMessage struct {
	Type         string               `json:"type"` // "ready" or "notification"
	Notification *domain.Notification `json:"notification,omitempty"`
}

type liveClient struct {
	userKey string
	conn    *websocket.Conn
	send    chan []byte
}

// Hub fans engine notifications out to websocket subscribers of the same
// user. It implements domain.Notifier and never blocks the engine: frames
// for a subscriber whose buffer is full are dropped.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*liveClient]struct{}
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHub creates a hub accepting upgrades from origins. Empty or "*"
// accepts any origin.
func NewHub(origins []string) *Hub {
	h := &Hub{
		clients: make(map[string]map[*liveClient]struct{}),
		log:     logger.Component("live"),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(origins) == 0 || slices.Contains(origins, "*") || slices.Contains(origins, origin)
		},
	}
	return h
}

// Notify implements domain.Notifier.
func (h *Hub) Notify(n domain.Notification) {
	msg, err := json.Marshal(liveMessage{Type: "notification", Notification: &n})
	if err != nil {
		h.log.Error("encode notification failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[n.UserKey] {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("live subscriber too slow, dropping frame", "user", n.UserKey, "kind", n.Kind)
		}
	}
}

// Subscribers returns the number of live connections for userKey.
func (h *Hub) Subscribers(userKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userKey])
}

// HandleLive upgrades the request and streams the user's notifications
// until the client disconnects.
func (h *Hub) HandleLive(w http.ResponseWriter, r *http.Request) {
	userKey := chi.URLParam(r, "user")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "user", userKey, "error", err)
		return
	}

	c := &liveClient{userKey: userKey, conn: conn, send: make(chan []byte, sendBuffer)}
	ready, _ := json.Marshal(liveMessage{Type: "ready"})
	c.send <- ready
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userKey]
	if !ok {
		set = make(map[*liveClient]struct{})
		h.clients[c.userKey] = set
	}
	set[c] = struct{}{}
	metrics.LiveSubscribers.Inc()
	h.log.Debug("live subscriber joined", "user", c.userKey)
}

func (h *Hub) unregister(c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[c.userKey]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userKey)
	}
	close(c.send)
	metrics.LiveSubscribers.Dec()
	h.log.Debug("live subscriber left", "user", c.userKey)
}

// readPump discards client frames and keeps the read deadline alive.
func (h *Hub) readPump(c *liveClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *liveClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug("live write failed", "user", c.userKey, "error", err)
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
