// Package hub implements the realtime fanout layer: a registry of live
// connections with unicast, room-scoped and global delivery. The hub knows
// nothing about the domain; it moves envelopes.
package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// sendBuffer bounds per-client delivery. A client that cannot drain its
// buffer loses events rather than stalling everyone else's fanout.
const sendBuffer = 64

// Envelope is the wire frame for every outbound realtime event.
type Envelope struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Client is one live connection. Events is drained by the connection's
// write loop and closed by the hub on unregister.
type Client struct {
	ID     string
	Events chan Envelope
}

// Hub tracks connected clients and their room membership.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]string // session id -> joined room
	log     zerolog.Logger
}

// New creates an empty hub.
func New(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]string),
		log:     log.With().Str("component", "hub").Logger(),
	}
}

// Register creates a client with a fresh session id. A reconnect gets a
// brand-new id; nothing survives across connections.
func (h *Hub) Register() *Client {
	c := &Client{
		ID:     uuid.NewString(),
		Events: make(chan Envelope, sendBuffer),
	}

	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	h.log.Info().Str("session", c.ID).Msg("client registered")
	return c
}

// Unregister drops the client and its room membership and closes its event
// channel. Safe to call for unknown ids.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	c, ok := h.clients[sessionID]
	if ok {
		delete(h.clients, sessionID)
		delete(h.rooms, sessionID)
		close(c.Events)
	}
	h.mu.Unlock()

	if ok {
		h.log.Info().Str("session", sessionID).Msg("client unregistered")
	}
}

// Join binds the session to a room, replacing any previous membership.
func (h *Hub) Join(sessionID, room string) {
	h.mu.Lock()
	if _, ok := h.clients[sessionID]; ok {
		h.rooms[sessionID] = room
	}
	h.mu.Unlock()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendTo delivers an event to one session. Delivery to a gone or slow
// session is silently dropped.
func (h *Hub) SendTo(sessionID, event string, payload any) {
	h.mu.RLock()
	c, ok := h.clients[sessionID]
	if ok {
		h.deliver(c, event, payload)
	}
	h.mu.RUnlock()
}

// SendToRoom delivers an event to every member of the room except
// excludeID.
func (h *Hub) SendToRoom(roomID, event string, payload any, excludeID string) {
	h.mu.RLock()
	for id, room := range h.rooms {
		if room != roomID || id == excludeID {
			continue
		}
		if c, ok := h.clients[id]; ok {
			h.deliver(c, event, payload)
		}
	}
	h.mu.RUnlock()
}

// BroadcastAll delivers an event to every connected session except
// excludeID. Pass "" to include everyone.
func (h *Hub) BroadcastAll(event string, payload any, excludeID string) {
	h.mu.RLock()
	for id, c := range h.clients {
		if id == excludeID {
			continue
		}
		h.deliver(c, event, payload)
	}
	h.mu.RUnlock()
}

// deliver is called with the read lock held; unregister takes the write
// lock before closing Events, so the channel is live here.
func (h *Hub) deliver(c *Client, event string, payload any) {
	env := Envelope{Type: event, Data: payload, Timestamp: time.Now().Unix()}
	select {
	case c.Events <- env:
	default:
		h.log.Warn().Str("session", c.ID).Str("event", event).Msg("slow consumer, event dropped")
	}
}
