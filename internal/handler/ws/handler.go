// Package ws terminates the realtime channel: it upgrades connections,
// pumps hub envelopes out, and feeds inbound events to the coordinator.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lifeline-dev/lifeline/internal/hub"
	"github.com/lifeline-dev/lifeline/internal/model/track"
	"github.com/lifeline-dev/lifeline/internal/service/session"
)

const (
	// Time allowed to write a message to the client.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the client.
	pongWait = 60 * time.Second

	// Send pings to client with this period. Must be less than pongWait.
	pingPeriod = 54 * time.Second

	// Maximum inbound message size.
	maxMessageSize = 1024
)

// Handler owns the websocket endpoint.
type Handler struct {
	hub         *hub.Hub
	coordinator *session.Coordinator
	upgrader    websocket.Upgrader
	log         zerolog.Logger
}

// New creates the websocket handler.
func New(h *hub.Hub, coordinator *session.Coordinator, log zerolog.Logger) *Handler {
	return &Handler{
		hub:         h,
		coordinator: coordinator,
		log:         log.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the realtime endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleConnection)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type locationPayload struct {
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Status string   `json:"status"`
}

type joinPayload struct {
	Room string `json:"room"`
}

type privatePayload struct {
	RoomID string `json:"roomId"`
}

func (h *Handler) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("upgrade failed")
		return
	}

	client := h.hub.Register()
	h.log.Info().Str("session", client.ID).Msg("connection established")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.writeLoop(ctx, conn, client)

	// The client needs its transport-assigned id before anything else: the
	// REST timer endpoints key on it.
	h.hub.SendTo(client.ID, "connected", map[string]string{"id": client.ID})
	h.coordinator.Connect(client.ID)

	h.readLoop(conn, client)

	// Unregister first so the disconnect broadcast never targets the
	// session that just left.
	h.hub.Unregister(client.ID)
	h.coordinator.Disconnect(client.ID)
}

func (h *Handler) readLoop(conn *websocket.Conn, client *hub.Client) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Str("session", client.ID).Msg("read error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		h.dispatch(client, &msg)
	}
}

// dispatch routes one inbound event. A malformed payload earns the sender
// an error envelope and nothing more; it never reaches the registries.
func (h *Handler) dispatch(client *hub.Client, msg *inboundMessage) {
	switch msg.Type {
	case "send-location":
		var loc locationPayload
		if err := json.Unmarshal(msg.Data, &loc); err != nil || loc.Lat == nil || loc.Lng == nil {
			h.sendError(client, "invalid location payload")
			return
		}
		sample := track.PositionSample{Lat: *loc.Lat, Lng: *loc.Lng, Status: loc.Status}
		if err := h.coordinator.Location(client.ID, sample); err != nil {
			h.sendError(client, err.Error())
		}

	case "signal-sos":
		h.coordinator.SOS(client.ID)

	case "join-session":
		var join joinPayload
		if err := json.Unmarshal(msg.Data, &join); err != nil || join.Room == "" {
			h.sendError(client, "invalid join payload")
			return
		}
		h.coordinator.JoinRoom(client.ID, join.Room)

	case "send-private-location":
		var private privatePayload
		if err := json.Unmarshal(msg.Data, &private); err != nil || private.RoomID == "" {
			h.sendError(client, "invalid private location payload")
			return
		}
		// The payload is relayed verbatim to the room.
		h.coordinator.PrivateLocation(client.ID, private.RoomID, msg.Data)

	default:
		h.sendError(client, "unsupported event type: "+msg.Type)
	}
}

func (h *Handler) sendError(client *hub.Client, message string) {
	h.hub.SendTo(client.ID, "error", map[string]string{"message": message})
}

// writeLoop is the sole writer on the connection. It drains the client's
// hub channel and keeps the connection alive with pings.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case env, ok := <-client.Events:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		}
	}
}
