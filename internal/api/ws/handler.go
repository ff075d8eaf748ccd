package ws

import (
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/showtime/internal/app/notification"
)

// SnapshotFunc returns the full state as a stamped event.
type SnapshotFunc func() *notification.Event

// Handler upgrades requests to websockets and registers them with a hub.
type Handler struct {
	hub      *Hub
	snapshot SnapshotFunc
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler. An empty allowedOrigins list
// accepts any origin.
func NewHandler(hub *Hub, snapshot SnapshotFunc, allowedOrigins []string) *Handler {
	return &Handler{
		hub:      hub,
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Err(err).Msgf("Websocket upgrade failed: remote=%s", r.RemoteAddr)
		return
	}

	client := newClient(h.hub, conn, h.welcome)
	if err := h.hub.add(client); err != nil {
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Handler) welcome() []byte {
	var event *notification.Event
	if h.snapshot != nil {
		event = h.snapshot()
	}
	data, err := h.hub.frame(FrameWelcome, event)
	if err != nil {
		zlog.Error().Err(err).Msg("Failed to build welcome frame")
		return nil
	}
	return data
}
