// Package ws pushes repertoire changes to browser clients over websockets.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/showtime/internal/app/notification"
)

// ErrHubStopped is returned when sending to a hub that is no longer running.
var ErrHubStopped = errors.New("hub stopped")

// Frame is one message written to a client. The welcome frame carries the
// full state; event frames with a lower sequence number than it are stale.
type Frame struct {
	Type  string              `json:"type"`
	Now   time.Time           `json:"now"`
	Event *notification.Event `json:"event,omitempty"`
}

const (
	FrameWelcome = "welcome"
	FrameEvent   = "event"
)

// Hub owns the connected clients and fans messages out to all of them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound messages for all clients.
	broadcast chan []byte

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	done  chan struct{}
	count atomic.Int64
	now   func() time.Time
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

// Run serves register, unregister and broadcast requests until ctx is done.
// Clients that cannot keep up are dropped.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			if client.welcome != nil {
				if msg := client.welcome(); msg != nil {
					client.send <- msg
				}
			}
			h.clients[client] = true
			h.count.Store(int64(len(h.clients)))
			zlog.Debug().Msgf("Websocket client registered: remote=%s clients=%d", client.remote, len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					zlog.Warn().Msgf("Dropping slow websocket client: remote=%s", client.remote)
					h.drop(client)
				}
			}

		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.count.Store(int64(len(h.clients)))
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Send implements notification.Stream by broadcasting the event to every
// client.
func (h *Hub) Send(event *notification.Event) error {
	data, err := h.frame(FrameEvent, event)
	if err != nil {
		return err
	}
	return h.Broadcast(data)
}

func (h *Hub) frame(kind string, event *notification.Event) ([]byte, error) {
	data, err := json.Marshal(Frame{Type: kind, Now: h.now().UTC(), Event: event})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s frame", kind)
	}
	return data, nil
}

// Broadcast queues message for every client.
func (h *Hub) Broadcast(message []byte) error {
	select {
	case h.broadcast <- message:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) add(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
