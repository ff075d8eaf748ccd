// Package notification provides the notification manager for broadcasting
// snapshot changes to streaming subscribers.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

const sendTimeout = 500 * time.Millisecond

// Kind identifies which shared state changed.
type Kind string

const (
	KindLibrary Kind = "library"
	KindSetlist Kind = "setlist"
	KindPresets Kind = "presets"
	// KindState carries the full state sent to a new subscriber.
	KindState Kind = "state"
)

// Event is one change notification. Payload holds the new snapshot view.
type Event struct {
	Kind    Kind      `json:"kind"`
	Seq     uint64    `json:"seq"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Event) error
}

// StreamFunc adapts a function to Stream.
type StreamFunc func(*Event) error

// Send implements Stream.
func (f StreamFunc) Send(e *Event) error {
	return f(e)
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
	now           func() time.Time
	done          chan struct{}
	closeOnce     sync.Once
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		now:           time.Now,
		done:          make(chan struct{}),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// nextSequenceNo returns the next sequence number.
func (m *Manager) nextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Stamp builds an event with the next sequence number without sending it.
func (m *Manager) Stamp(kind Kind, payload any) *Event {
	return &Event{
		Kind:    kind,
		Seq:     m.nextSequenceNo(),
		At:      m.now().UTC(),
		Payload: payload,
	}
}

// Broadcast stamps kind and payload with the next sequence number and sends
// the event to all subscribers. Each send runs in its own goroutine with a
// timeout so a slow subscriber cannot block the others. Subscribers whose
// send fails are removed.
func (m *Manager) Broadcast(kind Kind, payload any) *Event {
	event := m.Stamp(kind, payload)

	m.mu.RLock()
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(event)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Err(err).Msgf("Dropping subscriber: id=%s", s.id)
					m.Unsubscribe(s.id)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("Notification to subscriber timed out: id=%s seq=%d", s.id, event.Seq)
			}
		}(sub)
	}

	wg.Wait()
	return event
}

// Send sends an event to a specific subscriber without consuming a sequence number.
func (m *Manager) Send(subscriptionID string, event *Event) error {
	m.mu.RLock()
	sub, ok := m.subscriptions[subscriptionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return sub.stream.Send(event)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Done is closed once the manager is closed.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
	m.closeOnce.Do(func() { close(m.done) })
}
