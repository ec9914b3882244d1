// Package notification provides the notification manager for broadcasting events.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// EventType identifies what changed.
type EventType string

const (
	EventInitialState      EventType = "initial_state"
	EventQueueChanged      EventType = "queue_changed"
	EventNowPlayingChanged EventType = "now_playing_changed"
	EventSettingsChanged   EventType = "settings_changed"
	EventPlaylistChanged   EventType = "playlist_changed"
)

// Event tells subscribers to re-query a read model.
type Event struct {
	Type       EventType `json:"type"`
	SequenceNo uint64    `json:"sequenceNo"`
	Reason     string    `json:"reason,omitempty"`    // operation that caused the change
	SubjectID  string    `json:"subjectId,omitempty"` // entry or playlist id
	Origin     string    `json:"origin,omitempty"`    // id of the publishing process
	At         time.Time `json:"at"`
}

// Publisher accepts change events. Publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Event) error
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
	sendTimeout   time.Duration
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   500 * time.Millisecond,
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

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, subscriptionID)
}

// Publish implements Publisher by broadcasting to local subscribers.
func (m *Manager) Publish(_ context.Context, ev Event) {
	m.Broadcast(&ev)
}

// Broadcast stamps the event with the next sequence number and sends it to
// all subscribers. A subscriber that fails or stalls past the send timeout is
// dropped.
func (m *Manager) Broadcast(ev *Event) {
	ev.SequenceNo = m.NextSequenceNo()
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
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
			ctx, cancel := context.WithTimeout(context.Background(), m.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.stream.Send(ev)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("Dropping subscriber after send error: id=%s err=%v", s.id, err)
					m.Unsubscribe(s.id)
				}
			case <-ctx.Done():
				zlog.Debug().Msgf("Dropping stalled subscriber: id=%s", s.id)
				m.Unsubscribe(s.id)
			}
		}(sub)
	}

	wg.Wait()
	zlog.Debug().Msgf("Broadcast event: type=%s seq=%d subscribers=%d", ev.Type, ev.SequenceNo, len(subs))
}

// Send sends an event to a specific subscriber.
func (m *Manager) Send(subscriptionID string, ev *Event) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return nil
	}

	return sub.stream.Send(ev)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}

type multi []Publisher

// Multi fans an event out to every non-nil publisher in order.
func Multi(pubs ...Publisher) Publisher {
	out := make(multi, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (m multi) Publish(ctx context.Context, ev Event) {
	for _, p := range m {
		p.Publish(ctx, ev)
	}
}

type discard struct{}

func (discard) Publish(context.Context, Event) {}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}
