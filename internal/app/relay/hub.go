/*
Package relay contains the core logic of the chat relay.

This file defines the Hub, the process-wide broadcast stream, and the
Subscription, a per-session read cursor into that stream. A subscription that
falls behind loses its oldest unread messages rather than blocking publishers.
*/
package relay

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"relaychat/internal/pkg/logx"
)

// DefaultHubCapacity is the per-subscription buffer size of the broadcast stream.
const DefaultHubCapacity = 100

// ErrHubClosed is returned by Publish once the hub has been shut down.
// A hub with zero subscribers is not an error; publishing to it is a no-op.
var ErrHubClosed = errors.New("relay: hub is closed")

// Hub owns the set of live subscriptions and mediates all message fan-out.
// It holds no per-connection state beyond the subscription cursors; connections
// themselves are owned by their sessions.
type Hub struct {
	// capacity is the buffer size handed to each new subscription.
	capacity int

	// mu protects subs and closed.
	mu sync.Mutex

	// subs is the set of live subscriptions.
	subs map[*Subscription]struct{}

	// closed flips once at shutdown; Publish fails afterwards.
	closed bool

	// structured logger with hub context.
	logger zerolog.Logger
}

// NewHub creates a Hub whose subscriptions buffer up to capacity messages.
// A non-positive capacity falls back to DefaultHubCapacity.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultHubCapacity
	}

	return &Hub{
		capacity: capacity,
		subs:     make(map[*Subscription]struct{}),
		logger:   logx.Logger().With().Str("component", "hub").Logger(),
	}
}

// Subscribe registers a new consumer cursor and returns it immediately.
// It never fails: after shutdown it returns an already-closed subscription
// whose stream yields no messages.
func (h *Hub) Subscribe() *Subscription {
	s := newSubscription(h, h.capacity)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		s.shutdown()
		return s
	}

	h.subs[s] = struct{}{}
	return s
}

// Publish delivers msg to every live subscription. Publishing never blocks:
// a full subscription drops its oldest unread message instead. Publish calls
// are serialized by the hub lock, so one sender's messages keep their order
// for every subscriber.
func (h *Hub) Publish(msg Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}

	for s := range h.subs {
		s.push(msg)
	}

	return nil
}

// Close shuts the hub down, closing every subscription stream. Idempotent.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for s := range h.subs {
		s.shutdown()
	}
	h.subs = make(map[*Subscription]struct{})

	h.logger.Info().Msg("Hub closed.")
}

// remove drops a subscription from the live set.
func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subs, s)
}

// SubscriberCount reports the number of live subscriptions.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subs)
}

// Subscription is one session's read cursor into the hub's broadcast stream.
type Subscription struct {
	hub *Hub

	// mu serializes push against Close so the stream channel is never written
	// after it is closed.
	mu sync.Mutex

	// stream buffers messages between the hub and the session's writer loop.
	stream chan Message

	// closed marks the subscription as released.
	closed bool

	// lagged counts messages dropped because the consumer fell behind.
	lagged atomic.Uint64
}

func newSubscription(h *Hub, capacity int) *Subscription {
	return &Subscription{
		hub:    h,
		stream: make(chan Message, capacity),
	}
}

// Stream returns the channel the session's writer loop drains. The channel is
// closed when the subscription is released or the hub shuts down.
func (s *Subscription) Stream() <-chan Message {
	return s.stream
}

// Lagged reports how many messages were dropped because this consumer fell
// behind the publishers.
func (s *Subscription) Lagged() uint64 {
	return s.lagged.Load()
}

// Close releases the cursor. Idempotent and safe to call concurrently with
// Publish.
func (s *Subscription) Close() {
	s.shutdown()
	s.hub.remove(s)
}

// shutdown closes the stream without touching the hub's subscription set.
func (s *Subscription) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.stream)
}

// push enqueues msg, evicting the oldest buffered message when the buffer is
// full. Only the hub calls push, one message at a time, so after one eviction
// a slot is guaranteed to be free.
func (s *Subscription) push(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	for {
		select {
		case s.stream <- msg:
			return
		default:
		}

		select {
		case <-s.stream:
			s.lagged.Add(1)
		default:
		}
	}
}
