/*
Package relay contains the core logic of the chat relay.

This file defines the Session, the state machine owning one client connection.
After the client identifies itself with its first frame, a reader loop and a
writer loop run concurrently: the reader publishes and persists every inbound
text frame, the writer drains this session's hub subscription onto the socket.
*/
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"relaychat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// MaxBodyBytes is the maximum allowed size of message text.
	MaxBodyBytes = 5000

	// appendTimeout bounds each persistence attempt so a storage outage
	// cannot freeze the reader loop indefinitely.
	appendTimeout = 5 * time.Second
)

// ErrHandshake indicates the identification frame was absent, malformed, or
// not text. The session never becomes active.
var ErrHandshake = errors.New("relay: invalid identification frame")

// MessageStore is the session's view of durable message storage.
type MessageStore interface {
	Append(ctx context.Context, conversationID, senderID int64, body string) error
}

// SessionState tracks a session through its lifecycle.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateIdentifying
	StateActive
	StateClosing
	StateClosed
)

// String returns the lifecycle state name for logging.
func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateIdentifying:
		return "identifying"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session owns one client connection for its whole lifetime. The reader and
// writer loops share no mutable state beyond the done channel used for
// cancellation; everything else flows through the hub subscription.
type Session struct {
	hub   *Hub
	conn  Conn
	store MessageStore

	// userID is the immutable session identity, set during identification.
	userID int64

	// sub is this session's cursor into the hub; nil until the session is active.
	sub *Subscription

	state atomic.Int32

	// done is closed exactly once to cancel whichever loop is still running.
	done      chan struct{}
	closeOnce sync.Once

	// structured logger with session context.
	logger zerolog.Logger
}

// NewSession wraps an upgraded connection. The session starts in the
// Connecting state; Run drives it through the rest of the lifecycle.
func NewSession(hub *Hub, conn Conn, store MessageStore) *Session {
	return &Session{
		hub:    hub,
		conn:   conn,
		store:  store,
		done:   make(chan struct{}),
		logger: logx.Logger().With().Str("component", "session").Logger(),
	}
}

// State reports the current lifecycle state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) setState(next SessionState) {
	s.state.Store(int32(next))
	s.logger.Debug().Str("state", next.String()).Msg("Session state transition.")
}

// UserID returns the identity established during identification, 0 before that.
func (s *Session) UserID() int64 {
	return s.userID
}

// Run drives the session from identification to teardown. It blocks until the
// session is closed and always releases the subscription and the transport,
// even when a loop fails.
func (s *Session) Run() {
	defer s.teardown()

	s.conn.SetReadLimit(maxMessageSize)

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	s.setState(StateIdentifying)

	userID, err := s.identify()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Session rejected during identification.")
		return
	}

	s.userID = userID
	s.logger = s.logger.With().Int64("user_id", userID).Logger()

	s.sub = s.hub.Subscribe()
	s.setState(StateActive)
	s.logger.Info().Msg("Session active.")

	go s.writePump()

	s.readPump()
}

// identify blocks on the first inbound frame, which must be a text frame
// decoding to an integer user identifier.
func (s *Session) identify() (int64, error) {
	messageType, frame, err := s.conn.ReadMessage()
	if err != nil {
		return 0, ErrHandshake
	}

	if messageType != websocket.TextMessage {
		return 0, ErrHandshake
	}

	userID, err := strconv.ParseInt(string(bytes.TrimSpace(frame)), 10, 64)
	if err != nil {
		return 0, ErrHandshake
	}

	return userID, nil
}

// readPump receives inbound frames one at a time. Each text frame is turned
// into a Message, then broadcast and persisted; both are attempted even when
// one fails, and each failure is reported independently. A close frame,
// transport error, or non-text frame ends the loop.
func (s *Session) readPump() {
	for {
		messageType, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			return
		}

		if messageType != websocket.TextMessage {
			s.logger.Warn().Int("frame_type", messageType).Msg("Client sent non-text frame, closing session.")
			return
		}

		body := string(frame)
		if len(body) > MaxBodyBytes {
			s.logger.Warn().Int("body_bytes", len(body)).Msg("Client message too long, dropped.")
			continue
		}

		s.dispatch(NewMessage(DefaultConversationID, s.userID, body))
	}
}

// dispatch broadcasts and persists one message. Broadcast and persistence are
// independent: a storage outage degrades durability, not liveness, and a
// closed hub does not stop the write to storage.
func (s *Session) dispatch(msg Message) {
	if err := s.hub.Publish(msg); err != nil {
		s.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Broadcast failed.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()

	if err := s.store.Append(ctx, msg.ConversationID, msg.SenderID, msg.Body); err != nil {
		s.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to persist message.")
	}
}

// writePump drains the subscription and writes each message to the transport,
// interleaved with heartbeat pings. A write failure or cancellation ends the
// loop and triggers session teardown.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		s.teardown()
	}()

	var seenLagged uint64

	for {
		select {
		case msg, ok := <-s.sub.Stream():
			if !ok {
				// Subscription released; tell the peer we are done.
				s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if lagged := s.sub.Lagged(); lagged > seenLagged {
				s.logger.Warn().Uint64("dropped", lagged-seenLagged).Msg("Slow consumer, oldest messages dropped.")
				seenLagged = lagged
			}

			if !s.writeMessage(msg) {
				return
			}

		case <-ticker.C:
			if !s.writePing() {
				return
			}

		case <-s.done:
			return
		}
	}
}

// writeMessage serializes one message onto the transport. Returns false when
// the writer loop should terminate.
func (s *Session) writeMessage(msg Message) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	frame, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Error marshaling message")
		return true
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		s.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePing sends the periodic heartbeat. Returns false on write failure.
func (s *Session) writePing() bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		s.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// teardown closes the session exactly once: it cancels the peer loop, releases
// the subscription, and closes the transport. Safe no matter which loop ends
// first, and safe when the session never became active.
func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.setState(StateClosing)

		close(s.done)

		if s.sub != nil {
			s.sub.Close()
		}

		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Session connection close error")
		}

		s.setState(StateClosed)
		s.logger.Info().Msg("Session closed.")
	})
}
