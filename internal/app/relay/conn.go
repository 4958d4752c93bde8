package relay

import "time"

// Conn is the subset of the WebSocket connection a Session needs.
// *websocket.Conn satisfies it; tests substitute an in-memory fake.
type Conn interface {
	// ReadMessage blocks until the next frame arrives or the connection fails.
	ReadMessage() (messageType int, p []byte, err error)

	// WriteMessage writes a single frame of the given type.
	WriteMessage(messageType int, data []byte) error

	// SetReadLimit caps the size of inbound frames.
	SetReadLimit(limit int64)

	// SetReadDeadline bounds how long ReadMessage may block.
	SetReadDeadline(t time.Time) error

	// SetWriteDeadline bounds how long WriteMessage may block.
	SetWriteDeadline(t time.Time) error

	// SetPongHandler installs the heartbeat callback.
	SetPongHandler(h func(appData string) error)

	// Close tears the transport down, unblocking any pending read.
	Close() error
}
