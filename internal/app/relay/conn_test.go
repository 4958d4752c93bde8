package relay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// mockConn is an in-memory Conn used to exercise sessions without a network.
//
// To simulate a frame arriving from the client, push into inbound:
//
//	c := newMockConn()
//	c.inbound <- frame(websocket.TextMessage, "10")
//
// Frames the session writes are collected on outbound. Closing the connection
// (from either side) unblocks a pending ReadMessage with an error, the same
// way a real peer disconnect does.
type mockConn struct {
	inbound  chan mockFrame
	outbound chan mockFrame

	// failWrites makes every WriteMessage fail, simulating a broken write path.
	failWrites atomic.Bool

	closed    chan struct{}
	closeOnce sync.Once
}

type mockFrame struct {
	messageType int
	data        []byte
}

func frame(messageType int, data string) mockFrame {
	return mockFrame{messageType: messageType, data: []byte(data)}
}

func newMockConn() *mockConn {
	return &mockConn{
		inbound:  make(chan mockFrame, 16),
		outbound: make(chan mockFrame, 64),
		closed:   make(chan struct{}),
	}
}

func (c *mockConn) ReadMessage() (int, []byte, error) {
	select {
	case f, ok := <-c.inbound:
		if !ok {
			return 0, nil, errors.New("mock: remote endpoint gone")
		}
		return f.messageType, f.data, nil
	case <-c.closed:
		return 0, nil, errors.New("mock: connection closed")
	}
}

func (c *mockConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return errors.New("mock: connection closed")
	default:
	}

	if c.failWrites.Load() {
		return errors.New("mock: write failed")
	}

	select {
	case c.outbound <- mockFrame{messageType: messageType, data: data}:
		return nil
	default:
		return errors.New("mock: outbound buffer full")
	}
}

func (c *mockConn) SetReadLimit(int64) {}

func (c *mockConn) SetReadDeadline(time.Time) error { return nil }

func (c *mockConn) SetWriteDeadline(time.Time) error { return nil }

func (c *mockConn) SetPongHandler(func(appData string) error) {}

func (c *mockConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// fakeMessageStore records appends in memory and can be switched into a
// failing mode to simulate a storage outage.
type fakeMessageStore struct {
	mu      sync.Mutex
	records []storedMessage
	failing atomic.Bool
}

type storedMessage struct {
	conversationID int64
	senderID       int64
	body           string
}

func (f *fakeMessageStore) Append(_ context.Context, conversationID, senderID int64, body string) error {
	if f.failing.Load() {
		return errors.New("mock: storage down")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, storedMessage{conversationID, senderID, body})
	return nil
}

func (f *fakeMessageStore) stored() []storedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storedMessage(nil), f.records...)
}
