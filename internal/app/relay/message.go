/*
Package relay contains the core logic of the chat relay: the broadcast hub that
fans messages out to every connected peer and the per-connection session that
pairs a reader loop with a writer loop over one WebSocket.
*/
package relay

import (
	"time"

	"github.com/google/uuid"
)

// DefaultConversationID is the single conversation all messages belong to.
// Multi-conversation routing is out of scope for the relay.
const DefaultConversationID int64 = 1

// Message is the unit of traffic flowing through the hub and onto the wire.
type Message struct {
	// ID uniquely identifies the message across the process.
	ID string `json:"id"`

	// ConversationID identifies the conversation the message belongs to.
	ConversationID int64 `json:"conversationId"`

	// SenderID is the user identifier of the originating session.
	SenderID int64 `json:"senderId"`

	// Body is the raw message text as received from the client.
	Body string `json:"body"`

	// Timestamp is the server receive time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// NewMessage builds a Message with a fresh ID and the current server time.
func NewMessage(conversationID, senderID int64, body string) Message {
	return Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		Timestamp:      time.Now().UnixMilli(),
	}
}
