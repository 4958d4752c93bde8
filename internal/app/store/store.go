/*
Package store provides durable persistence for users and messages.

It defines the storage boundary as narrow interfaces (UserStore, MessageStore)
with a PostgreSQL implementation on top of a pgx connection pool. The relay and
HTTP layers depend only on the interfaces, so tests can substitute in-memory fakes.
*/
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicateUser is returned when a username is already registered.
	ErrDuplicateUser = errors.New("store: username already exists")

	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("store: record not found")
)

// User is a stored account record.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Message is a stored chat message record.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversationId"`
	SenderID       int64     `json:"senderId"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"createdAt"`
}

// UserStore persists and retrieves account records.
type UserStore interface {
	// CreateUser inserts a new account. Returns ErrDuplicateUser when the
	// username is taken.
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)

	// GetUserByUsername fetches an account by username. Returns ErrNotFound
	// when no such user exists.
	GetUserByUsername(ctx context.Context, username string) (User, error)

	// UpdateUserPassword replaces the stored password hash for the given user.
	UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error
}

// MessageStore appends message records and serves conversation history.
type MessageStore interface {
	// Append durably records one message.
	Append(ctx context.Context, conversationID, senderID int64, body string) error

	// History returns all messages of a conversation in insertion order.
	History(ctx context.Context, conversationID int64) ([]Message, error)
}
