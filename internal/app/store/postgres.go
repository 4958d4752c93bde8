package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements UserStore and MessageStore on a pgx connection pool.
// The pool is safe for concurrent use; one Postgres instance serves the whole process.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// CreateUser inserts a new account and returns the stored record.
func (p *Postgres) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	var u User

	err := p.pool.QueryRow(ctx,
		`INSERT INTO users (username, password_hash)
		 VALUES ($1, $2)
		 RETURNING id, username, password_hash, created_at`,
		username, passwordHash,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicateUser
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

// GetUserByUsername fetches an account by its unique username.
func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var u User

	err := p.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at
		 FROM users
		 WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user by username: %w", err)
	}

	return u, nil
}

// UpdateUserPassword replaces the stored password hash for the given user.
func (p *Postgres) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`,
		userID, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Append durably records one message.
func (p *Postgres) Append(ctx context.Context, conversationID, senderID int64, body string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO messages (conversation_id, sender_id, body)
		 VALUES ($1, $2, $3)`,
		conversationID, senderID, body,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	return nil
}

// History returns all messages of a conversation in insertion order.
func (p *Postgres) History(ctx context.Context, conversationID int64) ([]Message, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, conversation_id, sender_id, body, created_at
		 FROM messages
		 WHERE conversation_id = $1
		 ORDER BY id`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	return messages, nil
}
