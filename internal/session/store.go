// Package session provides conversation session storage.
package session

import (
	"context"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation entry. Immutable once appended.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a logical conversation with ordered message history.
type Session struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
}

// Store defines the interface for persisting conversation sessions.
// Sessions are append-only; insertion order is the only meaningful order.
type Store interface {
	// GetOrCreate returns the session with the given id, creating it if
	// needed. An empty id asks the store to generate one.
	GetOrCreate(ctx context.Context, sessionID string) (*Session, error)

	// Append adds a message to the session's history.
	Append(ctx context.Context, sessionID, role, content string) error

	// History returns the session's messages in insertion order. A session
	// with no messages (or an unknown session) yields an empty slice.
	History(ctx context.Context, sessionID string) ([]Message, error)

	// Clear removes all messages from a session, keeping the session itself.
	Clear(ctx context.Context, sessionID string) error

	// Close releases store resources.
	Close() error
}
