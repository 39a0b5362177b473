package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// ConversationRepository owns per-user conversation history. Sessions are
// created implicitly by AddMessage and destroyed only by ClearHistory.
// Absence is always reported as a nil result or a false flag, never as an
// error: session-absent and session-with-empty-history are distinct states.
type ConversationRepository interface {
	// AddMessage appends a message to the user's history, creating the
	// session if it does not exist. Every call updates last_active_at.
	// Appends are all-or-nothing per message.
	AddMessage(ctx context.Context, userID string, message *schema.Message) error

	// LoadHistory retrieves the full history for a user. Returns nil
	// (no error) when the session does not exist.
	LoadHistory(ctx context.Context, userID string) (*ConversationHistory, error)

	// ClearHistory removes the session entirely and reports whether one existed.
	ClearHistory(ctx context.Context, userID string) (bool, error)

	// Exists reports whether a session exists for the user.
	Exists(ctx context.Context, userID string) (bool, error)

	// MessageCount returns the number of messages in the user's history.
	MessageCount(ctx context.Context, userID string) (int, error)

	// Summary returns the session metadata for a user, nil when absent.
	Summary(ctx context.Context, userID string) (*SessionSummary, error)

	// ListSessions returns summaries for every active session, most
	// recently active first.
	ListSessions(ctx context.Context) ([]SessionSummary, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	UserID   string
	Messages []*schema.Message
}

// SessionSummary is the lightweight per-session view used by status queries.
type SessionSummary struct {
	UserID       string    `json:"user_id"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}
