package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is wrapped by every lookup that matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is wrapped when a unique constraint rejects an insert.
	ErrConflict = errors.New("already exists")
)

// User represents a user in the system.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Conversation is a chat between participants; each one maps to a live room.
type Conversation struct {
	ID        int64
	CreatedAt time.Time
}

// Message represents a persisted chat message.
type Message struct {
	ID             int64
	ConversationID int64
	SenderID       int64
	Content        string
	CreatedAt      time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// ConversationStore handles conversations and their participants.
type ConversationStore interface {
	// CreateConversation creates a conversation with the given participants.
	CreateConversation(ctx context.Context, participantIDs ...int64) (*Conversation, error)

	// GetConversationByID retrieves a conversation by ID.
	GetConversationByID(ctx context.Context, id int64) (*Conversation, error)

	// IsParticipant checks if user takes part in the conversation.
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)

	// ListParticipants lists user IDs of a conversation.
	ListParticipants(ctx context.Context, conversationID int64) ([]int64, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage atomically records a message and assigns its ID and timestamp.
	// Timestamps never go backwards within one conversation.
	CreateMessage(ctx context.Context, conversationID, senderID int64, content string) (*Message, error)

	// ListMessages retrieves messages of a conversation in creation order.
	// If beforeID is provided, returns messages older than that ID.
	ListMessages(ctx context.Context, conversationID int64, limit int, beforeID *int64) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ConversationStore
	MessageStore

	// Migrate creates missing tables.
	Migrate(ctx context.Context) error

	// Close closes the underlying database connection.
	Close() error
}
