package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/wirechat-live/internal/store"
)

//go:embed schema.sql
var schema string

const dsnParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new SQLite store.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, nil)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply schema without migrations.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Migrate applies the embedded schema. It is safe to run repeatedly.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert user %q: %w", username, store.ErrConflict)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// ==== ConversationStore implementation ====

// CreateConversation creates a conversation and registers its participants.
func (s *SQLiteStore) CreateConversation(ctx context.Context, participantIDs ...int64) (*store.Conversation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `INSERT INTO conversations (created_at) VALUES (?)`, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	for _, userID := range participantIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO conversation_participants (conversation_id, user_id)
			VALUES (?, ?)
		`, id, userID); err != nil {
			return nil, fmt.Errorf("insert participant %d: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetConversationByID(ctx, id)
}

// GetConversationByID retrieves a conversation by ID.
func (s *SQLiteStore) GetConversationByID(ctx context.Context, id int64) (*store.Conversation, error) {
	var conv store.Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at FROM conversations WHERE id = ?
	`, id).Scan(&conv.ID, &conv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("conversation: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	return &conv, nil
}

// IsParticipant checks if user takes part in the conversation.
func (s *SQLiteStore) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	query := `
		SELECT 1 FROM conversation_participants
		WHERE conversation_id = ? AND user_id = ?
	`
	var exists int
	err := s.db.QueryRowContext(ctx, query, conversationID, userID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query participant: %w", err)
	}

	return true, nil
}

// ListParticipants lists user IDs of a conversation.
func (s *SQLiteStore) ListParticipants(ctx context.Context, conversationID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = ?
		ORDER BY user_id
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ==== MessageStore implementation ====

// CreateMessage persists a message inside one transaction. The timestamp is clamped
// to the newest one already stored for the conversation so ordering by time matches ordering by ID.
func (s *SQLiteStore) CreateMessage(ctx context.Context, conversationID, senderID int64, content string) (*store.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createdAt := s.now().UTC()

	var last time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT created_at FROM messages
		WHERE conversation_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, conversationID).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("query last message: %w", err)
	case createdAt.Before(last):
		createdAt = last.UTC()
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, content, created_at)
		VALUES (?, ?, ?, ?)
	`, conversationID, senderID, content, createdAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("conversation %d or sender %d: %w", conversationID, senderID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &store.Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      createdAt,
	}, nil
}

// ListMessages retrieves messages of a conversation with pagination.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID int64, limit int, beforeID *int64) ([]*store.Message, error) {
	var query string
	var args []interface{}

	if beforeID != nil {
		query = `
			SELECT id, conversation_id, sender_id, content, created_at
			FROM messages
			WHERE conversation_id = ? AND id < ?
			ORDER BY id DESC
			LIMIT ?
		`
		args = []interface{}{conversationID, *beforeID, limit}
	} else {
		query = `
			SELECT id, conversation_id, sender_id, content, created_at
			FROM messages
			WHERE conversation_id = ?
			ORDER BY id DESC
			LIMIT ?
		`
		args = []interface{}{conversationID, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	// Reverse to get chronological order
	for i := range len(messages) / 2 {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}

	return messages, rows.Err()
}
