// Package postgres implements store.Store on PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vovakirdan/wirechat-live/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS conversations (
	id         BIGSERIAL PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS conversation_participants (
	conversation_id BIGINT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	user_id         BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	PRIMARY KEY (conversation_id, user_id)
);

CREATE TABLE IF NOT EXISTS messages (
	id              BIGSERIAL PRIMARY KEY,
	conversation_id BIGINT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	sender_id       BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	content         TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id);
CREATE INDEX IF NOT EXISTS idx_participants_user ON conversation_participants(user_id);
`

// Store implements store.Store for PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database described by dsn.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	var user store.User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, password_hash, created_at
	`, username, passwordHash).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("insert user %q: %w", username, store.ErrConflict)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`, username)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*store.User, error) {
	var user store.User
	err := s.pool.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

func (s *Store) CreateConversation(ctx context.Context, participantIDs ...int64) (*store.Conversation, error) {
	var conv store.Conversation
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO conversations DEFAULT VALUES
			RETURNING id, created_at
		`).Scan(&conv.ID, &conv.CreatedAt); err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
		for _, userID := range participantIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO conversation_participants (conversation_id, user_id)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, conv.ID, userID); err != nil {
				return fmt.Errorf("insert participant %d: %w", userID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *Store) GetConversationByID(ctx context.Context, id int64) (*store.Conversation, error) {
	var conv store.Conversation
	err := s.pool.QueryRow(ctx, `SELECT id, created_at FROM conversations WHERE id = $1`, id).
		Scan(&conv.ID, &conv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("conversation: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	return &conv, nil
}

func (s *Store) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = $1 AND user_id = $2
		)
	`, conversationID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query participant: %w", err)
	}
	return exists, nil
}

func (s *Store) ListParticipants(ctx context.Context, conversationID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id FROM conversation_participants
		WHERE conversation_id = $1
		ORDER BY user_id
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan participants: %w", err)
	}
	return ids, nil
}

// CreateMessage locks the conversation row so concurrent writers of one conversation
// serialize and timestamps never go backwards.
func (s *Store) CreateMessage(ctx context.Context, conversationID, senderID int64, content string) (*store.Message, error) {
	msg := store.Message{ConversationID: conversationID, SenderID: senderID, Content: content}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var locked int64
		if err := tx.QueryRow(ctx, `SELECT id FROM conversations WHERE id = $1 FOR UPDATE`, conversationID).
			Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("conversation: %w", store.ErrNotFound)
			}
			return fmt.Errorf("lock conversation: %w", err)
		}

		return tx.QueryRow(ctx, `
			INSERT INTO messages (conversation_id, sender_id, content, created_at)
			VALUES ($1, $2, $3, GREATEST(
				clock_timestamp(),
				COALESCE((SELECT max(created_at) FROM messages WHERE conversation_id = $1), '-infinity')
			))
			RETURNING id, created_at
		`, conversationID, senderID, content).Scan(&msg.ID, &msg.CreatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	return &msg, nil
}

func (s *Store) ListMessages(ctx context.Context, conversationID int64, limit int, beforeID *int64) ([]*store.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, sender_id, content, created_at
		FROM (
			SELECT id, conversation_id, sender_id, content, created_at
			FROM messages
			WHERE conversation_id = $1 AND ($2::BIGINT IS NULL OR id < $2)
			ORDER BY id DESC
			LIMIT $3
		) page
		ORDER BY id ASC
	`, conversationID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*store.Message, error) {
		var msg store.Message
		var createdAt time.Time
		if err := row.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &createdAt); err != nil {
			return nil, err
		}
		msg.CreatedAt = createdAt.UTC()
		return &msg, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}
	return messages, nil
}

func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
