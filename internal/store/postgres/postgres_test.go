package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-live/internal/store"
)

// setupTestStore connects to WIRECHAT_TEST_POSTGRES_DSN; without it the test is skipped.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("WIRECHAT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("WIRECHAT_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	s, err := New(ctx, dsn)
	if err != nil {
		t.Skipf("Skipping test: database not available: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestStoreConversationFlow(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	suffix := time.Now().UnixNano()
	alice, err := s.CreateUser(ctx, fmt.Sprintf("alice-%d", suffix), "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.CreateUser(ctx, alice.Username, "hash"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	bob, err := s.CreateUser(ctx, fmt.Sprintf("bob-%d", suffix), "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	conv, err := s.CreateConversation(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	ok, err := s.IsParticipant(ctx, conv.ID, bob.ID)
	if err != nil || !ok {
		t.Fatalf("expected bob to participate: %v %v", ok, err)
	}

	first, err := s.CreateMessage(ctx, conv.ID, alice.ID, "hello")
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	second, err := s.CreateMessage(ctx, conv.ID, bob.ID, "hi")
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	if second.CreatedAt.Before(first.CreatedAt) {
		t.Fatalf("timestamps went backwards: %v then %v", first.CreatedAt, second.CreatedAt)
	}

	listed, err := s.ListMessages(ctx, conv.ID, 10, nil)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != first.ID || listed[1].ID != second.ID {
		t.Fatalf("unexpected messages: %+v", listed)
	}

	if _, err := s.CreateMessage(ctx, conv.ID+1_000_000, alice.ID, "lost"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
