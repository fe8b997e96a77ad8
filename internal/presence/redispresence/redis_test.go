package redispresence

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-live/internal/core"
)

var _ core.PresenceTracker = (*Tracker)(nil)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()

	addr := os.Getenv("WIRECHAT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("WIRECHAT_TEST_REDIS_ADDR not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	prefix := fmt.Sprintf("wirechat-test:%d", time.Now().UnixNano())
	tr, err := Dial(ctx, addr, os.Getenv("WIRECHAT_TEST_REDIS_PASSWORD"), 0, prefix)
	if err != nil {
		t.Skipf("Skipping test: redis not available: %v", err)
	}
	t.Cleanup(func() {
		_ = tr.client.Del(context.Background(), tr.key("chat_1")).Err()
		_ = tr.Close()
	})
	return tr
}

func TestTrackerCountsSessions(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	for _, id := range []int64{2, 1, 1} {
		if err := tr.Add(ctx, "chat_1", id); err != nil {
			t.Fatalf("add %d: %v", id, err)
		}
	}

	ids, err := tr.Online(ctx, "chat_1")
	if err != nil {
		t.Fatalf("online: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("unexpected online ids %v", ids)
	}

	if err := tr.Remove(ctx, "chat_1", 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ids, _ := tr.Online(ctx, "chat_1"); len(ids) != 2 {
		t.Fatalf("user with a remaining session went offline: %v", ids)
	}

	_ = tr.Remove(ctx, "chat_1", 1)
	_ = tr.Remove(ctx, "chat_1", 1)
	ids, _ = tr.Online(ctx, "chat_1")
	if len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("unexpected online ids %v", ids)
	}
}
