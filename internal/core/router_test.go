package core

import (
	"context"
	"testing"

	"github.com/vovakirdan/wirechat-live/internal/log"
)

func TestRouterDeliversOnlyToRoomMembers(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg, nil, log.Nop())

	a := joinedSession(t, "a", 1, 1, 4)
	b := joinedSession(t, "b", 2, 1, 4)
	other := joinedSession(t, "other", 3, 2, 4)
	reg.Join("chat_1", a)
	reg.Join("chat_1", b)
	reg.Join("chat_2", other)

	n := router.Send(context.Background(), "chat_1", &Event{Kind: EventTyping, Receiver: 2})
	if n != 2 {
		t.Fatalf("expected 2 deliveries, got %d", n)
	}
	for _, s := range []*Session{a, b} {
		select {
		case ev := <-s.Events():
			if ev.Kind != EventTyping {
				t.Fatalf("unexpected event %+v", ev)
			}
		default:
			t.Fatalf("session %s got nothing", s.ID())
		}
	}
	select {
	case ev := <-other.Events():
		t.Fatalf("session in another room got %+v", ev)
	default:
	}
}

func TestRouterSlowMemberDoesNotBlockOthers(t *testing.T) {
	reg := NewRegistry()
	router := NewRouter(reg, nil, log.Nop())

	slow := joinedSession(t, "slow", 1, 1, 1)
	fast := joinedSession(t, "fast", 2, 1, 8)
	reg.Join("chat_1", slow)
	reg.Join("chat_1", fast)

	for i := range 5 {
		router.Send(context.Background(), "chat_1", &Event{Kind: EventChatMessage, MessageID: int64(i + 1)})
	}

	if slow.Dropped() != 4 {
		t.Fatalf("expected 4 dropped events for slow member, got %d", slow.Dropped())
	}
	// Per-session order follows send order.
	for want := int64(1); want <= 5; want++ {
		ev := <-fast.Events()
		if ev.MessageID != want {
			t.Fatalf("expected message %d, got %d", want, ev.MessageID)
		}
	}
	if ev := <-slow.Events(); ev.MessageID != 1 {
		t.Fatalf("slow member should keep the first event, got %d", ev.MessageID)
	}
}
