package http

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-live/internal/core"
)

func TestCommandFromFrame(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		check func(t *testing.T, cmd core.Command)
	}{
		{
			name:  "chat message",
			frame: `{"type":"chat_message","message":"hi","user":9007199254740993}`,
			check: func(t *testing.T, cmd core.Command) {
				if cmd.Kind != core.CommandChatMessage || cmd.Message != "hi" {
					t.Fatalf("unexpected command %+v", cmd)
				}
				if id, err := core.ParseIdentity(cmd.Sender); err != nil || id != 9007199254740993 {
					t.Fatalf("sender lost precision: %d, %v", id, err)
				}
			},
		},
		{
			name:  "typing defaults",
			frame: `{"type":"typing","receiver":"5"}`,
			check: func(t *testing.T, cmd core.Command) {
				if cmd.Kind != core.CommandTyping || cmd.Receiver != "5" || cmd.IsTyping != nil {
					t.Fatalf("unexpected command %+v", cmd)
				}
			},
		},
		{
			name:  "typing flag",
			frame: `{"type":"typing","receiver":5,"is_typing":false}`,
			check: func(t *testing.T, cmd core.Command) {
				if cmd.IsTyping == nil || *cmd.IsTyping {
					t.Fatalf("expected is_typing=false, got %+v", cmd)
				}
				if cmd.Receiver != json.Number("5") {
					t.Fatalf("unexpected receiver %#v", cmd.Receiver)
				}
			},
		},
		{
			name:  "unknown type",
			frame: `{"type":"call","message":"x"}`,
			check: func(t *testing.T, cmd core.Command) {
				if cmd.Kind != core.CommandUnrecognized || cmd.Type != "call" {
					t.Fatalf("unexpected command %+v", cmd)
				}
			},
		},
		{
			name:  "missing type",
			frame: `{}`,
			check: func(t *testing.T, cmd core.Command) {
				if cmd.Kind != core.CommandUnrecognized {
					t.Fatalf("unexpected command %+v", cmd)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := commandFromFrame([]byte(tt.frame))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			tt.check(t, cmd)
		})
	}

	if _, err := commandFromFrame([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected error for malformed frame")
	}
}

func TestOutboundFromEvent(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 123000000, time.FixedZone("X", 3600))
	alice := core.PublicUser{ID: 1, Username: "alice"}

	tests := []struct {
		name string
		ev   *core.Event
		want string
	}{
		{
			name: "chat",
			ev:   &core.Event{Kind: core.EventChatMessage, User: alice, Message: "hi", Timestamp: ts},
			want: `{"type":"chat_message","message":"hi","user":{"id":1,"username":"alice"},"timestamp":"2024-05-01T11:00:00.123Z"}`,
		},
		{
			name: "typing",
			ev:   &core.Event{Kind: core.EventTyping, User: alice, Receiver: 2, IsTyping: true},
			want: `{"type":"typing","user":{"id":1,"username":"alice"},"receiver":2,"is_typing":true}`,
		},
		{
			name: "presence",
			ev:   &core.Event{Kind: core.EventPresence, User: alice, Status: core.StatusOffline, OnlineUsers: []core.PublicUser{alice}},
			want: `{"type":"online_status","online_users":[{"id":1,"username":"alice"}],"status":"offline"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(outboundFromEvent(tt.ev))
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(raw) != tt.want {
				t.Fatalf("got %s\nwant %s", raw, tt.want)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	var unlimited *rateLimiter
	if !unlimited.allow() {
		t.Fatalf("nil limiter must allow")
	}
	if newRateLimiter(0, 10) != nil {
		t.Fatalf("zero rate should disable limiting")
	}

	rl := newRateLimiter(1, 2)
	if !rl.allow() || !rl.allow() {
		t.Fatalf("burst should be allowed")
	}
	if rl.allow() {
		t.Fatalf("third frame should be limited")
	}
}
