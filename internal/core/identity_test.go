package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/vovakirdan/wirechat-live/internal/store"
)

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int64
		wantErr bool
	}{
		{name: "float", in: float64(7), want: 7},
		{name: "float truncated", in: 7.9, want: 7},
		{name: "negative float truncated", in: -7.9, want: -7},
		{name: "int", in: 3, want: 3},
		{name: "int64", in: int64(1 << 40), want: 1 << 40},
		{name: "json number", in: json.Number("9007199254740993"), want: 9007199254740993},
		{name: "json number fraction", in: json.Number("4.5"), want: 4},
		{name: "string", in: "42", want: 42},
		{name: "padded string", in: " 42\n", want: 42},
		{name: "signed string", in: "+5", want: 5},
		{name: "word", in: "alice", wantErr: true},
		{name: "decimal string", in: "4.2", wantErr: true},
		{name: "empty string", in: "", wantErr: true},
		{name: "bool", in: true, wantErr: true},
		{name: "nil", in: nil, wantErr: true},
		{name: "object", in: map[string]any{"id": 1}, wantErr: true},
		{name: "array", in: []any{float64(1)}, wantErr: true},
		{name: "nan", in: math.NaN(), wantErr: true},
		{name: "huge", in: 1e30, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentity(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidIdentity) {
					t.Fatalf("expected ErrInvalidIdentity, got %d, %v", got, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseIdentity(%v) = %d, %v; want %d", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestProjectPublicHidesPassword(t *testing.T) {
	u := &store.User{ID: 5, Username: "eve", PasswordHash: "hash"}

	got := ProjectPublic(u)
	if got != (PublicUser{ID: 5, Username: "eve"}) {
		t.Fatalf("unexpected projection %+v", got)
	}
	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"id":5,"username":"eve"}` {
		t.Fatalf("unexpected json %s", raw)
	}
	if ProjectPublic(nil) != (PublicUser{}) {
		t.Fatalf("nil user should project to zero value")
	}
}

func TestCloseCodesAreDistinct(t *testing.T) {
	seen := map[int]string{}
	for _, err := range []error{
		ErrNotParticipant, ErrConversationNotFound, errors.New("boom"),
	} {
		code, reason := CloseCodeFor(err)
		if prev, dup := seen[code]; dup {
			t.Fatalf("code %d used by %s and %s", code, prev, reason)
		}
		seen[code] = reason
	}
	if RoomKey(42) != "chat_42" {
		t.Fatalf("unexpected room key %q", RoomKey(42))
	}
}
