package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vovakirdan/wirechat-live/internal/store"
)

// ErrInvalidIdentity is returned when a frame value cannot be read as a user id.
var ErrInvalidIdentity = errors.New("invalid identity")

// PublicUser is the part of a user record that is safe to broadcast.
type PublicUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// ProjectPublic strips a user record down to its public view.
func ProjectPublic(u *store.User) PublicUser {
	if u == nil {
		return PublicUser{}
	}
	return PublicUser{ID: u.ID, Username: u.Username}
}

// RoomKey derives the registry key of a conversation.
func RoomKey(conversationID int64) string {
	return "chat_" + strconv.FormatInt(conversationID, 10)
}

// ParseIdentity converts a decoded JSON value into a user id.
// Numbers are truncated toward zero and strings must hold a base-10 integer.
// Booleans, objects, arrays and null are rejected.
func ParseIdentity(v any) (int64, error) {
	switch id := v.(type) {
	case int64:
		return id, nil
	case int:
		return int64(id), nil
	case int32:
		return int64(id), nil
	case float64:
		return truncateFloat(id)
	case json.Number:
		if n, err := id.Int64(); err == nil {
			return n, nil
		}
		f, err := id.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidIdentity, id.String())
		}
		return truncateFloat(f)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidIdentity, id)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: unsupported %T", ErrInvalidIdentity, v)
	}
}

func truncateFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v out of range", ErrInvalidIdentity, f)
	}
	return int64(f), nil
}

// parseSender reads the sender of a chat message. Besides plain ids it accepts
// the {"id": ...} projection that clients receive in outbound frames.
func parseSender(v any) (int64, error) {
	if obj, ok := v.(map[string]any); ok {
		id, found := obj["id"]
		if !found {
			return 0, fmt.Errorf("%w: object without id", ErrInvalidIdentity)
		}
		return ParseIdentity(id)
	}
	return ParseIdentity(v)
}
