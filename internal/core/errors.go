package core

import (
	"errors"

	"github.com/vovakirdan/wirechat-live/internal/auth"
)

// Close codes sent when a connection is rejected during setup.
const (
	CloseExpiredToken         = 4000
	CloseInvalidToken         = 4001
	CloseNoToken              = 4002
	CloseNotParticipant       = 4003
	CloseConversationNotFound = 4004
	// CloseInternalError mirrors the WebSocket "internal error" status.
	CloseInternalError = 1011
)

var (
	ErrNotParticipant       = errors.New("not a participant")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSessionState         = errors.New("session in wrong state")
)

// CloseCodeFor maps a setup failure to its close code and reason.
func CloseCodeFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		return CloseNoToken, "NO_TOKEN"
	case errors.Is(err, auth.ErrExpiredCredential):
		return CloseExpiredToken, "EXPIRED_TOKEN"
	case errors.Is(err, auth.ErrInvalidCredential):
		return CloseInvalidToken, "INVALID_TOKEN"
	case errors.Is(err, ErrNotParticipant):
		return CloseNotParticipant, "NOT_PARTICIPANT"
	case errors.Is(err, ErrConversationNotFound):
		return CloseConversationNotFound, "CONVERSATION_NOT_FOUND"
	default:
		return CloseInternalError, "internal error"
	}
}
