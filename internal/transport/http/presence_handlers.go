package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-live/internal/core"
	"github.com/vovakirdan/wirechat-live/internal/proto"
)

// PresenceHandlers exposes who is online in a conversation.
type PresenceHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewPresenceHandlers creates presence handlers.
func NewPresenceHandlers(hub *core.Hub, logger *zerolog.Logger) *PresenceHandlers {
	return &PresenceHandlers{hub: hub, log: logger}
}

// OnlineResponse lists the users connected to a conversation.
type OnlineResponse struct {
	ConversationID int64        `json:"conversation_id"`
	OnlineUsers    []proto.User `json:"online_users"`
}

// Online handles GET /api/conversations/:conversation_id/online
func (h *PresenceHandlers) Online(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid conversation id"})
		return
	}
	userID := c.GetInt64(ContextKeyUserID)

	users, err := h.hub.OnlineUsers(c.Request.Context(), conversationID, userID)
	switch {
	case errors.Is(err, core.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "conversation not found"})
		return
	case errors.Is(err, core.ErrNotParticipant):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a participant"})
		return
	case err != nil:
		h.log.Error().Err(err).Int64("conversation_id", conversationID).Msg("failed to list online users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Debug().
		Int64("conversation_id", conversationID).
		Int64("user_id", userID).
		Str("username", c.GetString(ContextKeyUsername)).
		Int("online", len(users)).
		Msg("online users listed")

	resp := OnlineResponse{ConversationID: conversationID, OnlineUsers: make([]proto.User, 0, len(users))}
	for _, u := range users {
		resp.OnlineUsers = append(resp.OnlineUsers, protoUser(u))
	}
	c.JSON(http.StatusOK, resp)
}
