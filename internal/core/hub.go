package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-live/internal/auth"
	"github.com/vovakirdan/wirechat-live/internal/store"
)

// Verifier turns a connection token into an identity.
type Verifier interface {
	Verify(token string) (auth.Identity, error)
}

// HubConfig carries the collaborators of a Hub.
type HubConfig struct {
	Verifier Verifier
	Resolver Resolver
	Gateway  Gateway
	Registry *Registry
	Router   *Router
	Presence PresenceTracker
	Relay    Relay
	// SendBuffer is the outbox capacity of each session.
	SendBuffer int
	Logger     *zerolog.Logger
}

// Hub drives connection sessions: it authenticates them, places them in rooms,
// handles their frames and cleans up when they go away.
type Hub struct {
	verifier   Verifier
	resolver   Resolver
	gateway    Gateway
	registry   *Registry
	router     *Router
	presence   PresenceTracker
	relay      Relay
	sendBuffer int
	log        *zerolog.Logger

	live    sync.WaitGroup
	stopped atomic.Bool
}

// NewHub creates a hub. Registry, Router and Presence get in-memory defaults when nil.
func NewHub(cfg HubConfig) *Hub {
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	registry := cfg.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	router := cfg.Router
	if router == nil {
		router = NewRouter(registry, cfg.Relay, logger)
	}
	presence := cfg.Presence
	if presence == nil {
		presence = NewMemoryPresence()
	}
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		verifier:   cfg.Verifier,
		resolver:   cfg.Resolver,
		gateway:    cfg.Gateway,
		registry:   registry,
		router:     router,
		presence:   presence,
		relay:      cfg.Relay,
		sendBuffer: buffer,
		log:        logger,
	}
}

// Registry exposes the room registry.
func (h *Hub) Registry() *Registry { return h.registry }

// NewSession allocates a session in the Connecting state.
// Every session it returns must eventually be passed to Disconnect.
func (h *Hub) NewSession() *Session {
	s := newSession(uuid.NewString(), h.sendBuffer)
	s.tracked = true
	h.live.Add(1)
	return s
}

// Connect authenticates s with token and joins it to the conversation's room.
// On error the session is Rejected and CloseCodeFor(err) gives the close code.
func (h *Hub) Connect(ctx context.Context, s *Session, token string, conversationID int64) error {
	if err := s.transition(StateConnecting, StateAuthenticating); err != nil {
		return err
	}

	logger := h.log.With().Str("session_id", s.ID()).Int64("conversation_id", conversationID).Logger()

	identity, err := h.verifier.Verify(token)
	if err != nil {
		s.reject()
		logger.Info().Err(err).Msg("connection rejected")
		return err
	}

	user, err := h.resolver.ResolveUser(ctx, identity.UserID)
	if err != nil {
		s.reject()
		if errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("%w: %v", auth.ErrInvalidCredential, err)
		}
		logger.Info().Err(err).Int64("user_id", identity.UserID).Msg("connection rejected")
		return err
	}

	conv, err := h.resolver.ResolveConversation(ctx, conversationID)
	if err != nil {
		s.reject()
		if errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("%w: %v", ErrConversationNotFound, err)
		}
		logger.Info().Err(err).Int64("user_id", user.ID).Msg("connection rejected")
		return err
	}

	ok, err := h.resolver.IsParticipant(ctx, conv.ID, user.ID)
	if err == nil && !ok {
		err = fmt.Errorf("%w: user %d in conversation %d", ErrNotParticipant, user.ID, conv.ID)
	}
	if err != nil {
		s.reject()
		logger.Info().Err(err).Int64("user_id", user.ID).Msg("connection rejected")
		return err
	}

	public := ProjectPublic(user)
	if err := s.bind(public, conv.ID); err != nil {
		return err
	}
	roomKey := s.RoomKey()
	h.registry.Join(roomKey, s)
	// Run may already have swept the registry.
	if h.stopped.Load() {
		s.Kick()
	}
	if err := h.presence.Add(ctx, roomKey, public.ID); err != nil {
		logger.Warn().Err(err).Msg("presence add failed")
	}

	logger.Info().Int64("user_id", public.ID).Str("room", roomKey).Msg("session joined")

	h.router.Send(ctx, roomKey, &Event{
		Kind:        EventPresence,
		Room:        roomKey,
		User:        public,
		Status:      StatusOnline,
		OnlineUsers: []PublicUser{public},
	})
	return nil
}

// HandleFrame processes one inbound command. Failures drop the command and
// never end the session.
func (h *Hub) HandleFrame(ctx context.Context, s *Session, cmd Command) {
	if s.State() != StateJoined {
		return
	}

	switch cmd.Kind {
	case CommandChatMessage:
		h.handleChatMessage(ctx, s, cmd)
	case CommandTyping:
		h.handleTyping(ctx, s, cmd)
	default:
		h.log.Debug().Str("session_id", s.ID()).Str("type", cmd.Type).Msg("ignoring unrecognized frame")
	}
}

func (h *Hub) handleChatMessage(ctx context.Context, s *Session, cmd Command) {
	self := s.User()
	logger := h.log.With().Str("session_id", s.ID()).Str("room", s.RoomKey()).Int64("user_id", self.ID).Logger()

	text, ok := cmd.Message.(string)
	if !ok || strings.TrimSpace(text) == "" {
		logger.Warn().Msg("chat message without text dropped")
		return
	}

	senderID := self.ID
	if cmd.Sender != nil {
		id, err := parseSender(cmd.Sender)
		if err != nil {
			logger.Warn().Err(err).Msg("chat message with bad sender dropped")
			return
		}
		if id != self.ID {
			logger.Warn().Int64("claimed_sender", id).Msg("chat message sender mismatch dropped")
			return
		}
		senderID = id
	}

	sender, err := h.resolver.ResolveUser(ctx, senderID)
	if err != nil {
		logger.Warn().Err(err).Msg("chat message sender not resolved")
		return
	}
	conv, err := h.resolver.ResolveConversation(ctx, s.ConversationID())
	if err != nil {
		logger.Warn().Err(err).Msg("chat message conversation not resolved")
		return
	}

	msg, err := h.gateway.Create(ctx, conv.ID, sender.ID, text)
	if err != nil {
		logger.Warn().Err(err).Msg("chat message not persisted")
		return
	}

	h.router.Send(ctx, s.RoomKey(), &Event{
		Kind:      EventChatMessage,
		Room:      s.RoomKey(),
		User:      ProjectPublic(sender),
		Message:   msg.Content,
		MessageID: msg.ID,
		Timestamp: msg.CreatedAt.UTC(),
	})
}

func (h *Hub) handleTyping(ctx context.Context, s *Session, cmd Command) {
	self := s.User()

	if cmd.Receiver == nil {
		h.log.Debug().Str("session_id", s.ID()).Msg("typing without receiver dropped")
		return
	}
	receiver, err := ParseIdentity(cmd.Receiver)
	if err != nil {
		h.log.Warn().Err(err).Str("session_id", s.ID()).Msg("typing with bad receiver dropped")
		return
	}
	if receiver == self.ID {
		return
	}

	isTyping := true
	if cmd.IsTyping != nil {
		isTyping = *cmd.IsTyping
	}

	h.router.Send(ctx, s.RoomKey(), &Event{
		Kind:     EventTyping,
		Room:     s.RoomKey(),
		User:     self,
		Receiver: receiver,
		IsTyping: isTyping,
	})
}

// Disconnect closes s. For a joined session it announces the user offline and
// leaves the room. Calling it again is a no-op.
func (h *Hub) Disconnect(ctx context.Context, s *Session) {
	prev, first := s.finish()
	if !first {
		return
	}
	if s.tracked {
		defer h.live.Done()
	}
	if prev != StateJoined {
		return
	}

	// Cleanup must finish even when the connection context is already canceled.
	ctx = context.WithoutCancel(ctx)
	user := s.User()
	roomKey := s.RoomKey()

	h.router.Send(ctx, roomKey, &Event{
		Kind:        EventPresence,
		Room:        roomKey,
		User:        user,
		Status:      StatusOffline,
		OnlineUsers: []PublicUser{user},
	})
	h.registry.Leave(roomKey, s)
	if err := h.presence.Remove(ctx, roomKey, user.ID); err != nil {
		h.log.Warn().Err(err).Str("session_id", s.ID()).Msg("presence remove failed")
	}

	h.log.Info().
		Str("session_id", s.ID()).
		Str("room", roomKey).
		Int64("user_id", user.ID).
		Int64("dropped_events", s.Dropped()).
		Msg("session closed")
}

// Drain waits until every session from NewSession has been disconnected or ctx is done.
func (h *Hub) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.live.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnlineUsers lists the users online in a conversation. requesterID must take part in it.
func (h *Hub) OnlineUsers(ctx context.Context, conversationID, requesterID int64) ([]PublicUser, error) {
	conv, err := h.resolver.ResolveConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrConversationNotFound, err)
		}
		return nil, err
	}
	ok, err := h.resolver.IsParticipant(ctx, conv.ID, requesterID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotParticipant
	}

	ids, err := h.presence.Online(ctx, RoomKey(conv.ID))
	if err != nil {
		return nil, fmt.Errorf("presence: %w", err)
	}
	users := make([]PublicUser, 0, len(ids))
	for _, id := range ids {
		user, err := h.resolver.ResolveUser(ctx, id)
		if err != nil {
			h.log.Warn().Err(err).Int64("user_id", id).Msg("online user not resolved")
			continue
		}
		users = append(users, ProjectPublic(user))
	}
	return users, nil
}

// Run consumes relayed events until ctx is done, then kicks every session so
// each connection runs its own cleanup. A failing relay ends Run early with its error.
func (h *Hub) Run(ctx context.Context) error {
	var err error
	if h.relay != nil {
		err = h.relay.Subscribe(ctx, func(roomKey string, ev *Event) {
			h.router.Deliver(roomKey, ev)
		})
		if ctx.Err() != nil {
			err = nil
		}
	}
	if err == nil {
		<-ctx.Done()
	} else {
		h.log.Error().Err(err).Msg("relay subscription ended")
	}

	h.stopped.Store(true)
	kicked := 0
	h.registry.Range(func(s *Session) bool {
		s.Kick()
		kicked++
		return true
	})
	h.log.Info().Int("sessions", kicked).Msg("hub stopped")
	return err
}
