package core

import (
	"context"
	"fmt"

	"github.com/vovakirdan/wirechat-live/internal/store"
)

// Resolver looks up the users and conversations a session refers to.
type Resolver interface {
	ResolveUser(ctx context.Context, userID int64) (*store.User, error)
	ResolveConversation(ctx context.Context, conversationID int64) (*store.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
}

type resolverStore interface {
	store.UserStore
	store.ConversationStore
}

// StoreResolver resolves identities against the durable store.
type StoreResolver struct {
	store resolverStore
}

// NewStoreResolver wraps st.
func NewStoreResolver(st resolverStore) *StoreResolver {
	return &StoreResolver{store: st}
}

func (r *StoreResolver) ResolveUser(ctx context.Context, userID int64) (*store.User, error) {
	user, err := r.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve user %d: %w", userID, err)
	}
	return user, nil
}

func (r *StoreResolver) ResolveConversation(ctx context.Context, conversationID int64) (*store.Conversation, error) {
	conv, err := r.store.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation %d: %w", conversationID, err)
	}
	return conv, nil
}

func (r *StoreResolver) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	return r.store.IsParticipant(ctx, conversationID, userID)
}
