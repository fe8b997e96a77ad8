package core

import (
	"context"
	"fmt"

	"github.com/vovakirdan/wirechat-live/internal/store"
)

// Gateway persists chat messages before they are broadcast.
// Create either records the whole message with its id and timestamp or nothing.
type Gateway interface {
	Create(ctx context.Context, conversationID, senderID int64, content string) (*store.Message, error)
}

// StoreGateway writes messages through a store.MessageStore.
type StoreGateway struct {
	messages store.MessageStore
}

// NewStoreGateway wraps messages.
func NewStoreGateway(messages store.MessageStore) *StoreGateway {
	return &StoreGateway{messages: messages}
}

func (g *StoreGateway) Create(ctx context.Context, conversationID, senderID int64, content string) (*store.Message, error) {
	msg, err := g.messages.CreateMessage(ctx, conversationID, senderID, content)
	if err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}
	return msg, nil
}
