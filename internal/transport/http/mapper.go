package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vovakirdan/wirechat-live/internal/core"
	"github.com/vovakirdan/wirechat-live/internal/proto"
)

// commandFromFrame decodes one text frame. Unknown types become CommandUnrecognized.
func commandFromFrame(data []byte) (core.Command, error) {
	var inbound proto.Inbound
	if err := json.Unmarshal(data, &inbound); err != nil {
		return core.Command{}, fmt.Errorf("decode frame: %w", err)
	}

	cmd := core.Command{Kind: core.CommandUnrecognized, Type: inbound.Type}
	var err error
	switch inbound.Type {
	case proto.TypeChatMessage:
		cmd.Kind = core.CommandChatMessage
		if cmd.Message, err = decodeValue(inbound.Message); err != nil {
			return core.Command{}, err
		}
		if cmd.Sender, err = decodeValue(inbound.User); err != nil {
			return core.Command{}, err
		}
	case proto.TypeTyping:
		cmd.Kind = core.CommandTyping
		if cmd.Receiver, err = decodeValue(inbound.Receiver); err != nil {
			return core.Command{}, err
		}
		if len(inbound.IsTyping) > 0 {
			var isTyping bool
			if json.Unmarshal(inbound.IsTyping, &isTyping) == nil {
				cmd.IsTyping = &isTyping
			}
		}
	}
	return cmd, nil
}

// decodeValue keeps numbers as json.Number so large ids survive decoding.
func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

func outboundFromEvent(event *core.Event) any {
	switch event.Kind {
	case core.EventChatMessage:
		return proto.ChatMessage{
			Type:      proto.TypeChatMessage,
			Message:   event.Message,
			User:      protoUser(event.User),
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		}
	case core.EventTyping:
		return proto.Typing{
			Type:     proto.TypeTyping,
			User:     protoUser(event.User),
			Receiver: event.Receiver,
			IsTyping: event.IsTyping,
		}
	case core.EventPresence:
		users := make([]proto.User, 0, len(event.OnlineUsers))
		for _, u := range event.OnlineUsers {
			users = append(users, protoUser(u))
		}
		return proto.OnlineStatus{
			Type:        proto.TypeOnlineStatus,
			OnlineUsers: users,
			Status:      string(event.Status),
		}
	default:
		return nil
	}
}

func protoUser(u core.PublicUser) proto.User {
	return proto.User{ID: u.ID, Username: u.Username}
}
