package core

import "time"

// EventKind is a notification the core emits to room members.
type EventKind int

const (
	// EventChatMessage carries a persisted chat message.
	EventChatMessage EventKind = iota
	// EventTyping tells the room that a user is typing to a receiver.
	EventTyping
	// EventPresence announces a user going online or offline.
	EventPresence
)

func (k EventKind) String() string {
	switch k {
	case EventChatMessage:
		return "chat_message"
	case EventTyping:
		return "typing"
	case EventPresence:
		return "online_status"
	default:
		return "unknown"
	}
}

// PresenceStatus is the payload of a presence event.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// Event is routed to every session of a room. Only the fields of its Kind are set.
// Events are shared between recipients and must not be mutated after Send.
type Event struct {
	Kind EventKind  `json:"kind"`
	Room string     `json:"room"`
	User PublicUser `json:"user"`

	// EventChatMessage
	Message   string    `json:"message,omitempty"`
	MessageID int64     `json:"message_id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`

	// EventTyping
	Receiver int64 `json:"receiver,omitempty"`
	IsTyping bool  `json:"is_typing,omitempty"`

	// EventPresence
	Status      PresenceStatus `json:"status,omitempty"`
	OnlineUsers []PublicUser   `json:"online_users,omitempty"`
}
