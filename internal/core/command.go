package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandUnrecognized is any frame whose type the core does not handle. It is a no-op.
	CommandUnrecognized CommandKind = iota
	// CommandChatMessage persists and broadcasts a chat message.
	CommandChatMessage
	// CommandTyping relays a typing indicator to the room.
	CommandTyping
)

// Command is an inbound frame decoded once at the transport boundary.
// Identity fields keep the raw decoded JSON value; the hub validates them.
type Command struct {
	Kind     CommandKind
	Type     string // original type tag, kept for diagnostics
	Message  any
	Sender   any
	Receiver any
	IsTyping *bool
}
