package proto

import "encoding/json"

const (
	TypeChatMessage  = "chat_message"
	TypeTyping       = "typing"
	TypeOnlineStatus = "online_status"
)

// Inbound is a frame sent by the client. Value fields stay raw so the mapper
// can decode them with json.Number and keep large ids exact.
type Inbound struct {
	Type     string          `json:"type"`
	Message  json.RawMessage `json:"message,omitempty"`
	User     json.RawMessage `json:"user,omitempty"`
	Receiver json.RawMessage `json:"receiver,omitempty"`
	IsTyping json.RawMessage `json:"is_typing,omitempty"`
}

// User is the public projection of a user.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// ChatMessage is broadcast after a message has been stored.
type ChatMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	User      User   `json:"user"`
	Timestamp string `json:"timestamp"`
}

// Typing tells the room that User is typing to Receiver.
type Typing struct {
	Type     string `json:"type"`
	User     User   `json:"user"`
	Receiver int64  `json:"receiver"`
	IsTyping bool   `json:"is_typing"`
}

// OnlineStatus announces users going online or offline.
type OnlineStatus struct {
	Type        string `json:"type"`
	OnlineUsers []User `json:"online_users"`
	Status      string `json:"status"`
}
