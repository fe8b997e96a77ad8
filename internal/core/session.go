package core

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrSessionClosed is returned by Deliver once the session has left its room.
	ErrSessionClosed = errors.New("session closed")
	// ErrOutboxFull is returned by Deliver when the session cannot keep up.
	ErrOutboxFull = errors.New("session outbox full")
)

// SessionState is a step of the connection lifecycle.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateAuthenticating
	StateJoined
	StateClosed
	// StateRejected is terminal and only reachable before the session joins a room.
	StateRejected
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is the server-side state of one live connection. The user and room are
// set once when the session joins and never change afterwards.
type Session struct {
	id      string
	tracked bool

	mu             sync.Mutex
	state          SessionState
	closed         bool
	user           PublicUser
	conversationID int64
	roomKey        string

	outbox   chan *Event
	done     chan struct{}
	kick     chan struct{}
	kickOnce sync.Once
	dropped  atomic.Int64
}

func newSession(id string, buffer int) *Session {
	if buffer <= 0 {
		buffer = 1
	}
	return &Session{
		id:     id,
		state:  StateConnecting,
		outbox: make(chan *Event, buffer),
		done:   make(chan struct{}),
		kick:   make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the public projection of the authenticated user; zero before join.
func (s *Session) User() PublicUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) ConversationID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

func (s *Session) RoomKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomKey
}

// Events is drained by the transport write loop.
func (s *Session) Events() <-chan *Event { return s.outbox }

// Done is closed once the session is disconnected.
func (s *Session) Done() <-chan struct{} { return s.done }

// Kicked is closed when the server asks the transport to close the connection.
func (s *Session) Kicked() <-chan struct{} { return s.kick }

// Kick asks the transport to close the connection. The transport then disconnects the session.
func (s *Session) Kick() {
	s.kickOnce.Do(func() { close(s.kick) })
}

// Dropped reports how many events were discarded because the outbox was full.
func (s *Session) Dropped() int64 { return s.dropped.Load() }

// Deliver enqueues ev without blocking.
func (s *Session) Deliver(ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateJoined {
		return ErrSessionClosed
	}
	select {
	case s.outbox <- ev:
		return nil
	default:
		s.dropped.Add(1)
		return ErrOutboxFull
	}
}

func (s *Session) transition(from, to SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return fmt.Errorf("%w: %s, want %s", ErrSessionState, s.state, from)
	}
	s.state = to
	return nil
}

func (s *Session) reject() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConnecting || s.state == StateAuthenticating {
		s.state = StateRejected
	}
}

func (s *Session) bind(user PublicUser, conversationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticating {
		return fmt.Errorf("%w: %s, want %s", ErrSessionState, s.state, StateAuthenticating)
	}
	s.user = user
	s.conversationID = conversationID
	s.roomKey = RoomKey(conversationID)
	s.state = StateJoined
	return nil
}

// finish marks the session closed. Only the first call reports first == true.
func (s *Session) finish() (prev SessionState, first bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.state, false
	}
	s.closed = true
	prev = s.state
	if prev != StateRejected {
		s.state = StateClosed
	}
	close(s.done)
	return prev, true
}
