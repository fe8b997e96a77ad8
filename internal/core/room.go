package core

import "sync"

// Room groups the sessions connected to one conversation.
type Room struct {
	Key string

	mu      sync.RWMutex
	members map[*Session]struct{}
}

// NewRoom constructs a room with no members.
func NewRoom(key string) *Room {
	return &Room{
		Key:     key,
		members: make(map[*Session]struct{}),
	}
}

// add inserts a session. Returns true if newly added.
func (r *Room) add(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.members[s]; exists {
		return false
	}
	r.members[s] = struct{}{}
	return true
}

// remove deletes a session. Returns true if removed.
func (r *Room) remove(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.members[s]; !exists {
		return false
	}
	delete(r.members, s)
	return true
}

func (r *Room) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.members))
	for s := range r.members {
		out = append(out, s)
	}
	return out
}

// Empty returns true if no sessions are in the room.
func (r *Room) Empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members) == 0
}
