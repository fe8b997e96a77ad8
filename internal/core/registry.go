package core

import "github.com/puzpuzpuz/xsync/v3"

// Registry maps room keys to their live sessions. It is created once per process
// and shared by every connection. Join and Leave on one key run under that key's
// map bucket lock, so a room is never reclaimed while a join is adding to it.
type Registry struct {
	rooms *xsync.MapOf[string, *Room]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: xsync.NewMapOf[string, *Room]()}
}

// Join adds s to the room. Joining twice is a no-op; the result reports whether s was added.
func (r *Registry) Join(key string, s *Session) bool {
	added := false
	r.rooms.Compute(key, func(room *Room, loaded bool) (*Room, bool) {
		if !loaded {
			room = NewRoom(key)
		}
		added = room.add(s)
		return room, false
	})
	return added
}

// Leave removes s from the room and reclaims the room once it is empty.
func (r *Registry) Leave(key string, s *Session) bool {
	removed := false
	r.rooms.Compute(key, func(room *Room, loaded bool) (*Room, bool) {
		if !loaded {
			return nil, true
		}
		removed = room.remove(s)
		return room, room.Empty()
	})
	return removed
}

// Members returns a point-in-time snapshot of the room.
func (r *Registry) Members(key string) []*Session {
	room, ok := r.rooms.Load(key)
	if !ok {
		return nil
	}
	return room.snapshot()
}

// Rooms reports how many rooms have at least one member.
func (r *Registry) Rooms() int {
	return r.rooms.Size()
}

// Range calls fn for every joined session until fn returns false.
func (r *Registry) Range(fn func(*Session) bool) {
	r.rooms.Range(func(_ string, room *Room) bool {
		for _, s := range room.snapshot() {
			if !fn(s) {
				return false
			}
		}
		return true
	})
}
