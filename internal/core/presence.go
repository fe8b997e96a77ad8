package core

import (
	"context"
	"slices"
	"sync"
)

// PresenceTracker counts the live sessions of each user per room.
// A user stays online while at least one of their sessions is joined.
type PresenceTracker interface {
	Add(ctx context.Context, roomKey string, userID int64) error
	Remove(ctx context.Context, roomKey string, userID int64) error
	Online(ctx context.Context, roomKey string) ([]int64, error)
}

// MemoryPresence is a PresenceTracker for a single node.
type MemoryPresence struct {
	mu    sync.Mutex
	rooms map[string]map[int64]int
}

// NewMemoryPresence returns an empty tracker.
func NewMemoryPresence() *MemoryPresence {
	return &MemoryPresence{rooms: make(map[string]map[int64]int)}
}

func (p *MemoryPresence) Add(_ context.Context, roomKey string, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	users, ok := p.rooms[roomKey]
	if !ok {
		users = make(map[int64]int)
		p.rooms[roomKey] = users
	}
	users[userID]++
	return nil
}

func (p *MemoryPresence) Remove(_ context.Context, roomKey string, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	users, ok := p.rooms[roomKey]
	if !ok {
		return nil
	}
	if users[userID] <= 1 {
		delete(users, userID)
	} else {
		users[userID]--
	}
	if len(users) == 0 {
		delete(p.rooms, roomKey)
	}
	return nil
}

// Online returns the ids of online users in ascending order.
func (p *MemoryPresence) Online(_ context.Context, roomKey string) ([]int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int64, 0, len(p.rooms[roomKey]))
	for id := range p.rooms[roomKey] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
