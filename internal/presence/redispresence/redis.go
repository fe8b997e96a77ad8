// Package redispresence keeps per-room presence counters in Redis so every
// server node sees the same online users.
package redispresence

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Decrements a user's session count and drops the field at zero, atomically.
// KEYS[1] = room hash, ARGV[1] = user id
var luaRemove = redis.NewScript(`
local n = redis.call("HINCRBY", KEYS[1], ARGV[1], -1)
if n <= 0 then
  redis.call("HDEL", KEYS[1], ARGV[1])
end
return n
`)

// Tracker implements core.PresenceTracker with one hash per room:
// field = user id, value = number of live sessions.
type Tracker struct {
	client redis.UniversalClient
	prefix string
}

// New wraps an existing client. Keys are "<prefix>:<room key>".
func New(client redis.UniversalClient, prefix string) *Tracker {
	return &Tracker{client: client, prefix: prefix}
}

// Dial connects to a single Redis node and pings it.
func Dial(ctx context.Context, addr, password string, db int, prefix string) (*Tracker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return New(client, prefix), nil
}

func (t *Tracker) key(roomKey string) string {
	return t.prefix + ":" + roomKey
}

func (t *Tracker) Add(ctx context.Context, roomKey string, userID int64) error {
	if err := t.client.HIncrBy(ctx, t.key(roomKey), strconv.FormatInt(userID, 10), 1).Err(); err != nil {
		return fmt.Errorf("presence add: %w", err)
	}
	return nil
}

func (t *Tracker) Remove(ctx context.Context, roomKey string, userID int64) error {
	if err := luaRemove.Run(ctx, t.client, []string{t.key(roomKey)}, strconv.FormatInt(userID, 10)).Err(); err != nil {
		return fmt.Errorf("presence remove: %w", err)
	}
	return nil
}

// Online returns the ids of online users in ascending order.
func (t *Tracker) Online(ctx context.Context, roomKey string) ([]int64, error) {
	fields, err := t.client.HGetAll(ctx, t.key(roomKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("presence online: %w", err)
	}
	ids := make([]int64, 0, len(fields))
	for field, count := range fields {
		n, err := strconv.ParseInt(count, 10, 64)
		if err != nil || n <= 0 {
			continue
		}
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Close closes the underlying client.
func (t *Tracker) Close() error {
	return t.client.Close()
}
