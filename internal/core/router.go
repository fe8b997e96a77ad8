package core

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Relay mirrors room events between server nodes.
type Relay interface {
	// Publish hands ev to the other nodes.
	Publish(ctx context.Context, roomKey string, ev *Event) error
	// Subscribe calls deliver for every event published by other nodes until ctx is done.
	Subscribe(ctx context.Context, deliver func(roomKey string, ev *Event)) error
}

// Router fans events out to the members of a room.
type Router struct {
	registry *Registry
	relay    Relay
	log      *zerolog.Logger
}

// NewRouter builds a router over registry. relay may be nil for a single node.
func NewRouter(registry *Registry, relay Relay, logger *zerolog.Logger) *Router {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Router{registry: registry, relay: relay, log: logger}
}

// Send delivers ev to every local member of the room, the sender included, and
// publishes it to the relay when one is configured. It returns the number of
// local sessions that accepted the event.
func (r *Router) Send(ctx context.Context, roomKey string, ev *Event) int {
	delivered := r.Deliver(roomKey, ev)
	if r.relay != nil {
		if err := r.relay.Publish(ctx, roomKey, ev); err != nil {
			r.log.Warn().Err(err).Str("room", roomKey).Stringer("event", ev.Kind).Msg("relay publish failed")
		}
	}
	return delivered
}

// Deliver is Send without the relay. Remote events enter through here.
func (r *Router) Deliver(roomKey string, ev *Event) int {
	delivered := 0
	for _, s := range r.registry.Members(roomKey) {
		err := s.Deliver(ev)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, ErrOutboxFull):
			r.log.Warn().Str("session_id", s.ID()).Str("room", roomKey).Stringer("event", ev.Kind).Msg("outbox full, event dropped")
		}
	}
	return delivered
}
