// Package natsrelay mirrors room events between server nodes over NATS core subjects.
package natsrelay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-live/internal/core"
)

// ErrClosed is returned by Subscribe when the NATS connection is closed for good.
var ErrClosed = errors.New("nats connection closed")

// Config describes the NATS connection.
type Config struct {
	URL           string
	Name          string
	SubjectPrefix string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

type envelope struct {
	Node  string      `json:"node"`
	Room  string      `json:"room"`
	Event *core.Event `json:"event"`
}

// Relay implements core.Relay. Each room maps to the subject "<prefix>.<room key>".
type Relay struct {
	nc     *nats.Conn
	prefix string
	node   string
	closed chan struct{}
	log    *zerolog.Logger
}

// Connect dials NATS.
func Connect(cfg Config, logger *zerolog.Logger) (*Relay, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url missing")
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "wirechat.rooms"
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}

	r := &Relay{
		prefix: strings.TrimSuffix(cfg.SubjectPrefix, "."),
		node:   uuid.NewString(),
		closed: make(chan struct{}),
		log:    logger,
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
		// Local members already got the event from the router.
		nats.NoEcho(),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			close(r.closed)
		}),
	}
	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	r.nc = nc
	return r, nil
}

// Node identifies this server in published envelopes.
func (r *Relay) Node() string { return r.node }

func (r *Relay) subject(roomKey string) string {
	return r.prefix + "." + roomKey
}

func (r *Relay) Publish(_ context.Context, roomKey string, ev *core.Event) error {
	data, err := json.Marshal(envelope{Node: r.node, Room: roomKey, Event: ev})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := r.nc.Publish(r.subject(roomKey), data); err != nil {
		return fmt.Errorf("publish %s: %w", roomKey, err)
	}
	return nil
}

// Subscribe delivers events from other nodes until ctx is done or the connection closes.
func (r *Relay) Subscribe(ctx context.Context, deliver func(roomKey string, ev *core.Event)) error {
	sub, err := r.nc.Subscribe(r.prefix+".>", func(msg *nats.Msg) {
		var env envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			r.log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping undecodable relay message")
			return
		}
		if env.Node == r.node || env.Event == nil {
			return
		}
		deliver(env.Room, env.Event)
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	if err := r.nc.Flush(); err != nil {
		return fmt.Errorf("flush subscription: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.closed:
		return ErrClosed
	}
}

// Close drains pending messages and closes the connection.
func (r *Relay) Close() error {
	return r.nc.Drain()
}
