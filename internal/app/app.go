package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirechat-live/internal/auth"
	"github.com/vovakirdan/wirechat-live/internal/config"
	"github.com/vovakirdan/wirechat-live/internal/core"
	"github.com/vovakirdan/wirechat-live/internal/presence/redispresence"
	"github.com/vovakirdan/wirechat-live/internal/relay/natsrelay"
	"github.com/vovakirdan/wirechat-live/internal/store"
	"github.com/vovakirdan/wirechat-live/internal/store/postgres"
	"github.com/vovakirdan/wirechat-live/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirechat-live/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	closers         []namedCloser
	log             *zerolog.Logger
}

type namedCloser struct {
	name  string
	close func() error
}

// OpenStore opens and migrates the configured database.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		st, err = sqlite.New(cfg.Path)
	case "postgres":
		st, err = postgres.New(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return st, nil
}

// JWTConfig converts configuration into the auth package form.
func JWTConfig(cfg config.JWTConfig) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:    []byte(cfg.Secret),
		Algorithm: cfg.Algorithm,
		Issuer:    cfg.Issuer,
		Audience:  cfg.Audience,
		TTL:       cfg.TTL,
	}
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if cfg.JWT.Secret == config.DefaultJWTSecret {
		logger.Warn().Msg("jwt secret is the development default, set jwt.secret or WIRECHAT_JWT_SECRET")
	}

	st, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database initialized")

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}

	verifier, err := auth.NewVerifier(JWTConfig(cfg.JWT))
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("init verifier: %w", err)
	}

	var presence core.PresenceTracker
	switch cfg.Presence.Backend {
	case "", "memory":
		presence = core.NewMemoryPresence()
	case "redis":
		tracker, err := redispresence.Dial(ctx, cfg.Presence.RedisAddr, cfg.Presence.RedisPassword, cfg.Presence.RedisDB, cfg.Presence.KeyPrefix)
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("init presence: %w", err)
		}
		a.closers = append(a.closers, namedCloser{name: "redis", close: tracker.Close})
		presence = tracker
		logger.Info().Str("addr", cfg.Presence.RedisAddr).Msg("redis presence enabled")
	default:
		a.cleanup()
		return nil, fmt.Errorf("unknown presence backend %q", cfg.Presence.Backend)
	}

	var relay core.Relay
	if cfg.Relay.NATSURL != "" {
		r, err := natsrelay.Connect(natsrelay.Config{
			URL:           cfg.Relay.NATSURL,
			Name:          cfg.Relay.Name,
			SubjectPrefix: cfg.Relay.SubjectPrefix,
		}, logger)
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("init relay: %w", err)
		}
		a.closers = append(a.closers, namedCloser{name: "nats", close: r.Close})
		relay = r
		logger.Info().Str("url", cfg.Relay.NATSURL).Str("node", r.Node()).Msg("nats relay enabled")
	}

	registry := core.NewRegistry()
	a.hub = core.NewHub(core.HubConfig{
		Verifier:   verifier,
		Resolver:   core.NewStoreResolver(st),
		Gateway:    core.NewStoreGateway(st),
		Registry:   registry,
		Router:     core.NewRouter(registry, relay, logger),
		Presence:   presence,
		Relay:      relay,
		SendBuffer: cfg.WS.SendBuffer,
		Logger:     logger,
	})
	a.server = transporthttp.NewServer(a.hub, verifier, cfg, logger)

	return a, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.hub.Run(gctx)
	})

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		// Hijacked WebSocket connections are not tracked by Shutdown.
		if err := a.hub.Drain(shutdownCtx); err != nil {
			a.log.Warn().Err(err).Msg("sessions still open after shutdown timeout")
		}
		return nil
	})

	err := g.Wait()
	a.cleanup()
	return err
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.log.Warn().Err(err).Str("resource", c.name).Msg("failed to close")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
