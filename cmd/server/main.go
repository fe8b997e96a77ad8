package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-live/internal/app"
	"github.com/vovakirdan/wirechat-live/internal/auth"
	"github.com/vovakirdan/wirechat-live/internal/config"
	"github.com/vovakirdan/wirechat-live/internal/log"
	"github.com/vovakirdan/wirechat-live/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type cliState struct {
	configPath string
	cfg        config.Config
	logger     *zerolog.Logger
}

func newRootCmd() *cobra.Command {
	state := &cliState{}

	root := &cobra.Command{
		Use:           "wirechat-live",
		Short:         "Real-time chat rooms, presence and typing over WebSocket",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			bootstrap := log.New("info", "console")
			cfg, path, err := config.Load(bootstrap, state.configPath)
			if err != nil {
				return err
			}
			state.cfg = cfg
			state.logger = log.New(cfg.LogLevel, cfg.LogFormat)
			state.logger.Debug().Str("config", path).Msg("configuration loaded")
			return nil
		},
	}
	root.PersistentFlags().StringVar(&state.configPath, "config", "", "path to config.yaml")

	root.AddCommand(
		newServeCmd(state),
		newMigrateCmd(state),
		newUserCmd(state),
		newConversationCmd(state),
		newTokenCmd(state),
	)
	return root
}

func newServeCmd(state *cliState) *cobra.Command {
	var override config.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			state.cfg.UpdateFrom(override)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(ctx, &state.cfg, state.logger)
			if err != nil {
				return err
			}

			state.logger.Info().Str("addr", state.cfg.Addr).Msg("starting wirechat-live")
			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited with error: %w", err)
			}
			state.logger.Info().Msg("server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&override.Addr, "addr", "", "HTTP listen address")
	cmd.Flags().DurationVar(&override.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	cmd.Flags().StringVar(&override.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

func newMigrateCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := app.OpenStore(cmd.Context(), state.cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()
			state.logger.Info().Str("driver", state.cfg.Database.Driver).Msg("schema is up to date")
			return nil
		},
	}
}

func newUserCmd(state *cliState) *cobra.Command {
	userCmd := &cobra.Command{Use: "user", Short: "Manage users"}

	var password string
	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Register a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(cmd.Context(), state, func(svc *auth.Service, _ store.Store) error {
				user, err := svc.Register(cmd.Context(), args[0], password)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), user.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&password, "password", "", "password (min 6 characters)")
	_ = add.MarkFlagRequired("password")

	userCmd.AddCommand(add)
	return userCmd
}

func newConversationCmd(state *cliState) *cobra.Command {
	convCmd := &cobra.Command{Use: "conversation", Short: "Manage conversations"}

	create := &cobra.Command{
		Use:   "create <user-id>...",
		Short: "Create a conversation between users",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return withAuth(cmd.Context(), state, func(_ *auth.Service, st store.Store) error {
				for _, id := range ids {
					if _, err := st.GetUserByID(cmd.Context(), id); err != nil {
						return fmt.Errorf("user %d: %w", id, err)
					}
				}
				conv, err := st.CreateConversation(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				members, err := st.ListParticipants(cmd.Context(), conv.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d participants=%v\n", conv.ID, members)
				return nil
			})
		},
	}

	var (
		limit  int
		before int64
	)
	history := &cobra.Command{
		Use:   "history <conversation-id>",
		Short: "Print stored messages of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid conversation id %q", args[0])
			}
			return withAuth(cmd.Context(), state, func(_ *auth.Service, st store.Store) error {
				var beforeID *int64
				if before > 0 {
					beforeID = &before
				}
				msgs, err := st.ListMessages(cmd.Context(), id, limit, beforeID)
				if err != nil {
					return err
				}
				for _, m := range msgs {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%d\t%s\n",
						m.ID, m.CreatedAt.UTC().Format(time.RFC3339Nano), m.SenderID, m.Content)
				}
				return nil
			})
		},
	}
	history.Flags().IntVar(&limit, "limit", 50, "maximum number of messages")
	history.Flags().Int64Var(&before, "before", 0, "only messages with a smaller id")

	convCmd.AddCommand(create, history)
	return convCmd
}

func newTokenCmd(state *cliState) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "token <user-id|username>",
		Short: "Sign a connection token for a user (development only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(cmd.Context(), state, func(svc *auth.Service, _ store.Store) error {
				user, err := svc.Lookup(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("user %q: %w", args[0], err)
				}
				if password != "" {
					if _, err := svc.Authenticate(cmd.Context(), user.Username, password); err != nil {
						return err
					}
				}
				token, err := svc.IssueToken(cmd.Context(), user.ID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "check the user's password before signing")
	return cmd
}

func withAuth(ctx context.Context, state *cliState, fn func(*auth.Service, store.Store) error) error {
	st, err := app.OpenStore(ctx, state.cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	svc, err := auth.NewService(st, app.JWTConfig(state.cfg.JWT))
	if err != nil {
		return err
	}
	return fn(svc, st)
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
