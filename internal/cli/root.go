// Package cli implements relayctl, the operator CLI for system prompts.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"slackgpt.app/relay/core/config"
	"slackgpt.app/relay/internal/service"
	"slackgpt.app/relay/internal/store"
)

// Backend is what the prompt commands operate on.
type Backend struct {
	Prompts store.PromptStore
	Tx      service.TxRunner
	Close   func()
}

// Opener connects the prompt backend. It runs once, before any subcommand.
type Opener func(ctx context.Context) (*Backend, error)

type app struct {
	open    Opener
	backend *Backend
	verbose bool
}

// NewRootCommand builds the relayctl command tree. Output goes to the
// command's configured writers so tests can capture it.
func NewRootCommand(open Opener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:   "relayctl",
		Short: "Manage the Slack relay's per-channel system prompts",
		Long: `relayctl reads and writes the system prompts the relay prepends to every
conversation in a channel. Keys have the form <channelID>:<channelName>.

Example usage:
  relayctl prompt list                       # Show every stored prompt
  relayctl prompt get C0123:general          # Show one prompt
  relayctl prompt set C0123:general "..."    # Replace one prompt
  relayctl prompt import prompts.json        # Load prompts from a file`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return a.connect(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.backend != nil && a.backend.Close != nil {
				a.backend.Close()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(newPromptCommand(a))
	return root
}

func (a *app) connect(ctx context.Context) error {
	if a.backend != nil {
		return nil
	}
	backend, err := a.open(ctx)
	if err != nil {
		return fmt.Errorf("opening prompt store: %w", err)
	}
	a.backend = backend
	return nil
}

// OpenFromEnv connects the backend configured by the relay's environment.
func OpenFromEnv(ctx context.Context) (*Backend, error) {
	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.PromptStore.Backend == config.PromptStoreRedis {
		opts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
	}

	prompts, database, err := store.OpenPromptStore(ctx, cfg, rdb)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}

	if database != nil {
		return &Backend{
			Prompts: prompts,
			Tx:      service.NewTxRunner(database),
			Close:   database.Close,
		}, nil
	}
	return &Backend{
		Prompts: prompts,
		Tx:      service.NewDirectRunner(prompts),
		Close:   func() { _ = rdb.Close() },
	}, nil
}

// Execute runs relayctl against the environment's backend.
func Execute() error {
	return NewRootCommand(OpenFromEnv).Execute()
}
