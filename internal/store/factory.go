package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"slackgpt.app/relay/core/config"
	"slackgpt.app/relay/core/db"
)

// NewPromptStore picks the prompt backend named by cfg.Backend. Only the
// client for the selected backend needs to be non-nil.
func NewPromptStore(cfg config.PromptStoreConfig, db DBTX, rdb *redis.Client) (PromptStore, error) {
	switch cfg.Backend {
	case config.PromptStorePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres prompt store requires a database")
		}
		return NewPostgresPromptStore(db), nil
	case config.PromptStoreRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis prompt store requires a redis client")
		}
		return NewRedisPromptStore(rdb, cfg.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("unsupported prompt store backend %q", cfg.Backend)
	}
}

// OpenPromptStore connects the configured backend. For postgres it opens the
// database and creates the table if needed; the returned *db.DB is nil for
// the redis backend and must be closed by the caller otherwise.
func OpenPromptStore(ctx context.Context, cfg config.Config, rdb *redis.Client) (PromptStore, *db.DB, error) {
	if cfg.PromptStore.Backend != config.PromptStorePostgres {
		prompts, err := NewPromptStore(cfg.PromptStore, nil, rdb)
		return prompts, nil, err
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.WithTx(ctx, func(tx pgx.Tx) error {
		return EnsureSchema(ctx, tx)
	}); err != nil {
		database.Close()
		return nil, nil, err
	}

	prompts, err := NewPromptStore(cfg.PromptStore, database.Pool(), rdb)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return prompts, database, nil
}
