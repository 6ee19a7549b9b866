package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"slackgpt.app/relay/internal/model"
)

// PromptStore persists system prompts by key.
type PromptStore interface {
	// Get returns "" and a nil error when the key has no prompt.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, text string) error
	List(ctx context.Context) ([]model.SystemPrompt, error)
}

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
