package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"slackgpt.app/relay/internal/store"
)

// TxBeginner runs fn inside a database transaction. *db.DB satisfies it.
type TxBeginner interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// TxRunner runs functions within a transaction and provides a prompt store bound to it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(prompts store.PromptStore) error) error
}

type dbTxRunner struct {
	db TxBeginner
}

// NewTxRunner builds a TxRunner backed by the core DB.
func NewTxRunner(db TxBeginner) TxRunner {
	return &dbTxRunner{db: db}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(prompts store.PromptStore) error) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(store.NewPostgresPromptStore(tx))
	})
}

type directRunner struct {
	prompts store.PromptStore
}

// NewDirectRunner hands fn the store itself, for backends without
// transactions. A failure midway leaves earlier writes in place.
func NewDirectRunner(prompts store.PromptStore) TxRunner {
	return &directRunner{prompts: prompts}
}

func (r *directRunner) WithTx(ctx context.Context, fn func(prompts store.PromptStore) error) error {
	return fn(r.prompts)
}
