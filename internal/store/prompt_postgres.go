package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"slackgpt.app/relay/internal/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS system_prompts (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const (
	getPromptSQL    = `SELECT value FROM system_prompts WHERE key = $1`
	upsertPromptSQL = `INSERT INTO system_prompts (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	listPromptsSQL = `SELECT key, value, updated_at FROM system_prompts ORDER BY key`
)

// EnsureSchema creates the system_prompts table when missing.
func EnsureSchema(ctx context.Context, q DBTX) error {
	if _, err := q.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("creating system_prompts table: %w", err)
	}
	return nil
}

type postgresPromptStore struct {
	db DBTX
}

func NewPostgresPromptStore(db DBTX) PromptStore {
	return &postgresPromptStore{db: db}
}

func (s *postgresPromptStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	if err := s.db.QueryRow(ctx, getPromptSQL, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("getting system prompt %q: %w", key, err)
	}
	return value, nil
}

func (s *postgresPromptStore) Set(ctx context.Context, key, text string) error {
	if _, err := s.db.Exec(ctx, upsertPromptSQL, key, text); err != nil {
		return fmt.Errorf("setting system prompt %q: %w", key, err)
	}
	return nil
}

func (s *postgresPromptStore) List(ctx context.Context) ([]model.SystemPrompt, error) {
	rows, err := s.db.Query(ctx, listPromptsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing system prompts: %w", err)
	}
	defer rows.Close()

	var prompts []model.SystemPrompt
	for rows.Next() {
		var p model.SystemPrompt
		if err := rows.Scan(&p.Key, &p.Text, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning system prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing system prompts: %w", err)
	}
	return prompts, nil
}
