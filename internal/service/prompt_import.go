package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"slackgpt.app/relay/common/logger"
	"slackgpt.app/relay/internal/model"
	"slackgpt.app/relay/internal/store"
)

// ErrInvalidPromptKey is returned for keys not shaped "<channelID>:<channelName>".
var ErrInvalidPromptKey = errors.New("invalid prompt key")

// ImportPrompts writes prompts in one transaction when the runner supports it.
// Keys are validated up front so a bad entry writes nothing. Running servers
// pick the new prompts up once their cached copies expire.
func ImportPrompts(ctx context.Context, runner TxRunner, prompts []model.SystemPrompt) error {
	for _, p := range prompts {
		if err := ValidatePromptKey(p.Key); err != nil {
			return err
		}
	}

	timer := logger.StartTimer(ctx, "prompts imported")
	err := runner.WithTx(ctx, func(s store.PromptStore) error {
		for _, p := range prompts {
			if err := s.Set(ctx, p.Key, p.Text); err != nil {
				return fmt.Errorf("writing %q: %w", p.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		timer.End("status", "error", "count", len(prompts))
		return err
	}
	timer.End("status", "success", "count", len(prompts))
	return nil
}

// ValidatePromptKey checks that key names a channel ID.
func ValidatePromptKey(key string) error {
	channelID, _, ok := strings.Cut(key, ":")
	if !ok || channelID == "" {
		return fmt.Errorf("%w: %q", ErrInvalidPromptKey, key)
	}
	return nil
}
