package service

import (
	"context"
	"fmt"

	"slackgpt.app/relay/common/cache"
	"slackgpt.app/relay/internal/store"
)

// ChannelNamer resolves channel display names for prompt keys.
type ChannelNamer interface {
	ChannelName(ctx context.Context, channelID string) string
}

// PromptService reads and writes per-channel system prompts. Reads are cached
// by channel ID; writes invalidate the cached entry.
type PromptService struct {
	store store.PromptStore
	names ChannelNamer
	cache *cache.TTLCache[string]
}

func NewPromptService(prompts store.PromptStore, names ChannelNamer, c *cache.TTLCache[string]) *PromptService {
	return &PromptService{store: prompts, names: names, cache: c}
}

// Key returns the store key for a channel.
func (s *PromptService) Key(ctx context.Context, channelID string) string {
	return PromptKey(channelID, s.names.ChannelName(ctx, channelID))
}

// PromptKey formats the store key "<channelID>:<channelName>".
func PromptKey(channelID, channelName string) string {
	return channelID + ":" + channelName
}

// Get returns the channel's system prompt, "" when none is set.
func (s *PromptService) Get(ctx context.Context, channelID string) (string, error) {
	return s.cache.GetOrFetch(ctx, channelID, func(ctx context.Context) (string, error) {
		key := s.Key(ctx, channelID)
		prompt, err := s.store.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("reading system prompt %q: %w", key, err)
		}
		return prompt, nil
	})
}

// Set stores the channel's system prompt and drops the cached copy.
func (s *PromptService) Set(ctx context.Context, channelID, text string) error {
	key := s.Key(ctx, channelID)
	if err := s.store.Set(ctx, key, text); err != nil {
		return fmt.Errorf("writing system prompt %q: %w", key, err)
	}
	s.cache.Invalidate(channelID)
	return nil
}
