package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"slackgpt.app/relay/internal/model"
)

const scanBatch = 100

type redisPromptStore struct {
	client *redis.Client
	prefix string
}

// NewRedisPromptStore stores each prompt as a plain string under prefix+key.
func NewRedisPromptStore(client *redis.Client, prefix string) PromptStore {
	return &redisPromptStore{client: client, prefix: prefix}
}

func (s *redisPromptStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("getting system prompt %q: %w", key, err)
	}
	return value, nil
}

func (s *redisPromptStore) Set(ctx context.Context, key, text string) error {
	if err := s.client.Set(ctx, s.prefix+key, text, 0).Err(); err != nil {
		return fmt.Errorf("setting system prompt %q: %w", key, err)
	}
	return nil
}

func (s *redisPromptStore) List(ctx context.Context) ([]model.SystemPrompt, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning system prompts: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading system prompts: %w", err)
	}

	prompts := make([]model.SystemPrompt, 0, len(keys))
	for i, k := range keys {
		text, ok := values[i].(string)
		if !ok {
			continue
		}
		prompts = append(prompts, model.SystemPrompt{
			Key:  strings.TrimPrefix(k, s.prefix),
			Text: text,
		})
	}
	return prompts, nil
}
