package service

import (
	"fmt"

	"slackgpt.app/relay/common/cache"
	"slackgpt.app/relay/common/llm"
	"slackgpt.app/relay/core/config"
	"slackgpt.app/relay/internal/brain"
	"slackgpt.app/relay/internal/imaging"
	"slackgpt.app/relay/internal/slackclient"
	"slackgpt.app/relay/internal/store"
	"slackgpt.app/relay/internal/stream"
)

type ServicesConfig struct {
	Config  config.Config
	Slack   *slackclient.Client
	LLM     llm.Client
	Prompts store.PromptStore
	Clock   cache.Clock // nil uses the system clock
}

// Services wires the worker-side services. Caches and the publish locks are
// shared by every request the process handles.
type Services struct {
	replies    ReplyService
	translator Translator
	commands   SystemPromptCommand
}

func NewServices(sc ServicesConfig) (*Services, error) {
	cfg := sc.Config
	clock := sc.Clock
	if clock == nil {
		clock = cache.SystemClock{}
	}

	names, err := cache.NewTTL[string](cfg.Cache.ChannelNameTTL, cfg.Cache.MaxEntries, clock)
	if err != nil {
		return nil, fmt.Errorf("creating channel name cache: %w", err)
	}
	members, err := cache.NewTTL[int](cfg.Cache.MemberCountTTL, cfg.Cache.MaxEntries, clock)
	if err != nil {
		return nil, fmt.Errorf("creating member count cache: %w", err)
	}
	promptCache, err := cache.NewTTL[string](cfg.Cache.SystemPromptTTL, cfg.Cache.MaxEntries, clock)
	if err != nil {
		return nil, fmt.Errorf("creating system prompt cache: %w", err)
	}

	channels := NewChannelInfo(sc.Slack, names, members)
	prompts := NewPromptService(sc.Prompts, channels, promptCache)

	builder := brain.NewContextBuilder(
		prompts,
		sc.Slack,
		imaging.NewLoader(sc.Slack, cfg.Images.MaxDimension),
		cfg.Window.MaxInputTokens,
	)

	relay := stream.NewRelay(stream.Throttle{
		Interval:  cfg.Stream.UpdateInterval,
		MinDelta:  cfg.Stream.MinUpdateLength,
		MaxBuffer: cfg.Stream.MaxBufferBytes,
	}, stream.NewPublisher(sc.Slack, stream.NewKeyedMutex()))

	detector := NewEngagementDetector(cfg.Slack.BotUserID, sc.Slack, channels, NewIntentClassifier(sc.LLM))

	return &Services{
		replies:    NewReplyService(detector, builder, sc.LLM, relay, sc.Slack),
		translator: NewTranslator(sc.Slack, sc.LLM, sc.Slack),
		commands:   NewSystemPromptCommand(prompts, sc.Prompts, sc.Slack),
	}, nil
}

func (s *Services) Replies() ReplyService {
	return s.replies
}

func (s *Services) Translator() Translator {
	return s.translator
}

func (s *Services) SystemPromptCommand() SystemPromptCommand {
	return s.commands
}
