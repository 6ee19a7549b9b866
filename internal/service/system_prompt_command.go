package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"slackgpt.app/relay/common/logger"
	"slackgpt.app/relay/internal/model"
)

// SystemPromptCommandName is the slash command handled by SystemPromptCommand.
const SystemPromptCommandName = "/system-prompt"

const msgPromptCommandError = "システムプロンプトの処理中にエラーが発生しました。"

// EphemeralPoster posts a message visible only to one user.
type EphemeralPoster interface {
	PostEphemeral(ctx context.Context, channelID, userID, text string) error
}

// PromptReadWriter is the prompt surface the command needs.
type PromptReadWriter interface {
	Key(ctx context.Context, channelID string) string
	Set(ctx context.Context, channelID, text string) error
}

// PromptReader reads a prompt by store key, bypassing the cache.
type PromptReader interface {
	Get(ctx context.Context, key string) (string, error)
}

type SystemPromptCommand interface {
	Handle(ctx context.Context, cmd model.SlashCommand) error
}

type systemPromptCommand struct {
	prompts PromptReadWriter
	store   PromptReader
	poster  EphemeralPoster
}

func NewSystemPromptCommand(prompts PromptReadWriter, store PromptReader, poster EphemeralPoster) SystemPromptCommand {
	return &systemPromptCommand{prompts: prompts, store: store, poster: poster}
}

// Handle sets the channel prompt when text is given and shows it otherwise.
// The answer is posted ephemerally to the invoking user.
func (c *systemPromptCommand) Handle(ctx context.Context, cmd model.SlashCommand) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ChannelID: logger.Ptr(cmd.ChannelID),
		UserID:    logger.Ptr(cmd.UserID),
		Component: "relay.service.system_prompt_command",
	})
	timer := logger.StartTimer(ctx, "system prompt command handled")

	text := strings.TrimSpace(cmd.Text)
	reply, action, err := c.run(ctx, cmd.ChannelID, text)
	if err != nil {
		timer.End("status", "error")
		slog.ErrorContext(ctx, "system prompt command failed", "error", err)
		reply = msgPromptCommandError
	} else {
		timer.End("status", "success", "action", action)
	}

	if err := c.poster.PostEphemeral(ctx, cmd.ChannelID, cmd.UserID, reply); err != nil {
		return fmt.Errorf("posting command reply: %w", err)
	}
	return nil
}

func (c *systemPromptCommand) run(ctx context.Context, channelID, text string) (reply, action string, err error) {
	if text != "" {
		if err := c.prompts.Set(ctx, channelID, text); err != nil {
			return "", "", err
		}
		return "このチャンネルの ChatGPT システムプロンプトを「" + text + "」に設定しました。", "update", nil
	}

	prompt, err := c.store.Get(ctx, c.prompts.Key(ctx, channelID))
	if err != nil {
		return "", "", fmt.Errorf("reading system prompt: %w", err)
	}
	if prompt == "" {
		return "このチャンネルの ChatGPT システムプロンプトは設定されていません。", "read_empty", nil
	}
	return "このチャンネルの ChatGPT システムプロンプトは「" + prompt + "」です。", "read", nil
}
