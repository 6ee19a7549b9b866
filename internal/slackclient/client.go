package slackclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"slackgpt.app/relay/core/config"
	"slackgpt.app/relay/internal/model"
)

// ErrRateLimited is wrapped around Slack 429 responses.
var ErrRateLimited = errors.New("slack rate limited")

// memberSampleSize is enough to tell a one-on-one channel from a larger one.
const memberSampleSize = 3

// Client is the bot's Slack Web API adapter. Outgoing text is converted from
// Markdown to Slack mrkdwn, and writes are paced per channel.
type Client struct {
	api     *slack.Client
	limiter *ChannelLimiter
}

func New(cfg config.SlackConfig, opts ...slack.Option) *Client {
	return &Client{
		api:     slack.New(cfg.BotToken, opts...),
		limiter: NewChannelLimiter(cfg.UpdatesPerSecond, 1),
	}
}

// FetchThreadReplies returns every message of the thread rooted at threadTS.
func (c *Client) FetchThreadReplies(ctx context.Context, channelID, threadTS string) ([]model.ThreadReply, error) {
	var (
		replies []model.ThreadReply
		cursor  string
	)
	for {
		msgs, hasMore, next, err := c.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
			ChannelID: channelID,
			Timestamp: threadTS,
			Cursor:    cursor,
			Inclusive: true,
			Limit:     200,
		})
		if err != nil {
			return nil, fmt.Errorf("conversations.replies: %w", wrap(err))
		}
		for _, m := range msgs {
			replies = append(replies, toThreadReply(m))
		}
		if !hasMore || next == "" {
			break
		}
		cursor = next
	}
	return replies, nil
}

// FetchMessage returns a single message by timestamp.
func (c *Client) FetchMessage(ctx context.Context, channelID, ts string) (model.ThreadReply, error) {
	msgs, _, _, err := c.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: ts,
		Inclusive: true,
		Limit:     1,
	})
	if err != nil {
		return model.ThreadReply{}, fmt.Errorf("conversations.replies: %w", wrap(err))
	}
	if len(msgs) == 0 {
		return model.ThreadReply{}, fmt.Errorf("message %s not found in %s", ts, channelID)
	}
	return toThreadReply(msgs[0]), nil
}

// CreateMessage posts text into the thread and returns the new message.
func (c *Client) CreateMessage(ctx context.Context, channelID, threadTS, text string) (model.MessageHandle, error) {
	if err := c.limiter.Wait(ctx, channelID); err != nil {
		return model.MessageHandle{}, err
	}
	ch, ts, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(ToMrkdwn(text), false),
		slack.MsgOptionTS(threadTS),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		return model.MessageHandle{}, fmt.Errorf("chat.postMessage: %w", wrap(err))
	}
	return model.MessageHandle{ChannelID: ch, Timestamp: ts}, nil
}

// UpdateMessage replaces the text of a message posted by the bot.
func (c *Client) UpdateMessage(ctx context.Context, handle model.MessageHandle, text string) error {
	if err := c.limiter.Wait(ctx, handle.ChannelID); err != nil {
		return err
	}
	_, _, _, err := c.api.UpdateMessageContext(ctx, handle.ChannelID, handle.Timestamp,
		slack.MsgOptionText(ToMrkdwn(text), false),
	)
	if err != nil {
		return fmt.Errorf("chat.update: %w", wrap(err))
	}
	return nil
}

// PostMessage posts a one-off message into a thread.
func (c *Client) PostMessage(ctx context.Context, channelID, threadTS, text string) error {
	_, err := c.CreateMessage(ctx, channelID, threadTS, text)
	return err
}

// PostEphemeral shows text to a single user.
func (c *Client) PostEphemeral(ctx context.Context, channelID, userID, text string) error {
	if _, err := c.api.PostEphemeralContext(ctx, channelID, userID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("chat.postEphemeral: %w", wrap(err))
	}
	return nil
}

// ChannelMemberCount samples the member list. Counts above memberSampleSize
// are reported as memberSampleSize.
func (c *Client) ChannelMemberCount(ctx context.Context, channelID string) (int, error) {
	members, _, err := c.api.GetUsersInConversationContext(ctx, &slack.GetUsersInConversationParameters{
		ChannelID: channelID,
		Limit:     memberSampleSize,
	})
	if err != nil {
		return 0, fmt.Errorf("conversations.members: %w", wrap(err))
	}
	return len(members), nil
}

// ChannelName returns the channel's display name, empty for direct messages.
func (c *Client) ChannelName(ctx context.Context, channelID string) (string, error) {
	ch, err := c.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: channelID})
	if err != nil {
		return "", fmt.Errorf("conversations.info: %w", wrap(err))
	}
	return ch.Name, nil
}

// DownloadFile fetches a private file with the bot token.
func (c *Client) DownloadFile(ctx context.Context, url string) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.api.GetFileContext(ctx, url, &buf); err != nil {
		return nil, fmt.Errorf("downloading file: %w", wrap(err))
	}
	slog.DebugContext(ctx, "slack file downloaded", "bytes", buf.Len())
	return buf.Bytes(), nil
}

func toThreadReply(m slack.Message) model.ThreadReply {
	return model.ThreadReply{
		Timestamp: m.Timestamp,
		Text:      m.Text,
		IsBot:     m.BotID != "" || m.SubType == "bot_message",
		UserID:    m.User,
	}
}

func wrap(err error) error {
	var rl *slack.RateLimitedError
	if errors.As(err, &rl) {
		return fmt.Errorf("%w (retry after %s): %w", ErrRateLimited, rl.RetryAfter, err)
	}
	return err
}
