package brain

import (
	"context"
	"log/slog"

	"slackgpt.app/relay/common/logger"
	"slackgpt.app/relay/internal/model"
)

// PromptSource resolves the system prompt configured for a channel.
type PromptSource interface {
	Get(ctx context.Context, channelID string) (string, error)
}

// ThreadFetcher reads every reply of a thread, root included.
type ThreadFetcher interface {
	FetchThreadReplies(ctx context.Context, channelID, threadTS string) ([]model.ThreadReply, error)
}

// ImageLoader turns image attachments into URLs the model can read.
// Files it cannot load are skipped, not reported as errors.
type ImageLoader interface {
	Load(ctx context.Context, files []model.File) []string
}

// ContextBuilder assembles the model context for an inbound message.
type ContextBuilder struct {
	prompts PromptSource
	threads ThreadFetcher
	images  ImageLoader
	budget  int
}

// NewContextBuilder creates a ContextBuilder. images may be nil to ignore attachments.
func NewContextBuilder(prompts PromptSource, threads ThreadFetcher, images ImageLoader, budget int) *ContextBuilder {
	return &ContextBuilder{
		prompts: prompts,
		threads: threads,
		images:  images,
		budget:  budget,
	}
}

// BuildForMessage fetches the system prompt and, for threaded messages, the
// thread history, then builds the window. The message itself is removed from
// the fetched history since it is appended as the new message.
func (b *ContextBuilder) BuildForMessage(ctx context.Context, msg model.InboundMessage) ([]model.Turn, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "relay.brain.context_builder"})

	systemPrompt, err := b.prompts.Get(ctx, msg.ChannelID)
	if err != nil {
		return nil, &UpstreamFetchError{Source: "system_prompt", Err: err}
	}

	var history []model.ThreadReply
	if msg.InThread() {
		t := logger.StartTimer(ctx, "fetch_thread_replies")
		replies, err := b.threads.FetchThreadReplies(ctx, msg.ChannelID, msg.ThreadTS)
		if err != nil {
			t.End("status", "error")
			return nil, &UpstreamFetchError{Source: "thread_replies", Err: err}
		}
		t.End("status", "success", "reply_count", len(replies))

		history = make([]model.ThreadReply, 0, len(replies))
		for _, r := range replies {
			if r.Timestamp == msg.Timestamp {
				continue
			}
			history = append(history, r)
		}
	}

	var imageURLs []string
	if b.images != nil && len(msg.Files) > 0 {
		imageURLs = b.images.Load(ctx, msg.Files)
	}

	turns, stats := BuildWindowWithStats(WindowInput{
		SystemPrompt: systemPrompt,
		History:      history,
		NewMessage:   msg.Text,
		Images:       imageURLs,
		Budget:       b.budget,
	})

	slog.InfoContext(ctx, "context window built",
		"turn_count", len(turns),
		"history_kept", stats.HistoryKept,
		"history_dropped", stats.HistoryDropped,
		"total_tokens", stats.TotalTokens(),
		"image_count", len(imageURLs),
		"over_budget", stats.TotalTokens() > b.budget)

	return turns, nil
}
