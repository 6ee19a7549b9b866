package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
)

// streamBuffer bounds how far the HTTP reader may run ahead of the consumer.
const streamBuffer = 64

// Stream starts a streaming completion. Text deltas are forwarded in order on
// the returned channel; the channel is closed when the stream ends. An
// abnormal end is reported as a final Chunk with Err set. Cancelling ctx
// aborts the HTTP stream and closes the channel.
func (c *client) Stream(ctx context.Context, messages []Message) (<-chan Chunk, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("stream: no messages")
	}

	stream := c.openai.Chat.Completions.NewStreaming(ctx, c.params(messages))
	out := make(chan Chunk, streamBuffer)

	go func() {
		defer close(out)
		defer stream.Close()

		start := time.Now()
		var chunks, size int
		for stream.Next() {
			current := stream.Current()
			for _, choice := range current.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				if chunks == 0 {
					slog.DebugContext(ctx, "llm stream first chunk",
						"model", c.model,
						"ttfb_ms", time.Since(start).Milliseconds())
				}
				chunks++
				size += len(choice.Delta.Content)
				select {
				case out <- Chunk{Text: choice.Delta.Content}:
				case <-ctx.Done():
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			select {
			case out <- Chunk{Err: fmt.Errorf("openai stream: %w", classify(err))}:
			case <-ctx.Done():
			}
			return
		}

		slog.DebugContext(ctx, "llm stream completed",
			"model", c.model,
			"duration_ms", time.Since(start).Milliseconds(),
			"chunks", chunks,
			"bytes", size)
	}()

	return out, nil
}

func convertMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))

	for _, msg := range msgs {
		switch msg.Role {
		case RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))

		case RoleUser:
			if len(msg.Parts) > 0 {
				result = append(result, openai.UserMessage(convertParts(msg.Parts)))
			} else {
				result = append(result, openai.UserMessage(msg.Content))
			}

		case RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		}
	}

	return result
}

func convertParts(parts []Part) []openai.ChatCompletionContentPartUnionParam {
	result := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, p := range parts {
		switch p.Type {
		case PartText:
			result = append(result, openai.TextContentPart(p.Text))
		case PartImage:
			result = append(result, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL:    p.ImageURL,
				Detail: "auto",
			}))
		}
	}
	return result
}
