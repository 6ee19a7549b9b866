package service

import (
	"context"
	"log/slog"
	"time"

	"slackgpt.app/relay/common/llm"
	"slackgpt.app/relay/common/logger"
	"slackgpt.app/relay/internal/model"
	"slackgpt.app/relay/internal/stream"
)

const notifyTimeout = 10 * time.Second

// WindowBuilder produces the model context for a message.
type WindowBuilder interface {
	BuildForMessage(ctx context.Context, msg model.InboundMessage) ([]model.Turn, error)
}

// ThreadPoster posts a plain message into a thread.
type ThreadPoster interface {
	PostMessage(ctx context.Context, channelID, threadTS, text string) error
}

type ReplyService interface {
	// HandleMessage answers msg when the engagement rules say so.
	HandleMessage(ctx context.Context, msg model.InboundMessage) error
	// Reply answers msg unconditionally.
	Reply(ctx context.Context, msg model.InboundMessage) error
}

type replyService struct {
	detector EngagementDetector
	builder  WindowBuilder
	llm      llm.StreamClient
	relay    *stream.Relay
	poster   ThreadPoster
}

func NewReplyService(detector EngagementDetector, builder WindowBuilder, client llm.StreamClient, relay *stream.Relay, poster ThreadPoster) ReplyService {
	return &replyService{
		detector: detector,
		builder:  builder,
		llm:      client,
		relay:    relay,
		poster:   poster,
	}
}

func (s *replyService) HandleMessage(ctx context.Context, msg model.InboundMessage) error {
	if !s.detector.ShouldRespond(ctx, msg) {
		slog.DebugContext(ctx, "not responding to message")
		return nil
	}
	return s.Reply(ctx, msg)
}

// Reply streams a model answer into the message's thread. Failures are
// reported to the user in the thread; an error is returned only when nothing
// reached the thread, so a retry cannot duplicate output.
func (s *replyService) Reply(ctx context.Context, msg model.InboundMessage) error {
	target := msg.ReplyTarget()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ChannelID: logger.Ptr(target.ChannelID),
		ThreadTS:  logger.Ptr(target.ThreadTS),
		Component: "relay.service.reply",
	})
	timer := logger.StartTimer(ctx, "reply handled")

	turns, err := s.builder.BuildForMessage(ctx, msg)
	if err != nil {
		timer.End("status", "error", "phase", "context")
		return s.fail(ctx, target, err, false)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks, err := s.llm.Stream(streamCtx, toLLMMessages(turns))
	if err != nil {
		timer.End("status", "error", "phase", "stream_open")
		return s.fail(ctx, target, err, false)
	}

	res, err := s.relay.Run(streamCtx, target, chunks)
	if err != nil {
		cancel()
		timer.End("status", "error", "phase", "relay")
		return s.fail(ctx, target, err, res != nil && res.Handle != nil)
	}

	timer.End("status", "success", "publishes", res.Publishes, "bytes", len(res.Text))
	return nil
}

func (s *replyService) fail(ctx context.Context, target model.ReplyTarget, err error, published bool) error {
	err = classify(err)
	text := UserMessage(err)
	slog.ErrorContext(ctx, "reply failed", "error", err, "partial_published", published)

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if postErr := s.poster.PostMessage(notifyCtx, target.ChannelID, target.ThreadTS, text); postErr != nil {
		slog.ErrorContext(ctx, "failed to notify user about reply error", "error", postErr)
		if !published {
			return err
		}
	}
	return nil
}

func toLLMMessages(turns []model.Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		m := llm.Message{Role: string(t.Role), Content: t.Content}
		for _, p := range t.Parts {
			switch p.Type {
			case model.ContentPartText:
				m.Parts = append(m.Parts, llm.Part{Type: llm.PartText, Text: p.Text})
			case model.ContentPartImage:
				m.Parts = append(m.Parts, llm.Part{Type: llm.PartImage, ImageURL: p.ImageURL})
			}
		}
		msgs = append(msgs, m)
	}
	return msgs
}
