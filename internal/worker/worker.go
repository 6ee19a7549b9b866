package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"slackgpt.app/relay/common/id"
	"slackgpt.app/relay/common/llm"
	"slackgpt.app/relay/common/logger"
	"slackgpt.app/relay/internal/model"
	"slackgpt.app/relay/internal/queue"
)

// errPermanent marks failures a retry cannot fix.
var errPermanent = errors.New("permanent failure")

type Config struct {
	MaxAttempts int
}

type Worker struct {
	consumer Consumer
	handlers Handlers
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, handlers Handlers, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		consumer:  consumer,
		handlers:  handlers,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "relay.worker"})
	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		_ = w.HandleMessage(ctx, msg)
	}

	return nil
}

// HandleMessage processes msg and, on failure, requeues it or moves it to the
// DLQ. It is shared with the reclaimer so reclaimed entries honour the same
// attempt limit.
func (w *Worker) HandleMessage(ctx context.Context, msg queue.Message) error {
	if err := w.processMessageSafe(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "message processing failed",
			"error", err,
			"message_id", msg.ID,
			"task_type", msg.TaskType)
		w.handleFailedMessage(ctx, msg, err)
		return err
	}
	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage dispatches one task and acks it on success. The task's trace
// ID, when present, links the worker span to the webhook that enqueued it.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_task")
	defer sc.End()
	ctx = sc.Context()

	replyID := id.New()
	eventType := string(msg.TaskType)
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ReplyID:   &replyID,
		MessageID: logger.Ptr(msg.ID),
		EventType: &eventType,
	})

	slog.InfoContext(ctx, "processing message",
		"event_id", msg.EventID,
		"attempt", msg.Attempt)

	if err := w.dispatch(ctx, msg); err != nil {
		sc.RecordError(err)
		return err
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		slog.WarnContext(ctx, "failed to ACK message",
			"error", err,
			"message_id", msg.ID)
	}
	return nil
}

func (w *Worker) dispatch(ctx context.Context, msg queue.Message) error {
	switch msg.TaskType {
	case queue.TaskTypeSlackMessage:
		var m model.InboundMessage
		if err := decode(msg.Payload, &m); err != nil {
			return err
		}
		ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(m.UserID)})
		return w.handlers.Messages.HandleMessage(ctx, m)

	case queue.TaskTypeSlackReaction:
		var r model.Reaction
		if err := decode(msg.Payload, &r); err != nil {
			return err
		}
		ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(r.UserID)})
		return w.handlers.Reactions.HandleReaction(ctx, r)

	case queue.TaskTypeSlashCommand:
		var c model.SlashCommand
		if err := decode(msg.Payload, &c); err != nil {
			return err
		}
		ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(c.UserID)})
		return w.handlers.Commands.Handle(ctx, c)
	}
	return fmt.Errorf("%w: unknown task type %q", errPermanent, msg.TaskType)
}

func decode(payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: decoding payload: %v", errPermanent, err)
	}
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if errors.Is(err, errPermanent) || !llm.IsRetryable(ctx, err) || msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "giving up on message, sending to DLQ",
			"message_id", msg.ID,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
