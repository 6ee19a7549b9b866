package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"slackgpt.app/relay/internal/model"
	"slackgpt.app/relay/internal/queue"
)

// ErrInvalidEvent is returned for event payloads that cannot be decoded.
var ErrInvalidEvent = errors.New("invalid slack event")

type EventIngestParams struct {
	EventID   string
	EventType string
	Event     json.RawMessage
	TraceID   *string
}

type EventIngestResult struct {
	TaskType queue.TaskType
	Enqueued bool
	Reason   string // why the event was dropped, when not enqueued
}

// EventIngestService filters Slack callbacks and queues the ones the worker
// must handle.
type EventIngestService interface {
	Ingest(ctx context.Context, params EventIngestParams) (*EventIngestResult, error)
	IngestCommand(ctx context.Context, cmd model.SlashCommand, traceID *string) (*EventIngestResult, error)
}

type eventIngestService struct {
	botUserID string
	queue     queue.Producer
	logger    *slog.Logger
}

func NewEventIngestService(botUserID string, producer queue.Producer, logger *slog.Logger) EventIngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &eventIngestService{
		botUserID: botUserID,
		queue:     producer,
		logger:    logger,
	}
}

func (s *eventIngestService) Ingest(ctx context.Context, params EventIngestParams) (*EventIngestResult, error) {
	var ev SlackEvent
	if err := json.Unmarshal(params.Event, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	eventType := params.EventType
	if eventType == "" {
		eventType = ev.Type
	}

	var (
		taskType queue.TaskType
		payload  any
	)
	switch eventType {
	case EventTypeMessage:
		msg, ok := NormalizeMessage(ev, s.botUserID)
		if !ok {
			return s.drop(ctx, eventType, "ignored_message"), nil
		}
		taskType, payload = queue.TaskTypeSlackMessage, msg

	case EventTypeAppMention:
		msg, ok := NormalizeAppMention(ev, s.botUserID)
		if !ok {
			return s.drop(ctx, eventType, "ignored_mention"), nil
		}
		taskType, payload = queue.TaskTypeSlackMessage, msg

	case EventTypeReactionAdded:
		reaction, ok := NormalizeReaction(ev)
		if !ok {
			return s.drop(ctx, eventType, "non_message_reaction"), nil
		}
		if _, supported := ReactionLanguage(reaction.Name); !supported {
			return s.drop(ctx, eventType, "unsupported_reaction"), nil
		}
		taskType, payload = queue.TaskTypeSlackReaction, reaction

	default:
		return s.drop(ctx, eventType, "unhandled_event_type"), nil
	}

	if err := s.enqueue(ctx, taskType, params.EventID, payload, params.TraceID); err != nil {
		return nil, err
	}
	return &EventIngestResult{TaskType: taskType, Enqueued: true}, nil
}

func (s *eventIngestService) IngestCommand(ctx context.Context, cmd model.SlashCommand, traceID *string) (*EventIngestResult, error) {
	if cmd.Command != SystemPromptCommandName {
		return s.drop(ctx, cmd.Command, "unhandled_command"), nil
	}
	if cmd.ChannelID == "" || cmd.UserID == "" {
		return nil, fmt.Errorf("%w: command without channel or user", ErrInvalidEvent)
	}
	if err := s.enqueue(ctx, queue.TaskTypeSlashCommand, "", cmd, traceID); err != nil {
		return nil, err
	}
	return &EventIngestResult{TaskType: queue.TaskTypeSlashCommand, Enqueued: true}, nil
}

func (s *eventIngestService) enqueue(ctx context.Context, taskType queue.TaskType, eventID string, payload any, traceID *string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", taskType, err)
	}
	if err := s.queue.Enqueue(ctx, queue.Task{
		TaskType: taskType,
		Payload:  raw,
		EventID:  eventID,
		TraceID:  traceID,
		Attempt:  1,
	}); err != nil {
		return fmt.Errorf("enqueueing %s: %w", taskType, err)
	}
	return nil
}

func (s *eventIngestService) drop(ctx context.Context, eventType, reason string) *EventIngestResult {
	s.logger.DebugContext(ctx, "slack event dropped", "event_type", eventType, "reason", reason)
	return &EventIngestResult{Reason: reason}
}
