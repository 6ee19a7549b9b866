package worker

import (
	"context"

	"slackgpt.app/relay/internal/model"
	"slackgpt.app/relay/internal/queue"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// MessageHandler answers inbound Slack messages.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg model.InboundMessage) error
}

// ReactionHandler handles reaction_added events.
type ReactionHandler interface {
	HandleReaction(ctx context.Context, reaction model.Reaction) error
}

// CommandHandler handles slash commands.
type CommandHandler interface {
	Handle(ctx context.Context, cmd model.SlashCommand) error
}

// Handlers routes each task type to its service.
type Handlers struct {
	Messages  MessageHandler
	Reactions ReactionHandler
	Commands  CommandHandler
}
