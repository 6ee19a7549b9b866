package logger

import (
	"context"
	"unicode/utf8"
)

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so a reply's channel, thread and reply ID
// show up on every log line emitted while that reply is being produced.
type LogFields struct {
	ChannelID *string // Slack channel ID
	ThreadTS  *string // Slack thread timestamp the reply targets
	ReplyID   *int64  // Snowflake ID of one reply/relay run
	MessageID *string // Redis stream message ID
	UserID    *string // Slack user who triggered the event
	EventType *string // Task type (e.g., "slack_message", "slack_reaction")
	Component string  // Component name (OTel semantic convention style, e.g., "relay.stream.relay")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.ChannelID != nil {
		result.ChannelID = new.ChannelID
	}
	if new.ThreadTS != nil {
		result.ThreadTS = new.ThreadTS
	}
	if new.ReplyID != nil {
		result.ReplyID = new.ReplyID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.UserID != nil {
		result.UserID = new.UserID
	}
	if new.EventType != nil {
		result.EventType = new.EventType
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{ChannelID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate cuts s to at most maxLen bytes on a rune boundary, appending "..."
// if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
