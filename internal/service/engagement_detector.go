package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"slackgpt.app/relay/common/logger"
	"slackgpt.app/relay/internal/model"
)

var chatGPTPattern = regexp.MustCompile(`(?i)chat\s*gpt`)

// ThreadReader reads a thread's replies, root included.
type ThreadReader interface {
	FetchThreadReplies(ctx context.Context, channelID, threadTS string) ([]model.ThreadReply, error)
}

// MemberCounter reports how many members a channel has, 0 when unknown.
type MemberCounter interface {
	MemberCount(ctx context.Context, channelID string) int
}

// IntentDetector decides whether a message in an engaged thread is meant for the bot.
type IntentDetector interface {
	ShouldReply(ctx context.Context, text string) bool
}

type EngagementDetector interface {
	ShouldRespond(ctx context.Context, msg model.InboundMessage) bool
}

type engagementDetector struct {
	botUserID string
	threads   ThreadReader
	members   MemberCounter
	intent    IntentDetector
}

func NewEngagementDetector(botUserID string, threads ThreadReader, members MemberCounter, intent IntentDetector) EngagementDetector {
	return &engagementDetector{
		botUserID: botUserID,
		threads:   threads,
		members:   members,
		intent:    intent,
	}
}

// ShouldRespond applies the reply rules in order: app mentions and DMs always
// get a reply; a message naming the bot gets a reply; in channels, a thread
// the bot was called into earlier asks the intent detector; a two-member
// channel gets a reply for any non-empty text.
func (d *engagementDetector) ShouldRespond(ctx context.Context, msg model.InboundMessage) bool {
	if msg.IsMention || msg.ChannelType == model.ChannelTypeIM {
		return true
	}

	// Slack delivers an app_mention alongside the message event for explicit
	// mentions; that copy is the one answered.
	if strings.Contains(msg.Text, d.mention()) {
		slog.DebugContext(ctx, "explicit mention left to app_mention")
		return false
	}

	if chatGPTPattern.MatchString(msg.Text) {
		slog.DebugContext(ctx, "responding to bot name in message")
		return true
	}

	if msg.ChannelType != model.ChannelTypeChannel && msg.ChannelType != model.ChannelTypeGroup {
		return false
	}

	if msg.ThreadTS != "" && msg.Text != "" && d.mentionedInThread(ctx, msg.ChannelID, msg.ThreadTS) {
		if d.intent.ShouldReply(ctx, msg.Text) {
			slog.InfoContext(ctx, "responding to engaged thread", "reason", "intent_to_reply_in_thread")
			return true
		}
	}

	if msg.Text != "" && d.members.MemberCount(ctx, msg.ChannelID) == 2 {
		slog.DebugContext(ctx, "responding in two-member channel")
		return true
	}

	return false
}

// isBotMentioned reports whether text addresses the bot by mention or by name.
func (d *engagementDetector) isBotMentioned(text string) bool {
	return strings.Contains(text, d.mention()) || chatGPTPattern.MatchString(text)
}

func (d *engagementDetector) mention() string {
	return "<@" + d.botUserID + ">"
}

func (d *engagementDetector) mentionedInThread(ctx context.Context, channelID, threadTS string) bool {
	t := logger.StartTimer(ctx, "fetch_thread_replies_for_mention_check")
	replies, err := d.threads.FetchThreadReplies(ctx, channelID, threadTS)
	if err != nil {
		t.End("status", "error")
		slog.WarnContext(ctx, "thread mention check failed", "error", err)
		return false
	}
	t.End("status", "success")

	for _, r := range replies {
		if r.IsBot || r.UserID == "" || r.UserID == d.botUserID {
			continue
		}
		if d.isBotMentioned(r.Text) {
			return true
		}
	}
	return false
}
