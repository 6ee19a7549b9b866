package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"slackgpt.app/relay/common/llm"
	"slackgpt.app/relay/common/logger"
	"slackgpt.app/relay/internal/model"
)

var quotedPattern = regexp.MustCompile(`^"(.*)"$`)

var reactionLanguages = map[string]string{
	"jp":      "日本語",
	"flag-jp": "日本語",
	"us":      "英語",
	"flag-us": "英語",
	"flag-tw": "台湾の繁体中国語",
	"cn":      "簡体中国語",
	"flag-cn": "簡体中国語",
	"de":      "ドイツ語",
	"flag-de": "ドイツ語",
	"fr":      "フランス語",
	"flag-fr": "フランス語",
	"es":      "スペイン語",
	"flag-es": "スペイン語",
	"flag-in": "ヒンディー語",
}

// ReactionLanguage maps a flag reaction to the target language name.
func ReactionLanguage(reaction string) (string, bool) {
	lang, ok := reactionLanguages[reaction]
	return lang, ok
}

// MessageReader loads a single message by timestamp.
type MessageReader interface {
	FetchMessage(ctx context.Context, channelID, ts string) (model.ThreadReply, error)
}

// Completer runs a plain, non-streamed completion.
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

type Translator interface {
	HandleReaction(ctx context.Context, reaction model.Reaction) error
}

type translator struct {
	reader MessageReader
	llm    Completer
	poster ThreadPoster
}

func NewTranslator(reader MessageReader, completer Completer, poster ThreadPoster) Translator {
	return &translator{reader: reader, llm: completer, poster: poster}
}

// HandleReaction translates the reacted message into the reaction's language
// and posts the result in the message's thread. Unsupported reactions are
// ignored.
func (t *translator) HandleReaction(ctx context.Context, reaction model.Reaction) error {
	lang, ok := ReactionLanguage(reaction.Name)
	if !ok {
		slog.DebugContext(ctx, "reaction ignored", "reaction", reaction.Name, "reason", "unsupported_language")
		return nil
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ChannelID: logger.Ptr(reaction.ChannelID),
		ThreadTS:  logger.Ptr(reaction.ItemTS),
		Component: "relay.service.translator",
	})
	timer := logger.StartTimer(ctx, "reaction translated")

	translated, err := t.translate(ctx, reaction, lang)
	if err != nil {
		timer.End("status", "error", "language", lang)
		slog.ErrorContext(ctx, "translation failed", "error", err, "language", lang)
		if postErr := t.poster.PostMessage(ctx, reaction.ChannelID, reaction.ItemTS, translationErrorMessage(lang)); postErr != nil {
			slog.ErrorContext(ctx, "failed to notify user about translation error", "error", postErr)
		}
		return nil
	}
	if translated == "" {
		timer.End("status", "skipped", "reason", "no_text")
		return nil
	}

	if err := t.poster.PostMessage(ctx, reaction.ChannelID, reaction.ItemTS, translated); err != nil {
		timer.End("status", "error", "language", lang)
		return fmt.Errorf("posting translation: %w", err)
	}
	timer.End("status", "success", "language", lang)
	return nil
}

func (t *translator) translate(ctx context.Context, reaction model.Reaction, lang string) (string, error) {
	msg, err := t.reader.FetchMessage(ctx, reaction.ChannelID, reaction.ItemTS)
	if err != nil {
		return "", fmt.Errorf("fetching reacted message: %w", err)
	}
	if msg.Text == "" {
		return "", nil
	}

	reply, err := t.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: translationPrompt(lang)},
		{Role: llm.RoleUser, Content: `"` + msg.Text + `"`},
	})
	if err != nil {
		return "", fmt.Errorf("translating: %w", err)
	}
	return CleanTranslation(reply), nil
}

// CleanTranslation trims the model reply and drops one pair of wrapping quotes.
func CleanTranslation(reply string) string {
	return quotedPattern.ReplaceAllString(strings.TrimSpace(reply), "$1")
}

func translationPrompt(lang string) string {
	return "あなたは優秀な翻訳家です。USERから受け取ったメッセージを" + lang +
		"に翻訳して返答します。返答する際に前後に解説をいれたりしません。翻訳したメッセージのみを返信します。会話をするわけではないです。"
}

func translationErrorMessage(lang string) string {
	return "翻訳処理中にエラーが発生しました。(" + lang + "への翻訳)"
}
