package service

import (
	"context"
	"log/slog"

	"slackgpt.app/relay/common/llm"
	"slackgpt.app/relay/common/logger"
)

const intentSystemPrompt = `あなたは、Slackの会話を分析するアシスタントです。ユーザーからのメッセージが、AIアシスタントであるあなた自身に向けられた質問や要求を含んでいるかどうかを判断してください。
もしこの会話が、あなたとユーザーの二人だけで行われているスレッド内のメッセージであれば、そのユーザーのメッセージはあなたに向けられている可能性がより高いと考慮してください。
判断結果は、必ず {"should_reply": boolean} のJSON形式で返してください。`

type intentResult struct {
	ShouldReply bool `json:"should_reply" jsonschema:"description=true when the message asks the assistant for something"`
}

type intentClassifier struct {
	llm    llm.Client
	schema any
}

// NewIntentClassifier asks the model whether a message is addressed to the bot.
func NewIntentClassifier(client llm.Client) IntentDetector {
	return &intentClassifier{
		llm:    client,
		schema: llm.GenerateSchema[intentResult](),
	}
}

// ShouldReply returns false on any model or decoding failure.
func (c *intentClassifier) ShouldReply(ctx context.Context, text string) bool {
	var result intentResult
	resp, err := c.llm.Chat(ctx, llm.Request{
		SystemPrompt: intentSystemPrompt,
		UserPrompt:   text,
		SchemaName:   "intent_to_reply",
		Schema:       c.schema,
		MaxTokens:    50,
		Temperature:  llm.Temp(0),
	}, &result)
	if err != nil {
		slog.WarnContext(ctx, "intent classification failed", "error", err)
		return false
	}

	slog.DebugContext(ctx, "intent classified",
		"text", logger.Truncate(text, 120),
		"should_reply", result.ShouldReply,
		"prompt_tokens", resp.PromptTokens)
	return result.ShouldReply
}
