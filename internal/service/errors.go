package service

import (
	"errors"
	"fmt"

	"slackgpt.app/relay/common/llm"
	"slackgpt.app/relay/internal/brain"
	"slackgpt.app/relay/internal/slackclient"
	"slackgpt.app/relay/internal/stream"
)

// User-facing replies posted in the thread when a reply fails.
const (
	msgAPIError     = "ごめんなさい、今ちょっと調子が悪いみたいです。また後でお話しできますか？"
	msgThreadLength = "新しいスレッドで続きをお話ししませんか？"
	msgRateLimited  = "今アクセスが集中しているみたいです。少し経ってからまたお話ししましょう。"
	msgGeneric      = "ごめんなさい、うまく動作できませんでした。また後でお話しできますか？"
	msgUnknown      = "なんだか調子が悪いみたいです。また後でお話しできますか？"
)

// ThreadLengthError reports that the provider rejected the context as too
// long for the model.
type ThreadLengthError struct {
	Err error
}

func (e *ThreadLengthError) Error() string {
	return fmt.Sprintf("thread too long: %v", e.Err)
}

func (e *ThreadLengthError) Unwrap() error {
	return e.Err
}

// RateLimitError reports a 429 from Slack or the model provider.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// classify lifts provider sentinels into the typed errors UserMessage knows.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, llm.ErrContextLengthExceeded):
		return &ThreadLengthError{Err: err}
	case errors.Is(err, llm.ErrRateLimited), errors.Is(err, slackclient.ErrRateLimited):
		return &RateLimitError{Err: err}
	}
	return err
}

// UserMessage picks the reply shown to the user for a failed request.
func UserMessage(err error) string {
	if err == nil {
		return msgUnknown
	}

	var (
		threadErr   *ThreadLengthError
		rateErr     *RateLimitError
		upstreamErr *brain.UpstreamFetchError
		streamErr   *stream.StreamError
		publishErr  *stream.PublishError
	)
	switch {
	case errors.As(err, &threadErr):
		return msgThreadLength
	case errors.As(err, &rateErr):
		return msgRateLimited
	case errors.As(err, &upstreamErr), errors.As(err, &streamErr), errors.As(err, &publishErr):
		return msgAPIError
	}
	return msgGeneric
}
