package service_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"slackgpt.app/relay/internal/brain"
	"slackgpt.app/relay/internal/service"
	"slackgpt.app/relay/internal/stream"
)

var _ = Describe("UserMessage", func() {
	DescribeTable("picks the user-facing reply",
		func(err error, want string) {
			Expect(service.UserMessage(err)).To(Equal(want))
		},
		Entry("nil error", nil, "なんだか調子が悪いみたいです。また後でお話しできますか？"),
		Entry("thread too long", &service.ThreadLengthError{Err: errors.New("too long")},
			"新しいスレッドで続きをお話ししませんか？"),
		Entry("wrapped thread too long", fmt.Errorf("reply: %w", &service.ThreadLengthError{Err: errors.New("x")}),
			"新しいスレッドで続きをお話ししませんか？"),
		Entry("rate limited", &service.RateLimitError{Err: errors.New("429")},
			"今アクセスが集中しているみたいです。少し経ってからまたお話ししましょう。"),
		Entry("thread fetch failed", &brain.UpstreamFetchError{Source: "thread_replies", Err: errors.New("boom")},
			"ごめんなさい、今ちょっと調子が悪いみたいです。また後でお話しできますか？"),
		Entry("stream broke", &stream.StreamError{Err: errors.New("eof")},
			"ごめんなさい、今ちょっと調子が悪いみたいです。また後でお話しできますか？"),
		Entry("publish failed", &stream.PublishError{Op: "update", Err: errors.New("slack")},
			"ごめんなさい、今ちょっと調子が悪いみたいです。また後でお話しできますか？"),
		Entry("anything else", errors.New("surprise"),
			"ごめんなさい、うまく動作できませんでした。また後でお話しできますか？"),
	)
})
