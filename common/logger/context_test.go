package logger_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"slackgpt.app/relay/common/logger"
)

var _ = Describe("WithLogFields", func() {
	It("merges newer fields over older ones", func() {
		ctx := logger.WithLogFields(context.Background(), logger.LogFields{
			ChannelID: logger.Ptr("C1"),
			Component: "relay.worker",
		})
		ctx = logger.WithLogFields(ctx, logger.LogFields{
			ThreadTS:  logger.Ptr("1.0"),
			Component: "relay.service.reply",
		})

		fields := logger.GetLogFields(ctx)
		Expect(*fields.ChannelID).To(Equal("C1"))
		Expect(*fields.ThreadTS).To(Equal("1.0"))
		Expect(fields.Component).To(Equal("relay.service.reply"))
		Expect(fields.UserID).To(BeNil())
	})

	It("returns empty fields for a bare context", func() {
		Expect(logger.GetLogFields(context.Background())).To(Equal(logger.LogFields{}))
	})
})

var _ = DescribeTable("Truncate",
	func(input string, maxLen int, expected string) {
		Expect(logger.Truncate(input, maxLen)).To(Equal(expected))
	},
	Entry("short string unchanged", "hello", 10, "hello"),
	Entry("ascii cut", "hello world", 5, "hello..."),
	Entry("cut backs off to a rune start", "こんにちは", 4, "こ..."),
)
