package service_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"slackgpt.app/relay/internal/model"
	"slackgpt.app/relay/internal/service"
)

const botID = "UBOT"

var _ = Describe("EngagementDetector", func() {
	var (
		ctx      context.Context
		threads  *mockThreadReader
		members  *mockMemberCounter
		intent   *mockIntent
		detector service.EngagementDetector
	)

	BeforeEach(func() {
		ctx = context.Background()
		threads = &mockThreadReader{}
		members = &mockMemberCounter{count: 5}
		intent = &mockIntent{}
		detector = service.NewEngagementDetector(botID, threads, members, intent)
	})

	DescribeTable("top-level rules",
		func(msg model.InboundMessage, memberCount int, want bool) {
			members.count = memberCount
			Expect(detector.ShouldRespond(ctx, msg)).To(Equal(want))
		},
		Entry("app mention", model.InboundMessage{ChannelType: model.ChannelTypeChannel, Text: "hi", IsMention: true}, 5, true),
		Entry("direct message", model.InboundMessage{ChannelType: model.ChannelTypeIM, Text: "hi"}, 5, true),
		Entry("explicit mention on a message event", model.InboundMessage{ChannelType: model.ChannelTypeChannel, Text: "<@UBOT> hi"}, 2, false),
		Entry("bot name", model.InboundMessage{ChannelType: model.ChannelTypeChannel, Text: "hey ChatGPT, help"}, 5, true),
		Entry("bot name with a space", model.InboundMessage{ChannelType: model.ChannelTypeGroup, Text: "chat gpt?"}, 5, true),
		Entry("bot name in mpim", model.InboundMessage{ChannelType: model.ChannelTypeMPIM, Text: "chatgpt"}, 5, true),
		Entry("mpim without bot name", model.InboundMessage{ChannelType: model.ChannelTypeMPIM, Text: "hello"}, 2, false),
		Entry("two-member channel", model.InboundMessage{ChannelType: model.ChannelTypeChannel, Text: "hello"}, 2, true),
		Entry("two-member channel with empty text", model.InboundMessage{ChannelType: model.ChannelTypeChannel}, 2, false),
		Entry("busy channel", model.InboundMessage{ChannelType: model.ChannelTypeChannel, Text: "hello"}, 5, false),
		Entry("member count unknown", model.InboundMessage{ChannelType: model.ChannelTypeChannel, Text: "hello"}, 0, false),
	)

	Context("in a thread", func() {
		var msg model.InboundMessage

		BeforeEach(func() {
			msg = model.InboundMessage{
				ChannelID:   "C1",
				ChannelType: model.ChannelTypeChannel,
				Text:        "what about tomorrow?",
				Timestamp:   "1700000010.000000",
				ThreadTS:    "1700000000.000000",
			}
		})

		It("asks the intent detector when a user called the bot earlier", func() {
			threads.fetchFn = func(ctx context.Context, channelID, threadTS string) ([]model.ThreadReply, error) {
				Expect(channelID).To(Equal("C1"))
				Expect(threadTS).To(Equal("1700000000.000000"))
				return []model.ThreadReply{
					{UserID: "U1", Text: "<@UBOT> weather today?"},
					{UserID: botID, IsBot: true, Text: "sunny"},
				}, nil
			}
			intent.reply = true

			Expect(detector.ShouldRespond(ctx, msg)).To(BeTrue())
			Expect(intent.texts).To(Equal([]string{"what about tomorrow?"}))
		})

		It("falls through to the member count when intent says no", func() {
			threads.fetchFn = func(ctx context.Context, channelID, threadTS string) ([]model.ThreadReply, error) {
				return []model.ThreadReply{{UserID: "U1", Text: "chatgpt summarize"}}, nil
			}
			intent.reply = false

			Expect(detector.ShouldRespond(ctx, msg)).To(BeFalse())
			Expect(intent.texts).To(HaveLen(1))
			Expect(members.calls).To(Equal(1))
		})

		It("ignores mentions written by bots", func() {
			threads.fetchFn = func(ctx context.Context, channelID, threadTS string) ([]model.ThreadReply, error) {
				return []model.ThreadReply{
					{UserID: "B1", IsBot: true, Text: "<@UBOT> ping"},
					{UserID: botID, Text: "ChatGPT here"},
					{Text: "chatgpt"},
				}, nil
			}
			intent.reply = true

			Expect(detector.ShouldRespond(ctx, msg)).To(BeFalse())
			Expect(intent.texts).To(BeEmpty())
		})

		It("treats thread read failures as not engaged", func() {
			threads.fetchFn = func(ctx context.Context, channelID, threadTS string) ([]model.ThreadReply, error) {
				return nil, errors.New("ratelimited")
			}
			intent.reply = true

			Expect(detector.ShouldRespond(ctx, msg)).To(BeFalse())
			Expect(intent.texts).To(BeEmpty())
		})

		It("skips the thread lookup for empty text", func() {
			msg.Text = ""
			Expect(detector.ShouldRespond(ctx, msg)).To(BeFalse())
			Expect(threads.calls).To(Equal(0))
		})
	})
})
