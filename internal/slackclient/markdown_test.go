package slackclient_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"slackgpt.app/relay/internal/slackclient"
)

var _ = Describe("ToMrkdwn", func() {
	DescribeTable("converts Markdown to Slack mrkdwn",
		func(input, expected string) {
			Expect(slackclient.ToMrkdwn(input)).To(Equal(expected))
		},
		Entry("empty", "", ""),
		Entry("plain text", "こんにちは", "こんにちは"),
		Entry("bold and italic", "**bold** and *italic*", "*bold* and _italic_"),
		Entry("strikethrough", "~~gone~~", "~gone~"),
		Entry("link", "[Go](https://go.dev)", "<https://go.dev|Go>"),
		Entry("heading", "# Title\n\nbody", "*Title*\n\nbody"),
		Entry("bullet list", "- a\n- b", "• a\n• b"),
		Entry("ordered list", "1. one\n2. two", "1. one\n2. two"),
		Entry("nested list", "- a\n    - b", "• a\n    • b"),
		Entry("fenced code", "```go\nfmt.Println(1)\n```", "```\nfmt.Println(1)\n```"),
		Entry("code span keeps markers", "`a*b*`", "`a*b*`"),
		Entry("blockquote", "> quoted\n> more", "> quoted\n> more"),
		Entry("escapes control characters", "a < b & c", "a &lt; b &amp; c"),
		Entry("unfinished bold while streaming", "**unfinished", "**unfinished"),
	)
})
