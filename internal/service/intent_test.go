package service_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"slackgpt.app/relay/common/llm"
	"slackgpt.app/relay/internal/service"
)

var _ = Describe("IntentClassifier", func() {
	var (
		ctx    context.Context
		client *mockLLM
		seen   llm.Request
	)

	BeforeEach(func() {
		ctx = context.Background()
		client = &mockLLM{}
	})

	answer := func(body string) func(context.Context, llm.Request, any) (*llm.Response, error) {
		return func(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
			seen = req
			return &llm.Response{PromptTokens: 12}, json.Unmarshal([]byte(body), result)
		}
	}

	It("returns the model's decision", func() {
		client.chatFn = answer(`{"should_reply": true}`)

		Expect(service.NewIntentClassifier(client).ShouldReply(ctx, "can you check this?")).To(BeTrue())
		Expect(seen.UserPrompt).To(Equal("can you check this?"))
		Expect(seen.SchemaName).To(Equal("intent_to_reply"))
		Expect(seen.MaxTokens).To(Equal(50))
		Expect(seen.Temperature).NotTo(BeNil())
		Expect(*seen.Temperature).To(BeZero())
		Expect(seen.Schema).NotTo(BeNil())
	})

	It("returns false when the model declines", func() {
		client.chatFn = answer(`{"should_reply": false}`)
		Expect(service.NewIntentClassifier(client).ShouldReply(ctx, "thanks all")).To(BeFalse())
	})

	It("returns false on errors", func() {
		client.chatFn = func(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
			return nil, errors.New("unmarshal response: unexpected end of JSON input")
		}
		Expect(service.NewIntentClassifier(client).ShouldReply(ctx, "hello")).To(BeFalse())
	})
})
