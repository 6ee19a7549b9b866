package queue_test

import (
	"context"
	"encoding/json"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"slackgpt.app/relay/internal/queue"
)

var _ = Describe("Redis stream queue", func() {
	var (
		ctx      context.Context
		mr       *miniredis.Miniredis
		client   *redis.Client
		producer queue.Producer
		consumer *queue.RedisConsumer
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})

		producer = queue.NewRedisProducer(client, "slack-events", nil)
		consumer, err = queue.NewRedisConsumer(client, queue.ConsumerConfig{
			Stream:    "slack-events",
			Group:     "relay-workers",
			Consumer:  "worker-1",
			DLQStream: "slack-events-dlq",
			BatchSize: 10,
			Block:     -1,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = client.Close()
		mr.Close()
	})

	pending := func() int64 {
		p, err := client.XPending(ctx, "slack-events", "relay-workers").Result()
		Expect(err).NotTo(HaveOccurred())
		return p.Count
	}

	It("delivers enqueued tasks", func() {
		traceID := "abc123"
		Expect(producer.Enqueue(ctx, queue.Task{
			TaskType: queue.TaskTypeSlackMessage,
			Payload:  json.RawMessage(`{"channel_id":"C1","text":"hi"}`),
			EventID:  "Ev1",
			TraceID:  &traceID,
		})).To(Succeed())

		messages, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(messages).To(HaveLen(1))

		msg := messages[0]
		Expect(msg.TaskType).To(Equal(queue.TaskTypeSlackMessage))
		Expect(msg.Payload).To(MatchJSON(`{"channel_id":"C1","text":"hi"}`))
		Expect(msg.EventID).To(Equal("Ev1"))
		Expect(msg.TraceID).To(Equal("abc123"))
		Expect(msg.Attempt).To(Equal(1))
		Expect(pending()).To(Equal(int64(1)))

		Expect(consumer.Ack(ctx, msg)).To(Succeed())
		Expect(pending()).To(Equal(int64(0)))
	})

	It("returns nothing when the stream is empty", func() {
		messages, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(messages).To(BeEmpty())
	})

	It("requeues with the next attempt number", func() {
		Expect(producer.Enqueue(ctx, queue.Task{
			TaskType: queue.TaskTypeSlackReaction,
			Payload:  json.RawMessage(`{"reaction":"jp"}`),
		})).To(Succeed())
		messages, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(consumer.Requeue(ctx, messages[0], "slack timeout")).To(Succeed())
		Expect(pending()).To(Equal(int64(0)))

		retried, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(retried).To(HaveLen(1))
		Expect(retried[0].Attempt).To(Equal(2))
		Expect(retried[0].Raw.Values).To(HaveKeyWithValue("last_error", "slack timeout"))
		Expect(retried[0].Payload).To(MatchJSON(`{"reaction":"jp"}`))
	})

	It("moves dead messages to the DLQ", func() {
		Expect(producer.Enqueue(ctx, queue.Task{
			TaskType: queue.TaskTypeSlashCommand,
			Payload:  json.RawMessage(`{"command":"/system-prompt"}`),
			Attempt:  3,
		})).To(Succeed())
		messages, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(consumer.SendDLQ(ctx, messages[0], "boom")).To(Succeed())

		Expect(pending()).To(Equal(int64(0)))
		dead, err := client.XRange(ctx, "slack-events-dlq", "-", "+").Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(dead).To(HaveLen(1))
		Expect(dead[0].Values).To(HaveKeyWithValue("error", "boom"))
		Expect(dead[0].Values).To(HaveKeyWithValue("attempt", "3"))
		Expect(dead[0].Values).To(HaveKeyWithValue("task_type", "slash_command"))
	})

	It("acks and skips entries it cannot parse", func() {
		Expect(client.XAdd(ctx, &redis.XAddArgs{
			Stream: "slack-events",
			Values: map[string]any{"task_type": "gitlab_webhook", "payload": "{}"},
		}).Err()).To(Succeed())

		messages, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(messages).To(BeEmpty())
		Expect(pending()).To(Equal(int64(0)))
	})

	It("rejects tasks without a type or payload", func() {
		Expect(producer.Enqueue(ctx, queue.Task{Payload: json.RawMessage(`{}`)})).To(MatchError(ContainSubstring("missing task type")))
		Expect(producer.Enqueue(ctx, queue.Task{TaskType: queue.TaskTypeSlackMessage})).To(MatchError(ContainSubstring("missing payload")))
	})
})

var _ = Describe("ParseMessage", func() {
	DescribeTable("rejects malformed entries",
		func(values map[string]any, want string) {
			_, err := queue.ParseMessage(redis.XMessage{ID: "1-0", Values: values})
			Expect(err).To(MatchError(ContainSubstring(want)))
		},
		Entry("missing type", map[string]any{"payload": "{}"}, "missing task_type"),
		Entry("missing payload", map[string]any{"task_type": "slack_message"}, "missing payload"),
		Entry("bad json", map[string]any{"task_type": "slack_message", "payload": "{"}, "not valid JSON"),
		Entry("bad attempt", map[string]any{"task_type": "slack_message", "payload": "{}", "attempt": "x"}, "parsing attempt"),
		Entry("unknown type", map[string]any{"task_type": "issue_event", "payload": "{}"}, "unknown task_type"),
	)

	It("defaults the attempt to one", func() {
		msg, err := queue.ParseMessage(redis.XMessage{ID: "1-0", Values: map[string]any{
			"task_type": "slack_message",
			"payload":   `{"text":"hi"}`,
		}})
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Attempt).To(Equal(1))
		Expect(msg.ID).To(Equal("1-0"))
	})
})
