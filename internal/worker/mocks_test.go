package worker_test

import (
	"context"
	"sync"

	"slackgpt.app/relay/internal/model"
	"slackgpt.app/relay/internal/queue"
)

type mockConsumer struct {
	mu       sync.Mutex
	batches  [][]queue.Message
	acked    []string
	requeued []string
	dead     map[string]string
}

func (m *mockConsumer) Read(ctx context.Context) ([]queue.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.batches) == 0 {
		return nil, nil
	}
	batch := m.batches[0]
	m.batches = m.batches[1:]
	return batch, nil
}

func (m *mockConsumer) Ack(ctx context.Context, msg queue.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, msg.ID)
	return nil
}

func (m *mockConsumer) Requeue(ctx context.Context, msg queue.Message, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requeued = append(m.requeued, msg.ID)
	return nil
}

func (m *mockConsumer) SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dead == nil {
		m.dead = map[string]string{}
	}
	m.dead[msg.ID] = errMsg
	return nil
}

func (m *mockConsumer) Acked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acked...)
}

type mockMessages struct {
	mu   sync.Mutex
	err  error
	seen []model.InboundMessage
}

func (m *mockMessages) HandleMessage(ctx context.Context, msg model.InboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, msg)
	return m.err
}

type mockReactions struct {
	err  error
	seen []model.Reaction
}

func (m *mockReactions) HandleReaction(ctx context.Context, reaction model.Reaction) error {
	m.seen = append(m.seen, reaction)
	return m.err
}

type mockCommands struct {
	seen []model.SlashCommand
	fn   func(cmd model.SlashCommand) error
}

func (m *mockCommands) Handle(ctx context.Context, cmd model.SlashCommand) error {
	m.seen = append(m.seen, cmd)
	if m.fn != nil {
		return m.fn(cmd)
	}
	return nil
}
