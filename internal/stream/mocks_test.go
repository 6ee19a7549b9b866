package stream_test

import (
	"context"
	"sync"

	"slackgpt.app/relay/internal/model"
)

type mockSink struct {
	mu       sync.Mutex
	createFn func(ctx context.Context, channelID, threadTS, text string) (model.MessageHandle, error)
	updateFn func(ctx context.Context, handle model.MessageHandle, text string) error

	creates   int
	updates   int
	published []string
}

func (m *mockSink) CreateMessage(ctx context.Context, channelID, threadTS, text string) (model.MessageHandle, error) {
	if m.createFn != nil {
		h, err := m.createFn(ctx, channelID, threadTS, text)
		if err != nil {
			return h, err
		}
		m.record(text, true)
		return h, nil
	}
	m.record(text, true)
	return model.MessageHandle{ChannelID: channelID, Timestamp: "1700000000.000900"}, nil
}

func (m *mockSink) UpdateMessage(ctx context.Context, handle model.MessageHandle, text string) error {
	if m.updateFn != nil {
		if err := m.updateFn(ctx, handle, text); err != nil {
			return err
		}
	}
	m.record(text, false)
	return nil
}

func (m *mockSink) record(text string, create bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if create {
		m.creates++
	} else {
		m.updates++
	}
	m.published = append(m.published, text)
}

func (m *mockSink) Creates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates
}

func (m *mockSink) Updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

func (m *mockSink) Published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.published))
	copy(out, m.published)
	return out
}
