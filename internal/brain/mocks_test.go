package brain_test

import (
	"context"

	"slackgpt.app/relay/internal/model"
)

type mockPromptSource struct {
	getFn func(ctx context.Context, channelID string) (string, error)
}

func (m *mockPromptSource) Get(ctx context.Context, channelID string) (string, error) {
	if m.getFn != nil {
		return m.getFn(ctx, channelID)
	}
	return "", nil
}

type mockThreadFetcher struct {
	fetchFn func(ctx context.Context, channelID, threadTS string) ([]model.ThreadReply, error)
	calls   int
}

func (m *mockThreadFetcher) FetchThreadReplies(ctx context.Context, channelID, threadTS string) ([]model.ThreadReply, error) {
	m.calls++
	if m.fetchFn != nil {
		return m.fetchFn(ctx, channelID, threadTS)
	}
	return nil, nil
}

type mockImageLoader struct {
	loadFn func(ctx context.Context, files []model.File) []string
}

func (m *mockImageLoader) Load(ctx context.Context, files []model.File) []string {
	if m.loadFn != nil {
		return m.loadFn(ctx, files)
	}
	return nil
}
