package service

import (
	"context"
	"log/slog"

	"slackgpt.app/relay/common/cache"
)

// ChannelDirectory is the Slack surface ChannelInfo reads through.
type ChannelDirectory interface {
	ChannelName(ctx context.Context, channelID string) (string, error)
	ChannelMemberCount(ctx context.Context, channelID string) (int, error)
}

// ChannelInfo caches channel names and member counts.
type ChannelInfo struct {
	dir     ChannelDirectory
	names   *cache.TTLCache[string]
	members *cache.TTLCache[int]
}

func NewChannelInfo(dir ChannelDirectory, names *cache.TTLCache[string], members *cache.TTLCache[int]) *ChannelInfo {
	return &ChannelInfo{dir: dir, names: names, members: members}
}

// ChannelName returns the cached channel name. Lookup failures are logged and
// yield "" so prompt keys degrade to "<channelID>:".
func (c *ChannelInfo) ChannelName(ctx context.Context, channelID string) string {
	name, err := c.names.GetOrFetch(ctx, channelID, func(ctx context.Context) (string, error) {
		return c.dir.ChannelName(ctx, channelID)
	})
	if err != nil {
		slog.WarnContext(ctx, "channel name lookup failed", "channel", channelID, "error", err)
		return ""
	}
	return name
}

// MemberCount returns the cached member count, or 0 when the lookup fails.
func (c *ChannelInfo) MemberCount(ctx context.Context, channelID string) int {
	count, err := c.members.GetOrFetch(ctx, channelID, func(ctx context.Context) (int, error) {
		return c.dir.ChannelMemberCount(ctx, channelID)
	})
	if err != nil {
		slog.WarnContext(ctx, "channel member count lookup failed", "channel", channelID, "error", err)
		return 0
	}
	return count
}
