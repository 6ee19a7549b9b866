package slackclient

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// ChannelLimiter paces write calls per channel. Slack allows roughly one
// chat.postMessage/chat.update per second per channel.
type ChannelLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	limit    rate.Limit
	burst    int
}

func NewChannelLimiter(perSecond float64, burst int) *ChannelLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &ChannelLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Wait blocks until a write to channelID is allowed or ctx is done.
func (l *ChannelLimiter) Wait(ctx context.Context, channelID string) error {
	return l.limiterFor(channelID).Wait(ctx)
}

func (l *ChannelLimiter) limiterFor(channelID string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[channelID]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.limiters[channelID]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.limit, l.burst)
	l.limiters[channelID] = limiter
	return limiter
}
