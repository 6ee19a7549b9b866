package stream

import (
	"context"
	"log/slog"
	"sync"

	"slackgpt.app/relay/internal/model"
)

// MessageSink creates and edits the visible reply message.
type MessageSink interface {
	CreateMessage(ctx context.Context, channelID, threadTS, text string) (model.MessageHandle, error)
	UpdateMessage(ctx context.Context, handle model.MessageHandle, text string) error
}

// KeyedMutex provides one mutex per key. Entries are reference counted and
// removed once no goroutine holds or waits for them.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock function.
func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Len reports how many keys are currently held or awaited.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// Publisher pushes the accumulated reply text to the sink, one call at a time
// per reply target. The first publish creates the message, later ones edit it.
type Publisher struct {
	sink  MessageSink
	locks *KeyedMutex
}

func NewPublisher(sink MessageSink, locks *KeyedMutex) *Publisher {
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &Publisher{sink: sink, locks: locks}
}

// Publish makes the current accumulated text visible. It is a no-op when
// nothing changed since the last successful publish or the relay has halted.
// Errors are returned as
// *PublishError and are not retried.
func (p *Publisher) Publish(ctx context.Context, state *RelayState) error {
	target := state.Target()
	unlock := p.locks.Lock(target.Key())
	defer unlock()

	text, published, handle, ok := state.pending()
	if !ok || text == published {
		return nil
	}

	if handle == nil {
		h, err := p.sink.CreateMessage(ctx, target.ChannelID, target.ThreadTS, text)
		if err != nil {
			return &PublishError{Op: "create", Err: err}
		}
		state.markPublished(text, &h)
		slog.DebugContext(ctx, "reply message created", "ts", h.Timestamp, "bytes", len(text))
		return nil
	}

	if err := p.sink.UpdateMessage(ctx, *handle, text); err != nil {
		return &PublishError{Op: "update", Err: err}
	}
	state.markPublished(text, nil)
	slog.DebugContext(ctx, "reply message updated", "ts", handle.Timestamp, "bytes", len(text))
	return nil
}
