package stream

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"slackgpt.app/relay/internal/model"
)

// RelayState is the mutable state of one reply. The consuming loop appends to
// it while the publisher snapshots and marks publishes, so every access goes
// through the mutex.
type RelayState struct {
	mu sync.Mutex

	target      model.ReplyTarget
	accumulated strings.Builder
	runes       int
	published   string
	handle      *model.MessageHandle
	publishes   int
	halted      bool

	lastRequestAt    time.Time
	runesAtRequest   int
	bytesAtPublished int
}

func NewRelayState(target model.ReplyTarget, start time.Time) *RelayState {
	return &RelayState{target: target, lastRequestAt: start}
}

func (s *RelayState) Target() model.ReplyTarget {
	return s.target
}

// Append adds a chunk to the accumulated text.
func (s *RelayState) Append(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accumulated.WriteString(text)
	s.runes += utf8.RuneCountInString(text)
}

// Snapshot returns the accumulated and the last published text. The published
// text is always a prefix of the accumulated text.
func (s *RelayState) Snapshot() (accumulated, published string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accumulated.String(), s.published
}

// Handle returns the posted message, nil until the first publish succeeds.
func (s *RelayState) Handle() *model.MessageHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil
	}
	h := *s.handle
	return &h
}

// Publishes counts successful create/update calls.
func (s *RelayState) Publishes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.publishes
}

// PendingBytes is the number of bytes not yet visible.
func (s *RelayState) PendingBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accumulated.Len() - s.bytesAtPublished
}

func (s *RelayState) throttleState(now time.Time) ThrottleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ThrottleState{
		LastPublishAt: s.lastRequestAt,
		Now:           now,
		DeltaLen:      s.runes - s.runesAtRequest,
		PendingBytes:  s.accumulated.Len() - s.bytesAtPublished,
	}
}

// markRequested restarts the throttle window.
func (s *RelayState) markRequested(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRequestAt = now
	s.runesAtRequest = s.runes
}

// halt stops later publishes. A publish already talking to the sink finishes.
func (s *RelayState) halt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halted = true
}

// pending returns what a publish should send and where. ok is false once the
// relay has halted.
func (s *RelayState) pending() (text, published string, handle *model.MessageHandle, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accumulated.String(), s.published, s.handle, !s.halted
}

// markPublished records a successful publish of text. handle is only set by
// the first publish.
func (s *RelayState) markPublished(text string, handle *model.MessageHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = text
	s.bytesAtPublished = len(text)
	s.publishes++
	if s.handle == nil && handle != nil {
		s.handle = handle
	}
}
