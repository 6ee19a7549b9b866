package stream

import "time"

// Default throttle thresholds.
const (
	DefaultUpdateInterval = 2 * time.Second
	DefaultMinDelta       = 50
	DefaultMaxBuffer      = 8 * 1024
)

// Throttle decides when a partially streamed reply is due for publication.
type Throttle struct {
	Interval  time.Duration // minimum time between publishes
	MinDelta  int           // characters that must accumulate before an interval publish
	MaxBuffer int           // unpublished bytes that force a publish regardless of time
}

// DefaultThrottle returns the thresholds used in production.
func DefaultThrottle() Throttle {
	return Throttle{
		Interval:  DefaultUpdateInterval,
		MinDelta:  DefaultMinDelta,
		MaxBuffer: DefaultMaxBuffer,
	}
}

// ThrottleState is the relay's view at the moment a chunk arrived.
type ThrottleState struct {
	LastPublishAt time.Time
	Now           time.Time
	DeltaLen      int // characters appended since the last publish was requested
	PendingBytes  int // bytes appended since the last successful publish
}

// ShouldPublish reports whether a publish is due: enough time has passed and
// enough text has accumulated, or the unpublished buffer is full.
func (t Throttle) ShouldPublish(s ThrottleState) bool {
	if t.MaxBuffer > 0 && s.PendingBytes >= t.MaxBuffer {
		return true
	}
	return s.Now.Sub(s.LastPublishAt) > t.Interval && s.DeltaLen > t.MinDelta
}
