package logger

import (
	"context"
	"log/slog"
	"time"
)

// Timer logs the duration of an operation when ended.
//
//	t := logger.StartTimer(ctx, "openai_stream")
//	defer t.End("status", "success")
type Timer struct {
	ctx   context.Context
	name  string
	start time.Time
}

func StartTimer(ctx context.Context, name string) *Timer {
	return &Timer{ctx: ctx, name: name, start: time.Now()}
}

// End logs the elapsed time along with any extra key/value attributes.
func (t *Timer) End(attrs ...any) {
	args := append([]any{"duration_ms", time.Since(t.start).Milliseconds()}, attrs...)
	slog.InfoContext(t.ctx, t.name, args...)
}
