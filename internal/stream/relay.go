package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"slackgpt.app/relay/common/llm"
	"slackgpt.app/relay/common/logger"
	"slackgpt.app/relay/internal/model"
)

// Phase is the lifecycle stage of one relay run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStreaming
	PhaseFlushing
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStreaming:
		return "streaming"
	case PhaseFlushing:
		return "flushing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes a finished relay.
type Result struct {
	Text      string
	Handle    *model.MessageHandle // nil when the stream produced no text
	Publishes int
}

// Relay republishes a streamed model reply as a throttled sequence of
// create/update calls on one Slack message.
type Relay struct {
	Throttle  Throttle
	Publisher *Publisher

	// Now defaults to time.Now.
	Now func() time.Time
	// OnPhase, when set, observes every phase transition.
	OnPhase func(Phase)
	// OnState, when set, receives the state once the run starts.
	OnState func(*RelayState)
}

func NewRelay(throttle Throttle, publisher *Publisher) *Relay {
	return &Relay{Throttle: throttle, Publisher: publisher}
}

// Run consumes chunks until the channel closes, publishing whenever the
// throttle says so, then flushes the full text. Publishing never blocks chunk
// consumption: a single background publisher picks up the latest text each
// time it is signalled.
//
// A chunk carrying an error, or ctx cancellation, stops the run without a
// final flush and returns *StreamError (or the context error). A failed
// publish returns *PublishError; the caller is expected to cancel the
// upstream stream. Whatever was already published stays visible.
func (r *Relay) Run(ctx context.Context, target model.ReplyTarget, chunks <-chan llm.Chunk) (*Result, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ChannelID: logger.Ptr(target.ChannelID),
		ThreadTS:  logger.Ptr(target.ThreadTS),
		Component: "relay.stream.relay",
	})
	sc := logger.StartSpan(ctx, "stream.relay")
	defer sc.End()
	ctx = sc.Context()

	now := r.Now
	if now == nil {
		now = time.Now
	}

	phase := PhaseIdle
	setPhase := func(p Phase) {
		phase = p
		if r.OnPhase != nil {
			r.OnPhase(p)
		}
	}
	setPhase(PhaseIdle)

	start := now()
	state := NewRelayState(target, start)
	if r.OnState != nil {
		r.OnState(state)
	}

	due := make(chan struct{}, 1)
	stop := make(chan struct{})
	pubErr := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			case _, ok := <-due:
				if !ok {
					return
				}
				select {
				case <-stop:
					return
				default:
				}
				if err := r.Publisher.Publish(ctx, state); err != nil {
					pubErr <- err
					return
				}
			}
		}
	}()

	fail := func(err error) (*Result, error) {
		from := phase
		state.halt()
		close(stop)
		wg.Wait()
		setPhase(PhaseFailed)
		sc.RecordError(err)
		accumulated, published := state.Snapshot()
		slog.WarnContext(ctx, "relay failed",
			"error", err,
			"phase", from.String(),
			"accumulated_bytes", len(accumulated),
			"published_bytes", len(published))
		return r.result(state), err
	}

	setPhase(PhaseStreaming)
	chunkCount := 0
consume:
	for {
		select {
		case err := <-pubErr:
			return fail(err)
		case <-ctx.Done():
			return fail(ctx.Err())
		case c, ok := <-chunks:
			if !ok {
				break consume
			}
			if c.Err != nil {
				return fail(&StreamError{Err: c.Err})
			}
			if c.Text == "" {
				continue
			}
			chunkCount++
			state.Append(c.Text)

			t := now()
			if r.Throttle.ShouldPublish(state.throttleState(t)) {
				state.markRequested(t)
				select {
				case due <- struct{}{}:
				default:
				}
			}
		}
	}

	setPhase(PhaseFlushing)
	close(due)
	wg.Wait()
	select {
	case err := <-pubErr:
		setPhase(PhaseFailed)
		sc.RecordError(err)
		return r.result(state), err
	default:
	}

	if err := r.Publisher.Publish(ctx, state); err != nil {
		setPhase(PhaseFailed)
		sc.RecordError(err)
		return r.result(state), err
	}

	setPhase(PhaseDone)
	res := r.result(state)
	sc.SetAttributes(
		attribute.Int("relay.chunks", chunkCount),
		attribute.Int("relay.publishes", res.Publishes),
		attribute.Int("relay.bytes", len(res.Text)),
	)
	slog.InfoContext(ctx, "relay completed",
		"chunks", chunkCount,
		"publishes", res.Publishes,
		"bytes", len(res.Text),
		"duration_ms", now().Sub(start).Milliseconds())

	return res, nil
}

func (r *Relay) result(state *RelayState) *Result {
	_, published := state.Snapshot()
	return &Result{
		Text:      published,
		Handle:    state.Handle(),
		Publishes: state.Publishes(),
	}
}
