// Package monitor runs the capture loop: frames from a gaze.Source go
// through a gaze.Tracker and confirmed look-aways are delivered to a Sink.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"lookaway/internal/gaze"
	"lookaway/internal/logging"
)

// Sink receives confirmed look-away events.
type Sink interface {
	LookAway(ctx context.Context, ev gaze.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev gaze.Event) error

func (f SinkFunc) LookAway(ctx context.Context, ev gaze.Event) error {
	return f(ctx, ev)
}

// Frame describes one processed reading. Looking is the raw classification
// of the frame; State.Current is the debounced latch.
type Frame struct {
	At      time.Time
	Found   bool
	Looking gaze.Direction
	State   gaze.State
	Event   *gaze.Event
}

// Monitor owns a tracker and must be run from a single goroutine.
type Monitor struct {
	cfg     gaze.Config
	source  gaze.Source
	sink    Sink
	tracker *gaze.Tracker
	now     func() time.Time
	onFrame func(Frame)
}

type Option func(*Monitor)

// WithClock replaces time.Now for readings without their own timestamp.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithFrameHook is called after every reading, events included.
func WithFrameHook(fn func(Frame)) Option {
	return func(m *Monitor) { m.onFrame = fn }
}

func New(cfg gaze.Config, source gaze.Source, sink Sink, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:     cfg,
		source:  source,
		sink:    sink,
		tracker: gaze.NewTracker(cfg),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run processes frames until the source is exhausted or ctx is cancelled,
// both of which are a normal stop. A sink failure ends the run with an
// error. The final tracker state is returned either way.
func (m *Monitor) Run(ctx context.Context) (gaze.State, error) {
	logger := logging.FromContext(ctx)

	for {
		r, err := m.source.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return m.tracker.State(), nil
			}
			return m.tracker.State(), fmt.Errorf("failed to read frame: %w", err)
		}

		now := r.At
		if now.IsZero() {
			now = m.now()
		}

		frame := Frame{At: now, Found: r.Found}
		if r.Found {
			frame.Looking = gaze.Classify(r.Yaw, m.cfg.Threshold)
		}

		ev, ok := m.tracker.Observe(r, now)
		if ok {
			frame.Event = &ev
			logger.Debug("Look-away detected",
				slog.String("direction", ev.Direction.String()),
				slog.Float64("yaw", ev.Yaw),
				slog.Int("total", ev.Total))
			if err := m.sink.LookAway(ctx, ev); err != nil {
				return m.tracker.State(), fmt.Errorf("failed to deliver look-away: %w", err)
			}
		}

		frame.State = m.tracker.State()
		if m.onFrame != nil {
			m.onFrame(frame)
		}
	}
}
