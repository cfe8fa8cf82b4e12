// Package gaze turns a stream of per-frame head yaw estimates into debounced
// look-away events.
package gaze

import "time"

const (
	DefaultThreshold = 0.2
	DefaultCooldown  = time.Second
)

// Config controls classification and debouncing.
type Config struct {
	Threshold float64
	Cooldown  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		Cooldown:  DefaultCooldown,
	}
}

// Reading is one frame's orientation estimate. Found is false when no face
// was detected in the frame. At is set by sources that carry their own
// timestamps; a zero At means "now".
type Reading struct {
	Yaw   float64
	Found bool
	At    time.Time
}

// Event is a confirmed look-away.
type Event struct {
	Direction Direction
	Yaw       float64
	At        time.Time
	Total     int
}

// State is the tracker's latched direction and counters.
type State struct {
	Current        Direction
	LastTransition time.Time
	LeftCount      int
	RightCount     int
	TotalCount     int
}

// Tracker debounces readings into events. It is not safe for concurrent use;
// feed it from a single loop.
type Tracker struct {
	cfg   Config
	state State
}

func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Observe consumes one reading taken at now. It returns the emitted event and
// true when the reading completes a qualifying transition.
func (t *Tracker) Observe(r Reading, now time.Time) (Event, bool) {
	if !r.Found {
		return Event{}, false
	}

	candidate := Classify(r.Yaw, t.cfg.Threshold)
	switch transitions[t.state.Current][candidate] {
	case reset:
		// Returning forward re-opens the latch but leaves the cooldown alone.
		t.state.Current = Forward
		return Event{}, false
	case emit:
		if t.coolingDown(now) {
			return Event{}, false
		}
	default:
		return Event{}, false
	}

	switch candidate {
	case Left:
		t.state.LeftCount++
	case Right:
		t.state.RightCount++
	}
	t.state.TotalCount++
	t.state.LastTransition = now
	t.state.Current = candidate

	return Event{
		Direction: candidate,
		Yaw:       r.Yaw,
		At:        now,
		Total:     t.state.TotalCount,
	}, true
}

// coolingDown reports whether now falls inside the cooldown window of the
// last emitted event. Before the first event there is no window.
func (t *Tracker) coolingDown(now time.Time) bool {
	if t.state.LastTransition.IsZero() {
		return false
	}
	return now.Sub(t.state.LastTransition) < t.cfg.Cooldown
}

// State returns a copy of the current state.
func (t *Tracker) State() State {
	return t.state
}
