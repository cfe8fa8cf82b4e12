package gaze

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(seconds float64) time.Time {
	return t0.Add(time.Duration(seconds * float64(time.Second)))
}

func face(yaw float64) Reading {
	return Reading{Yaw: yaw, Found: true}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		yaw  float64
		want Direction
	}{
		{0.3, Right},
		{-0.3, Left},
		{0.2, Forward},
		{-0.2, Forward},
		{0, Forward},
		{0.2000001, Right},
		{-0.2000001, Left},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, Classify(tt.yaw, DefaultThreshold), "yaw %v", tt.yaw)
	}
}

func TestTransitionTable(t *testing.T) {
	yawFor := map[Direction]float64{Forward: 0, Left: -0.5, Right: 0.5}

	tests := []struct {
		latched   Direction
		candidate Direction
		wantEmit  bool
		wantLatch Direction
	}{
		{Forward, Forward, false, Forward},
		{Forward, Left, true, Left},
		{Forward, Right, true, Right},
		{Left, Forward, false, Forward},
		{Left, Left, false, Left},
		{Left, Right, true, Right},
		{Right, Forward, false, Forward},
		{Right, Left, true, Left},
		{Right, Right, false, Right},
	}

	for _, tt := range tests {
		t.Run(tt.latched.String()+"->"+tt.candidate.String(), func(t *testing.T) {
			tracker := NewTracker(DefaultConfig())
			tracker.state.Current = tt.latched

			ev, ok := tracker.Observe(face(yawFor[tt.candidate]), t0)
			require.Equal(t, tt.wantEmit, ok)
			require.Equal(t, tt.wantLatch, tracker.State().Current)
			if ok {
				require.Equal(t, tt.candidate, ev.Direction)
				require.Equal(t, 1, tracker.State().TotalCount)
				require.Equal(t, t0, tracker.State().LastTransition)
			} else {
				require.Zero(t, tracker.State().TotalCount)
				require.True(t, tracker.State().LastTransition.IsZero())
			}
		})
	}
}

func TestTrackerFirstTurnEmits(t *testing.T) {
	tracker := NewTracker(DefaultConfig())

	ev, ok := tracker.Observe(face(0.3), t0)
	require.True(t, ok)
	require.Equal(t, Right, ev.Direction)
	require.Equal(t, 1, ev.Total)

	state := tracker.State()
	require.Equal(t, 1, state.RightCount)
	require.Equal(t, 0, state.LeftCount)
	require.Equal(t, 1, state.TotalCount)
	require.Equal(t, Right, state.Current)
}

func TestTrackerRepeatedDirectionNeverEmits(t *testing.T) {
	tracker := NewTracker(DefaultConfig())

	_, ok := tracker.Observe(face(0.3), at(0))
	require.True(t, ok)

	for i := 1; i <= 20; i++ {
		_, ok := tracker.Observe(face(0.3+float64(i)/100), at(float64(i)))
		require.False(t, ok)
	}
	require.Equal(t, 1, tracker.State().TotalCount)
}

func TestTrackerCooldown(t *testing.T) {
	tracker := NewTracker(DefaultConfig())

	_, ok := tracker.Observe(face(0.3), at(0))
	require.True(t, ok)

	_, ok = tracker.Observe(face(0.0), at(0.2))
	require.False(t, ok)
	require.Equal(t, Forward, tracker.State().Current)

	_, ok = tracker.Observe(face(0.3), at(0.5))
	require.False(t, ok, "second turn inside the cooldown must not emit")
	require.Equal(t, Forward, tracker.State().Current)
	require.Equal(t, at(0), tracker.State().LastTransition)

	_, ok = tracker.Observe(face(0.3), at(1.0))
	require.True(t, ok, "cooldown elapses at exactly one second")
	require.Equal(t, 2, tracker.State().RightCount)
}

func TestTrackerForwardDoesNotRearmCooldown(t *testing.T) {
	tracker := NewTracker(DefaultConfig())

	_, ok := tracker.Observe(face(-0.4), at(0))
	require.True(t, ok)

	_, ok = tracker.Observe(face(0.1), at(0.9))
	require.False(t, ok)

	_, ok = tracker.Observe(face(-0.4), at(1.1))
	require.True(t, ok)
	require.Equal(t, 2, tracker.State().LeftCount)
}

func TestTrackerDirectSwitch(t *testing.T) {
	tracker := NewTracker(DefaultConfig())

	_, ok := tracker.Observe(face(0.3), at(0))
	require.True(t, ok)

	_, ok = tracker.Observe(face(-0.3), at(0.5))
	require.False(t, ok)
	require.Equal(t, Right, tracker.State().Current)

	ev, ok := tracker.Observe(face(-0.3), at(1.5))
	require.True(t, ok)
	require.Equal(t, Left, ev.Direction)

	state := tracker.State()
	require.Equal(t, 1, state.LeftCount)
	require.Equal(t, 1, state.RightCount)
	require.Equal(t, 2, state.TotalCount)
}

func TestTrackerNoFaceLeavesStateUnchanged(t *testing.T) {
	tracker := NewTracker(DefaultConfig())

	_, ok := tracker.Observe(face(0.3), at(0))
	require.True(t, ok)
	before := tracker.State()

	for i := 0; i < 5; i++ {
		_, ok := tracker.Observe(Reading{}, at(float64(i)+2))
		require.False(t, ok)
	}
	require.Equal(t, before, tracker.State())
}

func TestTrackerCustomConfig(t *testing.T) {
	tracker := NewTracker(Config{Threshold: 0.5, Cooldown: 3 * time.Second})

	_, ok := tracker.Observe(face(0.4), at(0))
	require.False(t, ok)

	_, ok = tracker.Observe(face(0.6), at(0))
	require.True(t, ok)

	_, ok = tracker.Observe(face(-0.6), at(2))
	require.False(t, ok)

	_, ok = tracker.Observe(face(-0.6), at(3))
	require.True(t, ok)
}

func TestTrackerEventBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for run := 0; run < 200; run++ {
		tracker := NewTracker(DefaultConfig())
		now := t0
		prev := Forward
		changes := 0
		var emitted []time.Time

		for i := 0; i < 300; i++ {
			now = now.Add(time.Duration(rng.IntN(400)) * time.Millisecond)
			if rng.IntN(10) == 0 {
				tracker.Observe(Reading{}, now)
				continue
			}
			yaw := rng.Float64()*1.2 - 0.6
			if d := Classify(yaw, DefaultThreshold); d != prev {
				changes++
				prev = d
			}
			if ev, ok := tracker.Observe(face(yaw), now); ok {
				emitted = append(emitted, ev.At)
			}
		}

		require.LessOrEqual(t, len(emitted), changes)
		require.Equal(t, len(emitted), tracker.State().TotalCount)
		for i := 1; i < len(emitted); i++ {
			require.GreaterOrEqual(t, emitted[i].Sub(emitted[i-1]), DefaultCooldown)
		}
	}
}

func TestDirectionString(t *testing.T) {
	for _, d := range []Direction{Forward, Left, Right} {
		parsed, err := ParseDirection(d.String())
		require.NoError(t, err)
		require.Equal(t, d, parsed)
	}

	_, err := ParseDirection("up")
	require.Error(t, err)
	require.Equal(t, "Direction(7)", Direction(7).String())
}
