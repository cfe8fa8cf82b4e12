package gaze

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReplaySource(t *testing.T) {
	input := `# recorded session
0.05

0.31
-
none
1.5 -0.4
`
	src := NewReplaySource(strings.NewReader(input), t0)
	ctx := context.Background()

	want := []Reading{
		{Yaw: 0.05, Found: true},
		{Yaw: 0.31, Found: true},
		{},
		{},
		{Yaw: -0.4, Found: true, At: t0.Add(1500 * time.Millisecond)},
	}
	for i, w := range want {
		got, err := src.Next(ctx)
		require.NoError(t, err, "reading %d", i)
		require.Equal(t, w, got, "reading %d", i)
	}

	_, err := src.Next(ctx)
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, src.Close())
}

func TestReplaySourceInvalidLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad yaw", "left\n"},
		{"bad offset", "x 0.3\n"},
		{"too many fields", "1 2 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewReplaySource(strings.NewReader(tt.input), t0)
			_, err := src.Next(context.Background())
			require.Error(t, err)
			require.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestReplaySourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewReplaySource(strings.NewReader("0.3\n"), t0)
	_, err := src.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
