package gaze

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Source produces one Reading per captured frame. Finite sources return
// io.EOF when exhausted.
type Source interface {
	Next(ctx context.Context) (Reading, error)
	Close() error
}

// ReplaySource reads recorded yaw estimates, one frame per line.
//
// A line holds either "<yaw>" or "<seconds> <yaw>", where seconds is the
// offset from the start of the recording. A yaw of "-" or "none" is a frame
// without a face. Blank lines and lines starting with '#' are ignored.
type ReplaySource struct {
	scanner *bufio.Scanner
	closer  io.Closer
	start   time.Time
	line    int
}

// NewReplaySource replays r. Timestamped lines are placed relative to start.
func NewReplaySource(r io.Reader, start time.Time) *ReplaySource {
	s := &ReplaySource{
		scanner: bufio.NewScanner(r),
		start:   start,
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *ReplaySource) Next(ctx context.Context) (Reading, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Reading{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return Reading{}, fmt.Errorf("failed to read replay: %w", err)
			}
			return Reading{}, io.EOF
		}
		s.line++

		text := strings.TrimSpace(s.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		return s.parse(text)
	}
}

func (s *ReplaySource) parse(text string) (Reading, error) {
	fields := strings.Fields(text)
	var reading Reading

	switch len(fields) {
	case 1:
	case 2:
		offset, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return Reading{}, fmt.Errorf("line %d: invalid offset %q: %w", s.line, fields[0], err)
		}
		reading.At = s.start.Add(time.Duration(offset * float64(time.Second)))
		fields = fields[1:]
	default:
		return Reading{}, fmt.Errorf("line %d: expected 1 or 2 fields, got %d", s.line, len(fields))
	}

	switch fields[0] {
	case "-", "none":
		return reading, nil
	}
	yaw, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Reading{}, fmt.Errorf("line %d: invalid yaw %q: %w", s.line, fields[0], err)
	}
	reading.Yaw = yaw
	reading.Found = true
	return reading, nil
}

func (s *ReplaySource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
