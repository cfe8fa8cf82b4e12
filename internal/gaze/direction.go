package gaze

import "fmt"

// Direction is the classified head orientation for one frame.
type Direction int

const (
	Forward Direction = iota
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection is the inverse of String.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "forward":
		return Forward, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	default:
		return Forward, fmt.Errorf("unknown direction %q", s)
	}
}

// Classify maps a yaw value to a direction. Values exactly at the threshold
// are forward.
func Classify(yaw, threshold float64) Direction {
	switch {
	case yaw > threshold:
		return Right
	case yaw < -threshold:
		return Left
	default:
		return Forward
	}
}

type action int

const (
	hold action = iota
	reset
	emit
)

// transitions is indexed by [latched][candidate].
var transitions = [3][3]action{
	Forward: {Forward: hold, Left: emit, Right: emit},
	Left:    {Forward: reset, Left: hold, Right: emit},
	Right:   {Forward: reset, Left: emit, Right: hold},
}
