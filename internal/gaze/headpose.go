package gaze

import "math"

// Point is a pixel coordinate.
type Point struct {
	X, Y float64
}

// Landmarks are the five facial points produced by the YuNet detector, in
// the detector's order.
type Landmarks struct {
	RightEye   Point
	LeftEye    Point
	Nose       Point
	RightMouth Point
	LeftMouth  Point
}

// noseDepthRatio approximates nose-tip depth in units of inter-ocular distance.
const noseDepthRatio = 0.6

// EstimateYaw returns a head yaw estimate in radians from 2D landmarks.
// Positive values mean the nose points towards the right of the image.
// It returns false when the landmarks are degenerate.
func EstimateYaw(lm Landmarks) (float64, bool) {
	eyeDist := math.Hypot(lm.LeftEye.X-lm.RightEye.X, lm.LeftEye.Y-lm.RightEye.Y)
	if eyeDist < 1e-6 {
		return 0, false
	}

	eyeMid := (lm.LeftEye.X + lm.RightEye.X) / 2
	mouthMid := (lm.LeftMouth.X + lm.RightMouth.X) / 2
	centre := (eyeMid + mouthMid) / 2

	ratio := (lm.Nose.X - centre) / (eyeDist * noseDepthRatio)
	ratio = math.Max(-1, math.Min(1, ratio))
	return math.Asin(ratio), true
}
