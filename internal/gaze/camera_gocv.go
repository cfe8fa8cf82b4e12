//go:build gocv

package gaze

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// CameraSource reads frames from a webcam and estimates yaw from YuNet
// facial landmarks.
type CameraSource struct {
	capture  *gocv.VideoCapture
	detector gocv.FaceDetectorYN
	frame    gocv.Mat
	faces    gocv.Mat
}

func NewCameraSource(cfg CameraConfig) (*CameraSource, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s: %w", cfg.ModelPath, err)
	}

	capture, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", cfg.Device, err)
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",
		image.Pt(cfg.Width, cfg.Height),
		float32(cfg.ScoreThreshold),
		0.3,
		5000,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &CameraSource{
		capture:  capture,
		detector: detector,
		frame:    gocv.NewMat(),
		faces:    gocv.NewMat(),
	}, nil
}

func (c *CameraSource) Next(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	if ok := c.capture.Read(&c.frame); !ok {
		return Reading{}, errors.New("camera read failed")
	}
	if c.frame.Empty() {
		return Reading{}, nil
	}

	c.detector.SetInputSize(image.Pt(c.frame.Cols(), c.frame.Rows()))
	c.detector.Detect(c.frame, &c.faces)

	// Columns: 0-3 bbox, 4-13 five landmark (x, y) pairs, 14 score.
	best := -1
	var bestScore float32
	for r := 0; r < c.faces.Rows(); r++ {
		if score := c.faces.GetFloatAt(r, 14); best < 0 || score > bestScore {
			best, bestScore = r, score
		}
	}
	if best < 0 {
		return Reading{}, nil
	}

	at := func(col int) Point {
		return Point{
			X: float64(c.faces.GetFloatAt(best, col)),
			Y: float64(c.faces.GetFloatAt(best, col+1)),
		}
	}
	yaw, ok := EstimateYaw(Landmarks{
		RightEye:   at(4),
		LeftEye:    at(6),
		Nose:       at(8),
		RightMouth: at(10),
		LeftMouth:  at(12),
	})
	if !ok {
		return Reading{}, nil
	}
	return Reading{Yaw: yaw, Found: true}, nil
}

func (c *CameraSource) Close() error {
	c.faces.Close()
	c.frame.Close()
	c.detector.Close()
	return c.capture.Close()
}
