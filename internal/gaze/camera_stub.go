//go:build !gocv

package gaze

import (
	"context"
	"errors"
)

// ErrCameraUnsupported is returned when the binary was built without the
// gocv build tag.
var ErrCameraUnsupported = errors.New("camera support requires building with -tags gocv")

// CameraSource is unavailable in this build.
type CameraSource struct{}

func NewCameraSource(CameraConfig) (*CameraSource, error) {
	return nil, ErrCameraUnsupported
}

func (c *CameraSource) Next(context.Context) (Reading, error) {
	return Reading{}, ErrCameraUnsupported
}

func (c *CameraSource) Close() error {
	return nil
}
