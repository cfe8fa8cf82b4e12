package gaze

// CameraConfig selects the capture device and face detection model.
type CameraConfig struct {
	Device         int
	ModelPath      string
	ScoreThreshold float64
	Width          int
	Height         int
}

func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Device:         0,
		ModelPath:      "models/face_detection_yunet_2023mar.onnx",
		ScoreThreshold: 0.7,
		Width:          640,
		Height:         480,
	}
}
