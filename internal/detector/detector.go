package detector

import "gocv.io/x/gocv"

// Detection parameters are fixed constants of the estimation core: the
// proximity signal tracks a single hand, and the confidence thresholds are
// the values the calibration formula was validated against. They are
// deliberately not runtime-tunable.
const (
	MaxHands         = 1
	MinDetectionConf = 0.7
	MinTrackingConf  = 0.7
)

// Detector defines the interface for hand landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmark sets.
	// An empty result means no hand is visible in this frame; that is a
	// normal per-frame outcome, not an error.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}
