package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Stability judges whether the scene is holding still between consecutive
// frames, using frame differencing with Gaussian blur for noise reduction.
// During calibration it backs the "hold steady" feedback: a reference
// capture taken while the hand is moving is worthless.
type Stability struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

const (
	// stabilityBlurSize is the kernel size for Gaussian blur (21x21)
	stabilityBlurSize = 21
	// stabilityDiffThreshold is the binary threshold for difference detection
	stabilityDiffThreshold = 25
	// DefaultStabilityThreshold is the percentage of changed pixels below
	// which the scene counts as steady.
	DefaultStabilityThreshold = 1.0
)

// NewStability creates a Stability monitor with the given threshold, the
// percentage of pixels allowed to change between frames. Non-positive
// values fall back to the default.
func NewStability(threshold float64) *Stability {
	if threshold <= 0 {
		threshold = DefaultStabilityThreshold
	}
	return &Stability{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Sample compares a frame against the previous one and reports whether the
// scene is steady, along with the percentage of pixels that changed.
//
// The first frame only establishes the baseline and reports not-steady.
func (s *Stability) Sample(frame *gocv.Mat) (bool, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: stabilityBlurSize, Y: stabilityBlurSize}, 0, 0, gocv.BorderDefault)

	if !s.initialized {
		blurred.CopyTo(&s.prevGray)
		s.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, s.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, stabilityDiffThreshold, 255, gocv.ThresholdBinary)

	nonZero := gocv.CountNonZero(thresh)
	totalPixels := thresh.Rows() * thresh.Cols()

	changePercent := float64(nonZero) / float64(totalPixels) * 100.0

	blurred.CopyTo(&s.prevGray)

	return changePercent <= s.threshold, changePercent
}

// Reset clears the baseline so the monitor can be reused on a new scene.
func (s *Stability) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.prevGray.Empty() {
		s.prevGray.Close()
		s.prevGray = gocv.NewMat()
	}
	s.initialized = false
}

// Close releases resources held by the monitor.
func (s *Stability) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.prevGray.Empty() {
		s.prevGray.Close()
		s.prevGray = gocv.NewMat()
	}
	s.initialized = false
}
