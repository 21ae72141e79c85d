package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results, either as a fixed
// result or as a per-frame sequence.
type MockDetector struct {
	hands []HandLandmarks
	queue [][]HandLandmarks
	err   error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands returned by every Detect call once the queued
// sequence (if any) is exhausted.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.hands = hands
}

// EnqueueHands appends one frame's detection result to the sequence.
// Each Detect call consumes one queued result before falling back to the
// fixed hands.
func (m *MockDetector) EnqueueHands(hands []HandLandmarks) {
	m.queue = append(m.queue, hands)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured result for this frame.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		hands := m.queue[0]
		m.queue = m.queue[1:]
		return hands, nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// HandSpanLandmarks returns a synthetic hand whose normalized horizontal
// extent is exactly [minX, maxX]: the pinky column sits at minX and the
// thumb column at maxX, with the other fingers spaced between them. The
// exact span makes the resulting bounding-box pixel width predictable for
// any image size.
func HandSpanLandmarks(minX, maxX float64) HandLandmarks {
	lm := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	span := maxX - minX
	lm.Points[Wrist] = Point3D{X: minX + span*0.5, Y: 0.85, Z: 0.0}

	// Finger columns from pinky to thumb across the span.
	columns := [5][4]int{
		{PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip},
		{RingMCP, RingPIP, RingDIP, RingTip},
		{MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip},
		{IndexMCP, IndexPIP, IndexDIP, IndexTip},
		{ThumbCMC, ThumbMCP, ThumbIP, ThumbTip},
	}

	for c, column := range columns {
		x := minX + span*float64(c)/4.0
		for j, idx := range column {
			lm.Points[idx] = Point3D{
				X: x,
				Y: 0.72 - 0.12*float64(j),
				Z: -0.01 * float64(j),
			}
		}
	}

	return lm
}

// SpreadHandLandmarks returns a preset open hand filling a little under half
// of the frame width, roughly what a palm held at arm's length looks like.
func SpreadHandLandmarks() HandLandmarks {
	return HandSpanLandmarks(0.30, 0.70)
}
