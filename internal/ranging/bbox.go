// Package ranging implements the pinhole-camera geometry behind the hand
// distance estimate: bounding-box extraction from normalized landmarks, the
// calibration profile derived from one reference measurement, and the
// per-frame distance estimate with its near-range alert.
package ranging

import (
	"github.com/mpatra/handrange/internal/detector"
)

// BoundingBox is an axis-aligned box in pixel space. The corners are
// integer-truncated for drawing; the width used for the distance math is
// kept in floating point and returned alongside.
type BoundingBox struct {
	MinX int
	MinY int
	MaxX int
	MaxY int
}

// Extract converts a set of normalized landmark points plus the image
// dimensions into a pixel-space bounding box and its floating-point width.
//
// A nil or empty point set means no hand is visible this frame and yields
// (0, nil). That is a normal outcome, not an error. Extract is a pure
// function of its inputs.
func Extract(width, height int, points []detector.Point3D) (float64, *BoundingBox) {
	if len(points) == 0 {
		return 0, nil
	}

	minX := points[0].X * float64(width)
	maxX := minX
	minY := points[0].Y * float64(height)
	maxY := minY

	for _, p := range points[1:] {
		x := p.X * float64(width)
		y := p.Y * float64(height)

		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}

	box := &BoundingBox{
		MinX: int(minX),
		MinY: int(minY),
		MaxX: int(maxX),
		MaxY: int(maxY),
	}

	return maxX - minX, box
}

// HandBoundingBox extracts the bounding box of a detected hand. A nil hand
// yields (0, nil).
func HandBoundingBox(width, height int, hand *detector.HandLandmarks) (float64, *BoundingBox) {
	if hand == nil {
		return 0, nil
	}
	return Extract(width, height, hand.Points[:])
}
