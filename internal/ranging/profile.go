package ranging

import "errors"

// NearRangeMeters is the fixed distance below which the near-range alert
// fires. Exactly 2.0 m does not alert.
const NearRangeMeters = 2.0

// Calibration precondition failures. Each names the specific missing input
// so the user can correct it and retry the capture.
var (
	// ErrNoHand means the pixel width of the current frame is zero: no hand
	// was detected at the capture instant.
	ErrNoHand = errors.New("hand pixel width is zero, ensure the hand is clearly detected")
	// ErrRealWidth means the declared real hand width is not positive.
	ErrRealWidth = errors.New("real hand width must be a positive value")
	// ErrDistance means the declared calibration distance is not positive.
	ErrDistance = errors.New("calibration distance must be a positive value")
)

// Profile is the immutable result of a successful calibration: the focal
// length proxy derived from one reference measurement, and the real hand
// width it was derived with. Both fields are strictly positive; a Profile
// is only constructed through NewProfile or FromScalars.
type Profile struct {
	FocalLength float64
	RealWidthCM float64
}

// NewProfile derives a calibration profile from one reference triple via
// the pinhole similar-triangles relation:
//
//	focal = pixelWidth × knownDistance / realWidth
//
// It fails with the specific precondition error when any of the three
// inputs is not strictly positive.
func NewProfile(pixelWidth, realWidthCM, knownDistanceCM float64) (Profile, error) {
	if pixelWidth <= 0 {
		return Profile{}, ErrNoHand
	}
	if realWidthCM <= 0 {
		return Profile{}, ErrRealWidth
	}
	if knownDistanceCM <= 0 {
		return Profile{}, ErrDistance
	}

	return Profile{
		FocalLength: pixelWidth * knownDistanceCM / realWidthCM,
		RealWidthCM: realWidthCM,
	}, nil
}

// FromScalars builds a profile from a previously derived focal length and
// real width, as entered at the start of a measurement-only session.
func FromScalars(focalLength, realWidthCM float64) (Profile, error) {
	if focalLength <= 0 {
		return Profile{}, errors.New("focal length must be a positive value")
	}
	if realWidthCM <= 0 {
		return Profile{}, ErrRealWidth
	}
	return Profile{FocalLength: focalLength, RealWidthCM: realWidthCM}, nil
}

// Valid reports whether the profile carries usable calibration values.
func (p Profile) Valid() bool {
	return p.FocalLength > 0 && p.RealWidthCM > 0
}

// Estimate is one frame's derived distance. Ephemeral: recomputed every
// frame and never accumulated.
type Estimate struct {
	CM         float64 `json:"distance_cm"`
	M          float64 `json:"distance_m"`
	PixelWidth float64 `json:"pixel_width"`
}

// Estimate converts an observed pixel width into a distance. The division
// is guarded: a pixel width of zero or less legitimately occurs when no
// hand is visible, and yields ok=false ("no estimate this frame") rather
// than a fault.
func (p Profile) Estimate(pixelWidth float64) (Estimate, bool) {
	if pixelWidth <= 0 {
		return Estimate{}, false
	}

	cm := p.RealWidthCM * p.FocalLength / pixelWidth

	return Estimate{
		CM:         cm,
		M:          cm / 100,
		PixelWidth: pixelWidth,
	}, true
}

// NearRange reports whether the estimate is inside the near-range warning
// threshold.
func (e Estimate) NearRange() bool {
	return e.M < NearRangeMeters
}
