package session

import (
	"gocv.io/x/gocv"

	"github.com/mpatra/handrange/internal/ranging"
)

// Signal is a user command polled from the display once per frame.
type Signal int

const (
	// SignalNone means no input this frame.
	SignalNone Signal = iota
	// SignalCapture requests the calibration reference capture.
	SignalCapture
	// SignalQuit ends the current loop.
	SignalQuit
)

// Display renders the live preview and collects per-frame key input.
// Show is called once per processed frame, after the overlay has been
// drawn onto it, with the bounding box of the detected hand (nil when
// none) and the feedback lines for that frame.
type Display interface {
	Show(frame *gocv.Mat, box *ranging.BoundingBox, lines []string)
	Poll() Signal
	Close()
}
