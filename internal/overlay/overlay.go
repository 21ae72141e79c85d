// Package overlay renders the live preview window for the estimation
// loops. The frames arrive already annotated; the window only presents
// them and collects key input.
package overlay

import (
	"gocv.io/x/gocv"

	"github.com/mpatra/handrange/internal/ranging"
	"github.com/mpatra/handrange/internal/session"
)

// Key codes understood by the preview window.
const (
	keyCapture = 'c'
	keyQuit    = 'q'
	keyEscape  = 27
)

// Window is a gocv preview window implementing the session display. It
// must be used from a single goroutine; HighGUI is not thread safe.
type Window struct {
	window  *gocv.Window
	pending session.Signal
}

// NewWindow opens a preview window with the given title.
func NewWindow(title string) *Window {
	return &Window{
		window: gocv.NewWindow(title),
	}
}

// Show displays the frame. The key press, if any, is held for the next
// Poll.
func (w *Window) Show(frame *gocv.Mat, box *ranging.BoundingBox, lines []string) {
	if frame == nil || frame.Empty() {
		return
	}

	w.window.IMShow(*frame)

	switch w.window.WaitKey(1) {
	case keyCapture:
		w.pending = session.SignalCapture
	case keyQuit, keyEscape:
		w.pending = session.SignalQuit
	default:
		w.pending = session.SignalNone
	}
}

// Poll returns the signal from the most recent Show.
func (w *Window) Poll() session.Signal {
	sig := w.pending
	w.pending = session.SignalNone
	return sig
}

// Close closes the preview window.
func (w *Window) Close() {
	w.window.Close()
}
