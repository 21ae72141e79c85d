// Package session drives the two interactive loops of the application:
// calibration, which derives a focal-length profile from one reference
// capture, and measurement, which turns every subsequent frame into a
// distance estimate.
package session

import (
	"errors"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/mpatra/handrange/internal/capture"
	"github.com/mpatra/handrange/internal/console"
	"github.com/mpatra/handrange/internal/detector"
	"github.com/mpatra/handrange/internal/ranging"
)

// ErrAborted is returned when the user quits a loop before it completes.
var ErrAborted = errors.New("session aborted")

// Recorder persists one distance reading per processed frame.
type Recorder interface {
	Record(est ranging.Estimate) error
}

// Publisher pushes readings to live subscribers.
type Publisher interface {
	Publish(est ranging.Estimate)
}

// Notifier is invoked when a reading falls inside the near-range
// threshold.
type Notifier interface {
	Notify(est ranging.Estimate)
}

// FrameSink receives the most recent processed frame, e.g. for streaming.
// The frame is only valid for the duration of the call.
type FrameSink interface {
	Update(frame *gocv.Mat)
}

// Options configures a Session. Camera and Detector are required; the
// rest are optional and skipped when nil.
type Options struct {
	Camera    capture.Camera
	Detector  detector.Detector
	Display   Display
	Console   *console.Console
	Stability *capture.Stability
	Recorder  Recorder
	Publisher Publisher
	Notifier  Notifier
	Frames    FrameSink
	FPS       int
}

// Session owns one run of the calibrate/measure loops against a single
// camera.
type Session struct {
	camera    capture.Camera
	detector  detector.Detector
	display   Display
	console   *console.Console
	stability *capture.Stability
	recorder  Recorder
	publisher Publisher
	notifier  Notifier
	frames    FrameSink
	fps       int
	stopCh    chan struct{}
}

// New creates a Session from the given options.
func New(opts Options) *Session {
	fps := opts.FPS
	if fps <= 0 {
		fps = capture.DefaultFPS
	}

	cons := opts.Console
	if cons == nil {
		cons = console.Stdio()
	}

	return &Session{
		camera:    opts.Camera,
		detector:  opts.Detector,
		display:   opts.Display,
		console:   cons,
		stability: opts.Stability,
		recorder:  opts.Recorder,
		publisher: opts.Publisher,
		notifier:  opts.Notifier,
		frames:    opts.Frames,
		fps:       fps,
		stopCh:    make(chan struct{}),
	}
}

// Stop ends the running loop from another goroutine, e.g. the tray menu.
// It is safe to call more than once.
func (s *Session) Stop() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
}

// interval is the per-frame pacing of both loops.
func (s *Session) interval() time.Duration {
	return time.Second / time.Duration(s.fps)
}

// measureFrame runs hand detection on one frame and extracts the pixel
// width and bounding box of the first detected hand. No hand, or a
// detector failure, yields (0, nil): both mean "no measurement this
// frame", never a session fault.
func (s *Session) measureFrame(frame *gocv.Mat) (float64, *ranging.BoundingBox) {
	hands, err := s.detector.Detect(frame)
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		return 0, nil
	}
	if len(hands) == 0 {
		return 0, nil
	}

	return ranging.HandBoundingBox(frame.Cols(), frame.Rows(), &hands[0])
}
