package session

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/mpatra/handrange/internal/capture"
	"github.com/mpatra/handrange/internal/console"
	"github.com/mpatra/handrange/internal/detector"
	"github.com/mpatra/handrange/internal/ranging"
)

// testFPS keeps the loop ticks short so tests finish quickly.
const testFPS = 200

func newTestFrame(t *testing.T) *gocv.Mat {
	t.Helper()

	mat := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { mat.Close() })

	return &mat
}

// spanHand returns a hand whose bounding box is exactly widthPx wide on a
// 640-pixel frame.
func spanHand(widthPx float64) detector.HandLandmarks {
	return detector.HandSpanLandmarks(0.25, 0.25 + widthPx/640)
}

type fixture struct {
	camera   *capture.MockCamera
	detector *detector.MockDetector
	display  *MockDisplay
	in       string
	out      bytes.Buffer
}

func (f *fixture) session(t *testing.T, opts Options) *Session {
	t.Helper()

	opts.Camera = f.camera
	opts.Detector = f.detector
	opts.Display = f.display
	opts.Console = console.New(strings.NewReader(f.in), &f.out)
	opts.FPS = testFPS

	return New(opts)
}

func newFixture(t *testing.T, signals ...Signal) *fixture {
	t.Helper()

	frame := newTestFrame(t)
	return &fixture{
		camera:   capture.NewMockCamera([]*gocv.Mat{frame}, true),
		detector: detector.NewMockDetector(),
		display:  NewMockDisplay(signals...),
	}
}

func TestSession_Calibrate(t *testing.T) {
	t.Run("capture derives the profile", func(t *testing.T) {
		f := newFixture(t, SignalCapture)
		f.in = "8.5\n50\n"
		f.detector.SetHands([]detector.HandLandmarks{spanHand(120)})

		profile, err := f.session(t, Options{}).Calibrate()
		if err != nil {
			t.Fatalf("Calibrate() error = %v", err)
		}

		want := 120.0 * 50.0 / 8.5
		if math.Abs(profile.FocalLength-want) > 1e-6 {
			t.Errorf("FocalLength = %f, want %f", profile.FocalLength, want)
		}
		if profile.RealWidthCM != 8.5 {
			t.Errorf("RealWidthCM = %f, want 8.5", profile.RealWidthCM)
		}
		if f.camera.IsOpen() {
			t.Error("camera should be released after calibration")
		}
		if !strings.Contains(f.out.String(), "Calibration complete") {
			t.Errorf("missing completion message in output: %q", f.out.String())
		}
	})

	t.Run("quit aborts", func(t *testing.T) {
		f := newFixture(t, SignalQuit)
		f.in = "8.5\n50\n"
		f.detector.SetHands([]detector.HandLandmarks{spanHand(120)})

		_, err := f.session(t, Options{}).Calibrate()
		if !errors.Is(err, ErrAborted) {
			t.Errorf("Calibrate() error = %v, want ErrAborted", err)
		}
		if f.camera.IsOpen() {
			t.Error("camera should be released after abort")
		}
	})

	t.Run("capture gated on the current frame", func(t *testing.T) {
		f := newFixture(t, SignalNone, SignalCapture, SignalCapture)
		f.in = "8.5\n50\n"

		// Frame 1: hand visible, no capture. Frame 2: hand gone, capture
		// attempted and rejected despite the remembered width. Frame 3:
		// hand back, capture succeeds.
		f.detector.EnqueueHands([]detector.HandLandmarks{spanHand(120)})
		f.detector.EnqueueHands(nil)
		f.detector.SetHands([]detector.HandLandmarks{spanHand(120)})

		profile, err := f.session(t, Options{}).Calibrate()
		if err != nil {
			t.Fatalf("Calibrate() error = %v", err)
		}
		if !profile.Valid() {
			t.Error("profile should be valid after the third frame")
		}

		out := f.out.String()
		if !strings.Contains(out, "Capture ignored") {
			t.Errorf("rejected capture should be reported, got %q", out)
		}

		shows := f.display.Shows()
		if len(shows) < 2 {
			t.Fatalf("len(shows) = %d, want at least 2", len(shows))
		}
		if !strings.Contains(shows[1][0], "last width: 120 px") {
			t.Errorf("frame without hand should show last-good width, got %q", shows[1][0])
		}
	})

	t.Run("unavailable camera is fatal", func(t *testing.T) {
		f := newFixture(t)
		f.in = "8.5\n50\n"

		deviceErr := errors.New("device busy")
		f.camera.SetOpenError(deviceErr)

		profile, err := f.session(t, Options{}).Calibrate()
		if !errors.Is(err, deviceErr) {
			t.Fatalf("Calibrate() error = %v, want wrapped %v", err, deviceErr)
		}
		if profile.Valid() {
			t.Error("no profile may be produced when the camera cannot open")
		}
		if f.camera.IsOpen() {
			t.Error("camera should remain closed")
		}
		if len(f.display.Shows()) != 0 {
			t.Error("no frames should be shown when the camera cannot open")
		}
	})

	t.Run("input stream ending fails calibration", func(t *testing.T) {
		f := newFixture(t)
		f.in = ""

		_, err := f.session(t, Options{}).Calibrate()
		if err == nil {
			t.Fatal("Calibrate() should fail when input ends")
		}
	})

	t.Run("re-prompts on invalid input", func(t *testing.T) {
		f := newFixture(t, SignalCapture)
		f.in = "abc\n-2\n8.5\n50\n"
		f.detector.SetHands([]detector.HandLandmarks{spanHand(120)})

		profile, err := f.session(t, Options{}).Calibrate()
		if err != nil {
			t.Fatalf("Calibrate() error = %v", err)
		}
		if profile.RealWidthCM != 8.5 {
			t.Errorf("RealWidthCM = %f, want 8.5", profile.RealWidthCM)
		}
		if !strings.Contains(f.out.String(), "Invalid input") {
			t.Error("invalid input should produce a corrective message")
		}
	})
}

func TestAnnotate(t *testing.T) {
	t.Run("draws box and text onto the frame", func(t *testing.T) {
		frame := newTestFrame(t)

		annotate(frame, &ranging.BoundingBox{MinX: 100, MinY: 100, MaxX: 200, MaxY: 200}, []string{"Distance: 250.0 cm (2.50 m)"})

		gray := gocv.NewMat()
		defer gray.Close()
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
		if gocv.CountNonZero(gray) == 0 {
			t.Error("annotated frame should not stay black")
		}
	})

	t.Run("tolerates a missing box and a nil frame", func(t *testing.T) {
		frame := newTestFrame(t)

		annotate(frame, nil, []string{"No hand detected"})
		annotate(nil, nil, nil)

		gray := gocv.NewMat()
		defer gray.Close()
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
		if gocv.CountNonZero(gray) == 0 {
			t.Error("feedback text alone should still be drawn")
		}
	})
}

func TestSession_Measure(t *testing.T) {
	profile, err := ranging.NewProfile(120, 8.5, 50)
	if err != nil {
		t.Fatalf("NewProfile() error = %v", err)
	}

	t.Run("records and publishes an estimate per frame", func(t *testing.T) {
		f := newFixture(t)
		f.detector.SetHands([]detector.HandLandmarks{spanHand(6)})
		recorder := NewMockRecorder()
		notifier := NewMockNotifier()
		frames := NewMockFrameSink()

		err := f.session(t, Options{
			Recorder: recorder,
			Notifier: notifier,
			Frames:   frames,
		}).Measure(profile)
		if err != nil {
			t.Fatalf("Measure() error = %v", err)
		}

		recorded := recorder.Estimates()
		if len(recorded) != 1 {
			t.Fatalf("len(recorded) = %d, want 1", len(recorded))
		}
		if math.Abs(recorded[0].CM-1000) > 1e-6 {
			t.Errorf("CM = %f, want 1000", recorded[0].CM)
		}
		if math.Abs(recorded[0].M-10) > 1e-6 {
			t.Errorf("M = %f, want 10", recorded[0].M)
		}
		if len(notifier.Estimates()) != 0 {
			t.Error("10 m reading should not notify")
		}
		if frames.Updates() != 1 {
			t.Errorf("frame updates = %d, want 1", frames.Updates())
		}
		if !frames.Annotated() {
			t.Error("streamed frame should carry the drawn overlay")
		}
		if f.camera.IsOpen() {
			t.Error("camera should be released after measuring")
		}

		shows := f.display.Shows()
		if len(shows) != 1 || !strings.Contains(shows[0][0], "Distance: 1000.0 cm") {
			t.Errorf("unexpected feedback: %v", shows)
		}
	})

	t.Run("near range triggers the notifier", func(t *testing.T) {
		f := newFixture(t)
		f.detector.SetHands([]detector.HandLandmarks{spanHand(400)})
		notifier := NewMockNotifier()

		err := f.session(t, Options{Notifier: notifier}).Measure(profile)
		if err != nil {
			t.Fatalf("Measure() error = %v", err)
		}

		notified := notifier.Estimates()
		if len(notified) != 1 {
			t.Fatalf("len(notified) = %d, want 1", len(notified))
		}
		if math.Abs(notified[0].CM-15) > 1e-6 {
			t.Errorf("CM = %f, want 15", notified[0].CM)
		}

		shows := f.display.Shows()
		if len(shows) != 1 || len(shows[0]) < 2 || !strings.Contains(shows[0][1], "NEAR RANGE") {
			t.Errorf("near-range warning missing from feedback: %v", shows)
		}
	})

	t.Run("no hand means no estimate and no side effects", func(t *testing.T) {
		f := newFixture(t)
		recorder := NewMockRecorder()
		notifier := NewMockNotifier()

		err := f.session(t, Options{Recorder: recorder, Notifier: notifier}).Measure(profile)
		if err != nil {
			t.Fatalf("Measure() error = %v", err)
		}

		if len(recorder.Estimates()) != 0 {
			t.Error("nothing should be recorded without a hand")
		}
		if len(notifier.Estimates()) != 0 {
			t.Error("nothing should be notified without a hand")
		}

		shows := f.display.Shows()
		if len(shows) != 1 || shows[0][0] != "No hand detected" {
			t.Errorf("unexpected feedback: %v", shows)
		}
	})

	t.Run("skips transient empty frames", func(t *testing.T) {
		f := newFixture(t)
		f.detector.SetHands([]detector.HandLandmarks{spanHand(60)})
		f.camera.FailNext(2)
		recorder := NewMockRecorder()

		err := f.session(t, Options{Recorder: recorder}).Measure(profile)
		if err != nil {
			t.Fatalf("Measure() error = %v", err)
		}
		if len(recorder.Estimates()) != 1 {
			t.Errorf("len(recorded) = %d, want 1", len(recorder.Estimates()))
		}
	})

	t.Run("unavailable camera is fatal", func(t *testing.T) {
		f := newFixture(t)
		f.detector.SetHands([]detector.HandLandmarks{spanHand(60)})
		recorder := NewMockRecorder()

		deviceErr := errors.New("device busy")
		f.camera.SetOpenError(deviceErr)

		err := f.session(t, Options{Recorder: recorder}).Measure(profile)
		if !errors.Is(err, deviceErr) {
			t.Fatalf("Measure() error = %v, want wrapped %v", err, deviceErr)
		}
		if len(recorder.Estimates()) != 0 {
			t.Error("no readings may be recorded when the camera cannot open")
		}
		if f.camera.IsOpen() {
			t.Error("camera should remain closed")
		}
	})

	t.Run("rejects an invalid profile", func(t *testing.T) {
		f := newFixture(t)

		if err := f.session(t, Options{}).Measure(ranging.Profile{}); err == nil {
			t.Fatal("Measure() should fail without a calibration profile")
		}
	})

	t.Run("stop ends the loop", func(t *testing.T) {
		f := newFixture(t)
		f.detector.SetHands([]detector.HandLandmarks{spanHand(60)})
		f.display.Default = SignalNone

		sess := f.session(t, Options{})

		done := make(chan error, 1)
		go func() { done <- sess.Measure(profile) }()

		time.Sleep(50 * time.Millisecond)
		sess.Stop()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Measure() error = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Measure() did not stop")
		}
	})
}
