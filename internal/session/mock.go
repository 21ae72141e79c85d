package session

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/mpatra/handrange/internal/ranging"
)

// MockDisplay is a scripted Display for testing the session loops. Poll
// returns queued signals in order; once the queue is exhausted it returns
// Default, which is SignalQuit so unscripted loops terminate.
type MockDisplay struct {
	Default Signal

	mu      sync.Mutex
	signals []Signal
	shows   [][]string
	boxes   []*ranging.BoundingBox
}

func NewMockDisplay(signals ...Signal) *MockDisplay {
	return &MockDisplay{
		Default: SignalQuit,
		signals: signals,
	}
}

func (d *MockDisplay) Show(frame *gocv.Mat, box *ranging.BoundingBox, lines []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	copied := make([]string, len(lines))
	copy(copied, lines)
	d.shows = append(d.shows, copied)
	d.boxes = append(d.boxes, box)
}

func (d *MockDisplay) Poll() Signal {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.signals) == 0 {
		return d.Default
	}

	sig := d.signals[0]
	d.signals = d.signals[1:]
	return sig
}

func (d *MockDisplay) Close() {}

// Shows returns the feedback lines of every Show call so far.
func (d *MockDisplay) Shows() [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shows
}

// Boxes returns the bounding box of every Show call so far.
func (d *MockDisplay) Boxes() []*ranging.BoundingBox {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.boxes
}

// MockRecorder collects recorded estimates in memory.
type MockRecorder struct {
	mu        sync.Mutex
	estimates []ranging.Estimate
	err       error
}

func NewMockRecorder() *MockRecorder {
	return &MockRecorder{}
}

func (r *MockRecorder) Record(est ranging.Estimate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.estimates = append(r.estimates, est)
	return nil
}

// SetError makes every subsequent Record call fail.
func (r *MockRecorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Estimates returns everything recorded so far.
func (r *MockRecorder) Estimates() []ranging.Estimate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.estimates
}

// MockNotifier counts near-range notifications.
type MockNotifier struct {
	mu        sync.Mutex
	estimates []ranging.Estimate
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (n *MockNotifier) Notify(est ranging.Estimate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.estimates = append(n.estimates, est)
}

// Estimates returns every notification delivered so far.
func (n *MockNotifier) Estimates() []ranging.Estimate {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.estimates
}

// MockFrameSink counts frame updates and remembers whether any delivered
// frame carried non-black pixels, i.e. was drawn on.
type MockFrameSink struct {
	mu        sync.Mutex
	updates   int
	annotated bool
}

func NewMockFrameSink() *MockFrameSink {
	return &MockFrameSink{}
}

func (f *MockFrameSink) Update(frame *gocv.Mat) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updates++

	if frame == nil || frame.Empty() {
		return
	}
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	if gocv.CountNonZero(gray) > 0 {
		f.annotated = true
	}
}

// Updates returns the number of frames delivered so far.
func (f *MockFrameSink) Updates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates
}

// Annotated reports whether any delivered frame had been drawn on.
func (f *MockFrameSink) Annotated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.annotated
}
