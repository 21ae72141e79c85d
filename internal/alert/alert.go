// Package alert runs an external hook command whenever a reading enters
// the near-range threshold. The reading is delivered to the hook as JSON
// on stdin, so any script or executable can react to it.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"sync"
	"time"

	"github.com/mpatra/handrange/internal/ranging"
)

// Defaults for hook execution.
const (
	// DefaultTimeout bounds a single hook run.
	DefaultTimeout = 5 * time.Second
	// DefaultMinInterval is the minimum time between hook runs, so a hand
	// held inside the threshold does not fire once per frame.
	DefaultMinInterval = 5 * time.Second
)

// payload is the JSON document written to the hook's stdin.
type payload struct {
	DistanceCM float64 `json:"distance_cm"`
	DistanceM  float64 `json:"distance_m"`
	PixelWidth float64 `json:"pixel_width"`
	Timestamp  string  `json:"timestamp"`
}

// Hook executes a near-range alert command with timeout and re-fire
// rate limiting.
type Hook struct {
	command     string
	timeout     time.Duration
	minInterval time.Duration

	mu        sync.Mutex
	lastFired time.Time
}

// NewHook creates a Hook for the given executable. A non-positive
// timeout and a negative interval fall back to the defaults; a zero
// interval disables rate limiting.
func NewHook(command string, timeout, minInterval time.Duration) *Hook {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if minInterval < 0 {
		minInterval = DefaultMinInterval
	}

	return &Hook{
		command:     command,
		timeout:     timeout,
		minInterval: minInterval,
	}
}

// Notify fires the hook for a near-range reading, unless one fired less
// than the minimum interval ago. Hook failures are logged, never
// propagated: a broken hook must not take down the measurement loop.
func (h *Hook) Notify(est ranging.Estimate) {
	h.mu.Lock()
	if time.Since(h.lastFired) < h.minInterval {
		h.mu.Unlock()
		return
	}
	h.lastFired = time.Now()
	h.mu.Unlock()

	if err := h.Execute(est); err != nil {
		log.Printf("Error running alert hook: %v", err)
	}
}

// Execute runs the hook command once with the reading on stdin.
func (h *Hook) Execute(est ranging.Estimate) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	body, err := json.Marshal(payload{
		DistanceCM: est.CM,
		DistanceM:  est.M,
		PixelWidth: est.PixelWidth,
		Timestamp:  time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	cmd := exec.CommandContext(ctx, h.command)
	cmd.Stdin = bytes.NewReader(body)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err = cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("alert hook timeout after %s", h.timeout)
	}
	if err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("alert hook failed: %w, stderr: %s", err, stderr.String())
		}
		return fmt.Errorf("alert hook failed: %w", err)
	}

	return nil
}
