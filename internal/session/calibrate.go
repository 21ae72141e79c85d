package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/mpatra/handrange/internal/capture"
	"github.com/mpatra/handrange/internal/ranging"
)

// Calibrate runs the interactive calibration flow:
//
//  1. Prompt for the real hand width in cm.
//  2. Prompt for the current hand-to-camera distance in cm.
//  3. Show the live preview until the user captures a reference frame.
//  4. Derive the focal-length profile from that frame's pixel width.
//
// The capture is gated on the frame being captured: a capture request on
// a frame with no detected hand is rejected with a message and the loop
// continues. The last successfully measured width is shown as feedback
// only and never substitutes for the capture frame. Quitting before a
// successful capture returns ErrAborted.
func (s *Session) Calibrate() (ranging.Profile, error) {
	realWidth, err := s.console.PositiveFloat("Enter your hand width in cm: ")
	if err != nil {
		return ranging.Profile{}, fmt.Errorf("failed to read hand width: %w", err)
	}

	knownDistance, err := s.console.PositiveFloat("Enter the current distance from the camera in cm: ")
	if err != nil {
		return ranging.Profile{}, fmt.Errorf("failed to read distance: %w", err)
	}

	if err := s.camera.Open(); err != nil {
		return ranging.Profile{}, fmt.Errorf("failed to open camera: %w", err)
	}
	defer s.camera.Close()

	s.console.Printf("Hold your hand steady at %.0f cm and press 'c' to capture. Press 'q' to abort.\n", knownDistance)

	if s.stability != nil {
		s.stability.Reset()
	}

	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	var lastGoodWidth float64

	for {
		select {
		case <-s.stopCh:
			return ranging.Profile{}, ErrAborted
		case <-ticker.C:
		}

		frame, err := s.camera.ReadFrame()
		if errors.Is(err, capture.ErrEmptyFrame) {
			continue
		}
		if err != nil {
			return ranging.Profile{}, fmt.Errorf("failed to read frame: %w", err)
		}

		width, box := s.measureFrame(frame)

		steady := true
		var change float64
		if s.stability != nil {
			steady, change = s.stability.Sample(frame)
		}

		var lines []string
		if width > 0 {
			lastGoodWidth = width
			lines = append(lines, fmt.Sprintf("Hand width: %.0f px", width))
			if steady {
				lines = append(lines, "Steady. Press 'c' to capture.")
			} else {
				lines = append(lines, fmt.Sprintf("Hold steady (%.1f%% movement)", change))
			}
		} else if lastGoodWidth > 0 {
			lines = append(lines, fmt.Sprintf("No hand in view (last width: %.0f px)", lastGoodWidth))
		} else {
			lines = append(lines, "No hand detected")
		}

		annotate(frame, box, lines)

		sig := SignalNone
		if s.display != nil {
			s.display.Show(frame, box, lines)
			sig = s.display.Poll()
		}
		frame.Close()

		switch sig {
		case SignalQuit:
			return ranging.Profile{}, ErrAborted
		case SignalCapture:
			profile, err := ranging.NewProfile(width, realWidth, knownDistance)
			if err != nil {
				if errors.Is(err, ranging.ErrNoHand) {
					s.console.Printf("Capture ignored: %v\n", err)
					continue
				}
				return ranging.Profile{}, err
			}

			s.console.Printf("Calibration complete. Focal length: %.2f\n", profile.FocalLength)
			return profile, nil
		}
	}
}
