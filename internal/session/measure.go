package session

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mpatra/handrange/internal/capture"
	"github.com/mpatra/handrange/internal/ranging"
)

// Measure runs the per-frame estimation loop with the given calibration
// profile until the user quits or Stop is called.
//
// Each frame is independent: a frame with no detected hand produces no
// estimate and no side effects, and the loop simply moves on. Frames with
// an estimate are reported to the console, handed to the recorder and
// publisher when configured, and trigger the notifier when inside the
// near-range threshold.
func (s *Session) Measure(profile ranging.Profile) error {
	if !profile.Valid() {
		return errors.New("no calibration profile: calibrate first")
	}

	if err := s.camera.Open(); err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}
	defer s.camera.Close()

	s.console.Printf("Measuring. Press 'q' to stop.\n")

	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return nil
		case <-ticker.C:
		}

		frame, err := s.camera.ReadFrame()
		if errors.Is(err, capture.ErrEmptyFrame) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read frame: %w", err)
		}

		width, box := s.measureFrame(frame)

		var lines []string
		est, ok := profile.Estimate(width)
		if ok {
			lines = append(lines, fmt.Sprintf("Distance: %.1f cm (%.2f m)", est.CM, est.M))
			if est.NearRange() {
				lines = append(lines, "NEAR RANGE: closer than 2 m")
			}

			if s.recorder != nil {
				if err := s.recorder.Record(est); err != nil {
					log.Printf("Error recording measurement: %v", err)
				}
			}
			if s.publisher != nil {
				s.publisher.Publish(est)
			}
			if est.NearRange() && s.notifier != nil {
				s.notifier.Notify(est)
			}
		} else {
			lines = append(lines, "No hand detected")
		}

		annotate(frame, box, lines)

		if s.frames != nil {
			s.frames.Update(frame)
		}

		sig := SignalNone
		if s.display != nil {
			s.display.Show(frame, box, lines)
			sig = s.display.Poll()
		}
		frame.Close()

		if sig == SignalQuit {
			return nil
		}
	}
}
