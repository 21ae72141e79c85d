package store

import (
	"github.com/google/uuid"

	"github.com/mpatra/handrange/internal/ranging"
)

// Recorder writes one measurement row per estimate into a session opened
// for the current run. It implements the measurement loop's recorder.
type Recorder struct {
	store   *Store
	session *Session
}

// NewRecorder opens a new session for the given camera and returns a
// Recorder bound to it.
func NewRecorder(s *Store, cameraID int) (*Recorder, error) {
	sess := &Session{
		ID:       uuid.New().String(),
		CameraID: cameraID,
	}
	if err := s.Sessions().Create(sess); err != nil {
		return nil, err
	}

	return &Recorder{store: s, session: sess}, nil
}

// SessionID returns the ID of the session being recorded into.
func (r *Recorder) SessionID() string {
	return r.session.ID
}

// Record persists one distance reading.
func (r *Recorder) Record(est ranging.Estimate) error {
	return r.store.Measurements().Insert(&Measurement{
		SessionID:  r.session.ID,
		PixelWidth: est.PixelWidth,
		DistanceCM: est.CM,
		DistanceM:  est.M,
		NearRange:  est.NearRange(),
	})
}

// Close marks the session as ended.
func (r *Recorder) Close() error {
	return r.store.Sessions().End(r.session.ID)
}
