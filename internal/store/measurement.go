package store

import (
	"database/sql"
	"time"
)

// Measurement is one recorded per-frame distance reading.
type Measurement struct {
	ID         int64
	SessionID  string
	RecordedAt time.Time
	PixelWidth float64
	DistanceCM float64
	DistanceM  float64
	NearRange  bool
}

// MeasurementRepository provides access to recorded distance readings.
type MeasurementRepository struct {
	db *sql.DB
}

// Measurements returns the measurement repository for this store.
func (s *Store) Measurements() *MeasurementRepository {
	return &MeasurementRepository{db: s.db}
}

// Insert records a reading. RecordedAt is set to the current time.
func (r *MeasurementRepository) Insert(m *Measurement) error {
	m.RecordedAt = time.Now()

	nearRange := 0
	if m.NearRange {
		nearRange = 1
	}

	result, err := r.db.Exec(
		`INSERT INTO measurements (session_id, recorded_at, pixel_width, distance_cm, distance_m, near_range)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.SessionID, m.RecordedAt, m.PixelWidth, m.DistanceCM, m.DistanceM, nearRange,
	)
	if err != nil {
		return err
	}

	m.ID, err = result.LastInsertId()
	return err
}

// ListBySession retrieves up to limit readings for one session, most
// recent first. A limit of 0 or less returns all of them.
func (r *MeasurementRepository) ListBySession(sessionID string, limit int) ([]*Measurement, error) {
	query := `SELECT id, session_id, recorded_at, pixel_width, distance_cm, distance_m, near_range
		 FROM measurements WHERE session_id = ? ORDER BY recorded_at DESC, id DESC`
	args := []any{sessionID}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMeasurements(rows)
}

// Recent retrieves the most recent readings across all sessions.
func (r *MeasurementRepository) Recent(limit int) ([]*Measurement, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, recorded_at, pixel_width, distance_cm, distance_m, near_range
		 FROM measurements ORDER BY recorded_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMeasurements(rows)
}

// CountBySession returns the number of readings recorded for a session.
func (r *MeasurementRepository) CountBySession(sessionID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM measurements WHERE session_id = ?`,
		sessionID,
	).Scan(&count)
	return count, err
}

func scanMeasurements(rows *sql.Rows) ([]*Measurement, error) {
	var measurements []*Measurement
	for rows.Next() {
		m := &Measurement{}
		var nearRange int

		err := rows.Scan(&m.ID, &m.SessionID, &m.RecordedAt, &m.PixelWidth, &m.DistanceCM, &m.DistanceM, &nearRange)
		if err != nil {
			return nil, err
		}

		m.NearRange = nearRange != 0
		measurements = append(measurements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return measurements, nil
}
