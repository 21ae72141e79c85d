package api

import (
	"net/http"

	"github.com/mpatra/handrange/internal/store"
)

// MeasurementHandler serves the most recent readings across all
// sessions.
type MeasurementHandler struct {
	store *store.Store
}

// NewMeasurementHandler creates a new MeasurementHandler with the given
// store.
func NewMeasurementHandler(s *store.Store) *MeasurementHandler {
	return &MeasurementHandler{store: s}
}

// ServeHTTP handles GET /api/measurements. The optional ?session_id
// parameter filters to one session; ?limit caps the result, with the
// repository default applying otherwise.
func (h *MeasurementHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var measurements []*store.Measurement
	var err error
	if sessionID := r.URL.Query().Get("session_id"); sessionID != "" {
		measurements, err = h.store.Measurements().ListBySession(sessionID, limitParam(r))
	} else {
		measurements, err = h.store.Measurements().Recent(limitParam(r))
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list measurements")
		return
	}

	resp := listMeasurementsResponse{Measurements: make([]measurementResponse, 0, len(measurements))}
	for _, m := range measurements {
		resp.Measurements = append(resp.Measurements, toMeasurementResponse(m))
	}

	writeJSON(w, http.StatusOK, resp)
}
