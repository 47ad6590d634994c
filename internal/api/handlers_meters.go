package api

import (
	"net/http"

	"github.com/rentledger/rentledger/internal/models"
)

// ========== Meter Reading Handlers ==========

// HandleListMeterReadings lists readings newest first, ?room= narrows to
// one room.
func (s *RESTServer) HandleListMeterReadings(w http.ResponseWriter, r *http.Request) {
	readings, err := s.data.MeterReadings(r.Context(), r.URL.Query().Get("room"))
	if err != nil {
		s.respondDataError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"readings": readings,
		"total":    len(readings),
	})
}

// HandleLatestMeterReading gets the most recent reading for a room
func (s *RESTServer) HandleLatestMeterReading(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		s.respondError(w, http.StatusBadRequest, "room query parameter is required")
		return
	}

	reading, err := s.data.LatestMeterReading(r.Context(), roomID)
	if err != nil {
		s.respondDataError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, reading)
}

// HandleCreateMeterReading records a meter reading
func (s *RESTServer) HandleCreateMeterReading(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID          string  `json:"roomId" validate:"required"`
		Reading         float64 `json:"reading" validate:"min=0"`
		PreviousReading float64 `json:"previousReading" validate:"min=0"`
		Date            string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
		Month           string  `json:"month" validate:"required"`
		Year            string  `json:"year" validate:"required,len=4"`
		Rate            float64 `json:"rate" validate:"min=0"`
		Notes           string  `json:"notes" validate:"max=500"`
	}
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	if req.Reading < req.PreviousReading {
		s.respondError(w, http.StatusBadRequest, "reading must not be below previous reading")
		return
	}

	reading := models.MeterReading{
		RoomID:          req.RoomID,
		Reading:         req.Reading,
		PreviousReading: req.PreviousReading,
		Date:            req.Date,
		Month:           req.Month,
		Year:            req.Year,
		Rate:            req.Rate,
		Notes:           req.Notes,
	}

	id, err := s.data.SaveMeterReading(r.Context(), reading)
	if err != nil {
		s.respondDataError(w, err)
		return
	}
	reading.ID = id
	reading.Consumption = reading.Reading - reading.PreviousReading

	s.respondJSON(w, http.StatusCreated, reading)
}
