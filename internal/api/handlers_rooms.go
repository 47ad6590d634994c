package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rentledger/rentledger/internal/models"
)

// ========== Room Handlers ==========

// HandleListRooms lists the rooms with derived totals
func (s *RESTServer) HandleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.data.Rooms(r.Context())
	if err != nil {
		s.respondDataError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"rooms": rooms,
		"total": len(rooms),
	})
}

// HandleGetRoom gets one room
func (s *RESTServer) HandleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.data.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondDataError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, room)
}

// HandleSaveRoom creates or updates a room under the id in the path
func (s *RESTServer) HandleSaveRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rent      float64 `json:"rent" validate:"min=0"`
		Water     float64 `json:"water" validate:"min=0"`
		WiFi      float64 `json:"wifi" validate:"min=0"`
		Electric  float64 `json:"electric" validate:"min=0"`
		Occupants int     `json:"occupants" validate:"required,min=1,max=10"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	room := models.Room{
		ID:        chi.URLParam(r, "id"),
		Rent:      req.Rent,
		Water:     req.Water,
		WiFi:      req.WiFi,
		Electric:  req.Electric,
		Occupants: req.Occupants,
	}
	if err := s.data.SaveRoom(r.Context(), room); err != nil {
		s.respondDataError(w, err)
		return
	}

	saved, err := s.data.GetRoom(r.Context(), room.ID)
	if err != nil {
		s.respondDataError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, saved)
}

// HandleDeleteRoom deletes a room
func (s *RESTServer) HandleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := s.data.DeleteRoom(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondDataError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
