package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/rentledger/rentledger/internal/data"
	"github.com/rentledger/rentledger/internal/docstore"
)

// HandleHealth reports server health
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"name":    s.config.Server.Name,
		"version": s.config.Server.Version,
	})
}

// decodeAndValidate decodes the request body into req and validates it.
// On failure it writes the error response and returns false.
func (s *RESTServer) decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// respondDataError maps data layer errors onto HTTP statuses
func (s *RESTServer) respondDataError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, data.ErrUnauthenticated):
		s.respondError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, docstore.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, data.ErrContractConflict):
		s.respondError(w, http.StatusConflict, "room already has an open contract")
	case errors.Is(err, docstore.ErrInvalidData):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("Request failed")
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// respondError responds with error
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}
