package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"slotdrop/internal/files"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

const (
	msgNotFound    = "File not found"
	msgConflict    = "File already submitted"
	msgExpired     = "File descriptor expired, please request another upload."
	msgInternal    = "internal server error"
	msgRateLimited = "rate limit exceeded"
)

// failJSON maps a service error onto a JSON error response.
func (s *Server) failJSON(w http.ResponseWriter, r *http.Request, err error) {
	var verr *files.ValidationError
	var ierr *files.InputError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string][]string{"error": verr.Messages})
	case errors.Is(err, files.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, files.ErrConflict):
		writeError(w, http.StatusBadRequest, msgConflict)
	case errors.Is(err, files.ErrExpired):
		writeError(w, http.StatusBadRequest, msgExpired)
	case errors.As(err, &ierr):
		writeError(w, http.StatusBadRequest, ierr.Msg)
	default:
		s.internalError(w, r, err)
	}
}

// failRead is failJSON for the read endpoints, which answer 404 with no body.
func (s *Server) failRead(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, files.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	s.internalError(w, r, err)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.WithContext(r.Context()).Error("request failed", map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
	}, err)
	writeError(w, http.StatusInternalServerError, msgInternal)
}
