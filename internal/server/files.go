package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/google/uuid"

	"slotdrop/internal/files"
)

// createFileResp is returned after a reservation is created.
type createFileResp struct {
	Status string `json:"status"`
	FileID string `json:"fileId"`
}

// handleCreateFile handles POST /file: step 1 of the upload flow. The
// client describes the file it will send and gets back the id to upload
// against.
//
// Request body: JSON or urlencoded form with description, extension, tags
// Response: {"status":"ok","fileId":"<uuid>"}
func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Limits.MaxMetaBytes)

	in, err := readReservationInput(r)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		// Anything else unreadable is treated as an empty submission.
		in = files.ReservationInput{}
	}

	id, err := s.svc.CreateReservation(r.Context(), in)
	if err != nil {
		s.failJSON(w, r, err)
		return
	}

	s.metrics.RecordReservation()
	writeJSON(w, http.StatusOK, createFileResp{Status: "ok", FileID: id.String()})
}

// readReservationInput accepts application/json and
// application/x-www-form-urlencoded bodies. JSON fields that are not
// strings count as missing.
func readReservationInput(r *http.Request) (files.ReservationInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/json":
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return files.ReservationInput{}, err
		}
		return files.ReservationInput{
			Description: jsonString(body, "description"),
			Extension:   jsonString(body, "extension"),
			Tags:        jsonString(body, "tags"),
		}, nil

	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return files.ReservationInput{}, err
		}
		return files.ReservationInput{
			Description: formString(r, "description"),
			Extension:   formString(r, "extension"),
			Tags:        formString(r, "tags"),
		}, nil
	}

	return files.ReservationInput{}, nil
}

func jsonString(body map[string]any, key string) *string {
	if s, ok := body[key].(string); ok {
		return &s
	}
	return nil
}

func formString(r *http.Request, key string) *string {
	if v, ok := r.PostForm[key]; ok && len(v) > 0 {
		return &v[0]
	}
	return nil
}

// handleGetMetadata handles GET /file/{fileId}.
func (s *Server) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	md, err := s.svc.GetMetadata(r.Context(), id)
	if err != nil {
		s.failRead(w, r, err)
		return
	}

	s.metrics.RecordMetadataRead()
	writeJSON(w, http.StatusOK, md)
}

// pathID parses {fileId}. Anything that is not a UUID cannot name a record.
func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("fileId"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
