package server

import (
	"net/http"
	"strconv"
	"time"
)

// handleGetData handles GET /file/{fileId}/data and streams the stored
// payload with its recorded content type.
func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := pathID(r)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	blob, err := s.svc.GetBlob(r.Context(), id)
	if err != nil {
		s.metrics.RecordDownloadError()
		s.failRead(w, r, err)
		return
	}

	w.Header().Set("Content-Type", blob.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Content)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob.Content); err != nil {
		s.log.WithContext(r.Context()).Warn("download interrupted", map[string]any{
			"file_id": id.String(),
			"error":   err.Error(),
		})
		return
	}

	s.metrics.RecordDownload(int64(len(blob.Content)), time.Since(start))
}
