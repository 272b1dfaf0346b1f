package server

import (
	"net/http"
	"time"
)

// gate holds requests until the store is ready. Requests that would wait
// longer than ReadyWait are rejected with 503 instead of queueing forever.
func (s *Server) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-s.store.Ready():
			next.ServeHTTP(w, r)
			return
		default:
		}

		t := time.NewTimer(s.cfg.ReadyWait)
		defer t.Stop()

		select {
		case <-s.store.Ready():
			next.ServeHTTP(w, r)
		case <-t.C:
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, "service not ready")
		case <-r.Context().Done():
			// Client went away; nothing to write.
		}
	})
}
