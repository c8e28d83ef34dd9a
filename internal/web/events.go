package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Joseda-hg/lazygtd/internal/realtime"
)

const keepAliveInterval = 25 * time.Second

// events streams every change as a server-sent event named after its kind.
// When the hub drops the subscriber the stream ends and the client
// reconnects.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	sub := s.hub.Subscribe(realtime.DefaultBuffer)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "retry: 2000\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case change, ok := <-sub.C():
			if !ok {
				return
			}
			data, err := json.Marshal(change)
			if err != nil {
				s.log.Error().Err(err).Msg("encode change")
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", change.Kind, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
