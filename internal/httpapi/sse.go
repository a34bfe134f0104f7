package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hay-kot/shoppulse/internal/core/feed"
)

// streamHandler serves snapshots as Server-Sent Events until the client leaves.
func (s *Server) streamHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log := s.log.With().Str("client", uuid.NewString()).Str("transport", "sse").Logger()
	rc := http.NewResponseController(w)

	events := make(chan []byte, sendBuffer)
	sub := s.feed.Connect(func(snap feed.Snapshot) {
		data, err := json.Marshal(snap)
		if err != nil {
			log.Error().Err(err).Msg("marshal snapshot")
			return
		}
		select {
		case events <- data:
		default:
			s.opts.OnDrop("sse")
			log.Warn().Msg("event buffer full, dropping snapshot")
		}
	})
	defer sub.Close()

	log.Info().Str("remote", r.RemoteAddr).Msg("stream client connected")
	defer log.Info().Msg("stream client disconnected")

	keepalive := time.NewTicker(pingPeriod)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		var frame []byte
		select {
		case <-ctx.Done():
			return
		case data := <-events:
			frame = fmt.Appendf(nil, "data: %s\n\n", data)
		case <-keepalive.C:
			frame = []byte(": keepalive\n\n")
		}

		_ = rc.SetWriteDeadline(time.Now().Add(s.writeWait))
		if _, err := w.Write(frame); err != nil {
			log.Debug().Err(err).Msg("stream write")
			return
		}
		flusher.Flush()
	}
}
