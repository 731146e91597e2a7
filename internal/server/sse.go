package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pageforge-ai/pageforge/internal/event"
	"github.com/pageforge-ai/pageforge/internal/logging"
)

// SSEHeartbeatInterval is the interval for SSE heartbeats on long-lived
// event connections.
const SSEHeartbeatInterval = 30 * time.Second

// BusEvent is the wire form of a bus event on /event.
type BusEvent struct {
	Type       event.EventType `json:"type"`
	Properties any             `json:"properties"`
}

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

// newSSEWriter creates a new SSE writer.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	rc := http.NewResponseController(w)

	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	return &sseWriter{w: w, flusher: flusher, rc: rc}, nil
}

// prepare sets the SSE headers and flushes them to the client.
func (s *sseWriter) prepare() {
	s.w.Header().Set("Content-Type", "text/event-stream")
	s.w.Header().Set("Cache-Control", "no-cache")
	s.w.Header().Set("Connection", "keep-alive")
	s.w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	s.w.WriteHeader(http.StatusOK)
	s.flusher.Flush()
}

// writeData writes one data record and flushes it.
func (s *sseWriter) writeData(data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", jsonData); err != nil {
		return err
	}

	// ResponseController flush is more reliable than the Flusher interface
	// when middleware wraps the writer.
	if flushErr := s.rc.Flush(); flushErr != nil {
		s.flusher.Flush()
	}

	return nil
}

// writeHeartbeat writes an SSE heartbeat comment.
func (s *sseWriter) writeHeartbeat() {
	fmt.Fprintf(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

// events handles GET /event: a fan-out of the server event bus, so
// connected clients can follow project and file changes live.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sse.prepare()

	// Small buffer keeps latency low; a slow client drops events rather
	// than stalling publishers.
	events := make(chan event.Event, 10)

	unsub := s.bus.SubscribeAll(func(e event.Event) {
		select {
		case events <- e:
		default:
			logging.Warn().
				Str("eventType", string(e.Type)).
				Msg("SSE event dropped: channel full")
		}
	})
	defer unsub()

	ticker := time.NewTicker(SSEHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			if err := sse.writeData(BusEvent{Type: e.Type, Properties: e.Data}); err != nil {
				return
			}
		case <-ticker.C:
			sse.writeHeartbeat()
		}
	}
}
