package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// Stream is a server-sent events response. Send and Comment may be called
// from different goroutines.
type Stream struct {
	w       http.ResponseWriter
	r       *http.Request
	flusher http.Flusher
	mu      sync.Mutex
}

// NewStream sets the event-stream headers. It returns nil if w cannot flush.
func NewStream(w http.ResponseWriter, r *http.Request) *Stream {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, r: r, flusher: flusher}
}

// Send writes a named event with a JSON payload.
func (s *Stream) Send(event string, data any) error {
	if s.Closed() {
		return ErrConnClosed
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Comment writes a keepalive comment line.
func (s *Stream) Comment(msg string) {
	if s.Closed() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, ": %s\n\n", msg)
	s.flusher.Flush()
}

// Closed reports whether the client went away.
func (s *Stream) Closed() bool {
	select {
	case <-s.r.Context().Done():
		return true
	default:
		return false
	}
}
