package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elitetrace/factcheckd/internal/bus"
)

// SSEWriter helps write Server-Sent Events.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends one SSE event.
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// handleEvents bridges the notification bus onto an SSE stream. A client
// can narrow the stream with ?kinds=AI_RESULT,HISTORY_UPDATED; by default
// every broadcast is forwarded. A client that connects after a broadcast
// has missed it: resynchronizing from GET /state is its responsibility.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the headers go out so that a client publishing
	// right after connect cannot slip past the stream.
	match := kindFilter(r.URL.Query().Get("kinds"))
	events, unsubscribe := s.bus.Subscribe(match)
	defer unsubscribe()

	writer, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writer.WriteEvent(eventName(event.Kind), event.Payload); err != nil {
				return
			}
		}
	}
}

// kindFilter builds a subscription predicate from a comma-separated kinds
// parameter; empty means match everything.
func kindFilter(param string) func(bus.Event) bool {
	if param == "" {
		return nil
	}
	wanted := make(map[bus.Kind]bool)
	for _, kind := range strings.Split(param, ",") {
		wanted[bus.Kind(strings.TrimSpace(kind))] = true
	}
	return func(e bus.Event) bool { return wanted[e.Kind] }
}

func eventName(kind bus.Kind) string {
	return strings.ToLower(string(kind))
}
