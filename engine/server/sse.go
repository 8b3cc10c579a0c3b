package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// sseSink writes client-facing frames to an HTTP response as
// Server-Sent-Events, flushing after every frame. It implements chat.Sink.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSESink(w http.ResponseWriter) (*sseSink, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return &sseSink{w: w, flusher: flusher}, nil
}

func (s *sseSink) SendFrame(payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode stream frame: %w", err)
	}
	return s.write(string(encoded))
}

func (s *sseSink) SendDone() error {
	return s.write("[DONE]")
}

func (s *sseSink) write(payload string) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
