package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const streamWriteTimeout = 30 * time.Second

// uiStreamPart is one event of the UI message stream protocol consumed by the
// chat frontend.
type uiStreamPart struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Delta     string `json:"delta,omitempty"`
	ErrorText string `json:"errorText,omitempty"`
}

// sseWriter frames parts as server-sent events and flushes after each one.
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("x-vercel-ai-ui-message-stream", "v1")
	w.WriteHeader(http.StatusOK)

	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *sseWriter) send(part uiStreamPart) error {
	data, err := json.Marshal(part)
	if err != nil {
		return err
	}
	return s.writeData(string(data))
}

func (s *sseWriter) done() error {
	return s.writeData("[DONE]")
}

func (s *sseWriter) writeData(payload string) error {
	// Not every ResponseWriter supports deadlines.
	_ = s.rc.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return s.rc.Flush()
}
