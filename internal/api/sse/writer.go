// Package sse provides Server-Sent Events support for pushing chat state
// to the browser.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// EventType represents the type of SSE event.
type EventType string

const (
	// EventSession is a session state change event.
	EventSession EventType = "session"
	// EventChats is a chat list snapshot event.
	EventChats EventType = "chats"
	// EventHistory is a message history snapshot event.
	EventHistory EventType = "history"
	// EventSendFailure is a failed-send notice event.
	EventSendFailure EventType = "send_failure"
	// EventAdmin is an admin panel snapshot event.
	EventAdmin EventType = "admin"
	// EventError is an inline error event.
	EventError EventType = "error"
)

// Writer writes Server-Sent Events to an HTTP response.
type Writer struct {
	writer  http.ResponseWriter
	flusher http.Flusher
}

// NewWriter creates a new SSE writer.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &Writer{
		writer:  w,
		flusher: flusher,
	}, nil
}

// WriteEvent writes an SSE event with the given type and data.
func (w *Writer) WriteEvent(eventType EventType, data string) error {
	_, err := fmt.Fprintf(w.writer, "event: %s\ndata: %s\n\n", eventType, data)
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// WriteJSON writes an SSE event with JSON-encoded data.
func (w *Writer) WriteJSON(eventType EventType, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	return w.WriteEvent(eventType, string(jsonData))
}

// WriteComment writes an SSE comment line. Used as a keepalive.
func (w *Writer) WriteComment(comment string) error {
	_, err := fmt.Fprintf(w.writer, ": %s\n\n", comment)
	if err != nil {
		return fmt.Errorf("failed to write comment: %w", err)
	}
	w.flusher.Flush()
	return nil
}
