package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"claudeweb/internal/types"
)

// sseWriter writes text/event-stream frames and flushes after each one.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter, status int) *sseWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(status)

	flusher, _ := w.(http.Flusher)
	sw := &sseWriter{w: w, flusher: flusher}
	sw.flush()
	return sw
}

func (sw *sseWriter) flush() {
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
}

// data writes v as a "data:" frame.
func (sw *sseWriter) data(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	sw.flush()
	return nil
}

// comment writes a comment frame, used as a heartbeat.
func (sw *sseWriter) comment(text string) error {
	if _, err := fmt.Fprintf(sw.w, ": %s\n\n", text); err != nil {
		return err
	}
	sw.flush()
	return nil
}

// streamMessage runs one agent turn and relays its events as SSE frames.
// Disconnecting the client cancels the request context, which stops the
// agent process.
func (s *Server) streamMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	message := r.URL.Query().Get("message")

	stream, err := s.chat.Send(r.Context(), id, message)
	if err != nil {
		_ = newSSEWriter(w, statusFor(err)).data(types.Failure(err.Error()))
		return
	}

	sw := newSSEWriter(w, http.StatusOK)
	for ev := range stream {
		if err := sw.data(ev); err != nil {
			s.log.Debug("stream client gone", "session", id, "err", err)
			// Keep draining so the bridge can finish closing the stream.
			for range stream {
			}
			return
		}
	}
}

// watchSSE pushes storage change events until the client disconnects.
func (s *Server) watchSSE(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	done := make(chan struct{})
	events := make(chan types.StorageEvent, 64)

	unsubscribe, err := s.adapter.WatchChanges(func(ev types.StorageEvent) {
		select {
		case events <- ev:
		case <-done:
		}
	})
	if err != nil {
		s.writeStorageError(w, err)
		return
	}
	defer unsubscribe()
	// Runs before unsubscribe so a blocked handler can return.
	defer close(done)

	sw := newSSEWriter(w, http.StatusOK)
	if err := sw.comment("heartbeat"); err != nil {
		return
	}

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if err := sw.data(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := sw.comment("heartbeat"); err != nil {
				return
			}
		}
	}
}
