package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"claudeweb/internal/types"
)

const writeWait = 10 * time.Second

// watchWebSocket is the WebSocket flavour of the watch endpoint: each
// storage event is sent as a JSON text message, and a ping goes out every
// heartbeat interval. The watch is in place before the handshake completes.
func (s *Server) watchWebSocket(w http.ResponseWriter, r *http.Request) {
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
	defer close(done)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.log.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	// The reader only exists to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
