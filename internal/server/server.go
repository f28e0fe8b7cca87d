// Package server exposes sessions, agent streaming and storage change
// notifications over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"claudeweb/internal/chat"
	"claudeweb/internal/logger"
	"claudeweb/internal/storage"
)

// DefaultHeartbeat is how often idle watch connections are pinged.
const DefaultHeartbeat = 30 * time.Second

// Server provides the REST API handlers.
type Server struct {
	adapter   storage.Adapter
	chat      *chat.Service
	detection storage.Detection
	heartbeat time.Duration
	upgrader  websocket.Upgrader
	log       *log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHeartbeat overrides the watch heartbeat interval.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// New creates the API server.
func New(adapter storage.Adapter, chatSvc *chat.Service, detection storage.Detection, opts ...Option) *Server {
	s := &Server{
		adapter:   adapter,
		chat:      chatSvc,
		detection: detection,
		heartbeat: DefaultHeartbeat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: logger.New("http"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/sessions", s.listSessions)
	mux.HandleFunc("POST /api/sessions", s.createSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.getSession)
	mux.HandleFunc("PATCH /api/sessions/{id}", s.renameSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.deleteSession)
	mux.HandleFunc("GET /api/sessions/{id}/messages", s.getMessages)
	mux.HandleFunc("GET /api/sessions/{id}/stream", s.streamMessage)
	mux.HandleFunc("POST /api/sessions/{id}/stop", s.stopSession)

	mux.HandleFunc("GET /api/watch", s.watchSSE)
	mux.HandleFunc("GET /api/watch/ws", s.watchWebSocket)
	mux.HandleFunc("GET /api/sync-status", s.syncStatus)

	return s.logRequests(corsMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// logRequests logs each request once it has been handled. The writer is
// passed through untouched so streaming and hijacking keep working.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps a storage error kind onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeStorageError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("storage failure", "err", err)
	}
	writeError(w, status, err.Error())
}

// --- Sync status ---

func (s *Server) syncStatus(w http.ResponseWriter, r *http.Request) {
	running := s.chat.Running()
	if running == nil {
		running = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":      s.adapter.Mode(),
		"detection": s.detection,
		"running":   running,
	})
}
