package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"claudeweb/internal/storage"
	"claudeweb/internal/types"
)

// --- Sessions ---

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.adapter.ListSessions(r.Context())
	if err != nil {
		s.writeStorageError(w, err)
		return
	}
	if sessions == nil {
		sessions = []types.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	// The body is optional; a missing or unreadable one means no title.
	var body struct {
		Title string `json:"title"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	session, err := s.adapter.CreateSession(r.Context(), strings.TrimSpace(body.Title))
	if err != nil {
		s.writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"session": session})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := storage.ValidateID("get", id); err != nil {
		s.writeStorageError(w, err)
		return
	}
	session, err := s.adapter.GetSession(r.Context(), id)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": session,
		"running": s.chat.IsRunning(id),
	})
}

func (s *Server) renameSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := storage.ValidateID("rename", id); err != nil {
		s.writeStorageError(w, err)
		return
	}

	var body struct {
		Title *string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.Title == nil || strings.TrimSpace(*body.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if err := s.adapter.RenameSession(r.Context(), id, strings.TrimSpace(*body.Title)); err != nil {
		s.writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.adapter.DeleteSession(r.Context(), id); err != nil {
		s.writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	messages, err := s.adapter.GetMessages(r.Context(), id)
	if err != nil {
		s.writeStorageError(w, err)
		return
	}
	if messages == nil {
		messages = []types.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) stopSession(w http.ResponseWriter, r *http.Request) {
	stopped, err := s.chat.Stop(r.PathValue("id"))
	if err != nil {
		s.writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true, "stopped": stopped})
}
