// Package chat connects storage to the process bridge: it decides whether a
// turn resumes an existing session and, in fallback mode, records both
// sides of the conversation.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"

	"claudeweb/internal/logger"
	"claudeweb/internal/providers"
	"claudeweb/internal/storage"
	"claudeweb/internal/types"
)

// Spawner runs agent turns.
type Spawner interface {
	Spawn(ctx context.Context, req providers.SpawnRequest) <-chan types.StreamEvent
	Abort(sessionID string) bool
	IsRunning(sessionID string) bool
	Running() []string
}

// Service sends user messages to the agent.
type Service struct {
	adapter   storage.Adapter
	spawner   Spawner
	workspace string
	log       *log.Logger
}

// NewService creates a chat service.
func NewService(adapter storage.Adapter, spawner Spawner, workspace string) *Service {
	return &Service{
		adapter:   adapter,
		spawner:   spawner,
		workspace: workspace,
		log:       logger.New("chat"),
	}
}

// Send starts an agent turn for message and returns its event stream.
func (s *Service) Send(ctx context.Context, sessionID, message string) (<-chan types.StreamEvent, error) {
	if err := storage.ValidateID("send", sessionID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(message) == "" {
		return nil, &storage.Error{Kind: storage.ErrInvalidArgument, Op: "send", ID: sessionID, Err: errors.New("message is required")}
	}

	resume, err := s.adapter.HasHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	fallback := s.adapter.Mode() == storage.ModeFallback
	if fallback {
		if _, err := s.adapter.AppendMessage(ctx, sessionID, storage.NewMessage{Role: types.RoleUser, Content: message}); err != nil {
			s.log.Warn("failed to record user message", "session", sessionID, "err", err)
		}
	}

	s.log.Debug("sending message", "session", sessionID, "resume", resume, "mode", s.adapter.Mode())
	stream := s.spawner.Spawn(ctx, providers.SpawnRequest{
		SessionID: sessionID,
		Message:   message,
		Workspace: s.workspace,
		Resume:    resume,
	})

	if !fallback {
		return stream, nil
	}
	return s.recordReply(ctx, sessionID, stream), nil
}

// recordReply forwards stream unchanged and, once it ends, appends the
// accumulated assistant text to the fallback store.
func (s *Service) recordReply(ctx context.Context, sessionID string, stream <-chan types.StreamEvent) <-chan types.StreamEvent {
	out := make(chan types.StreamEvent, cap(stream))
	go func() {
		defer close(out)
		var reply strings.Builder
		for ev := range stream {
			if ev.Type == types.StreamChunk {
				reply.WriteString(ev.Content)
			}
			if ev.Type == types.StreamDone && reply.Len() > 0 {
				if _, err := s.adapter.AppendMessage(context.Background(), sessionID, storage.NewMessage{
					Role:    types.RoleAssistant,
					Content: reply.String(),
				}); err != nil {
					s.log.Warn("failed to record assistant reply", "session", sessionID, "err", err)
				}
			}
			select {
			case out <- ev:
			case <-ctx.Done():
			}
		}
	}()
	return out
}

// Stop aborts the running turn for a session.
func (s *Service) Stop(sessionID string) (bool, error) {
	if err := storage.ValidateID("stop", sessionID); err != nil {
		return false, err
	}
	return s.spawner.Abort(sessionID), nil
}

// IsRunning reports whether a turn is in progress.
func (s *Service) IsRunning(sessionID string) bool {
	return s.spawner.IsRunning(sessionID)
}

// Running returns the sessions with a turn in progress.
func (s *Service) Running() []string {
	return s.spawner.Running()
}
