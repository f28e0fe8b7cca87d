package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"claudeweb/internal/types"
)

type sessionOut struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
	Running      bool      `json:"running"`
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleListSessions handles the list_sessions tool call
func (s *MCPService) handleListSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := s.adapter.ListSessions(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}

	out := make([]sessionOut, len(sessions))
	for i, sess := range sessions {
		out[i] = sessionOut{
			ID:           sess.ID,
			Title:        sess.Title,
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
			MessageCount: sess.MessageCount,
			Running:      s.chat.IsRunning(sess.ID),
		}
	}
	return jsonResult(out)
}

// handleGetMessages handles the get_messages tool call
func (s *MCPService) handleGetMessages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	messages, err := s.adapter.GetMessages(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get messages: %v", err)), nil
	}

	// Optional limit keeps the tail of the conversation.
	if args, ok := req.Params.Arguments.(map[string]any); ok {
		if l, ok := args["limit"].(float64); ok && l > 0 && int(l) < len(messages) {
			messages = messages[len(messages)-int(l):]
		}
	}
	if messages == nil {
		messages = []types.Message{}
	}
	return jsonResult(messages)
}

// handleSendMessage handles the send_message tool call.
// It blocks until the turn ends and returns the reply text.
func (s *MCPService) handleSendMessage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError("message is required"), nil
	}

	s.log.Info("send_message", "session", sessionID)
	stream, err := s.chat.Send(ctx, sessionID, message)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var reply strings.Builder
	var failures []string
	for ev := range stream {
		switch ev.Type {
		case types.StreamChunk:
			reply.WriteString(ev.Content)
		case types.StreamError:
			failures = append(failures, ev.Message)
		}
	}

	if len(failures) > 0 && reply.Len() == 0 {
		return mcp.NewToolResultError(strings.Join(failures, "\n")), nil
	}
	text := reply.String()
	if len(failures) > 0 {
		text += "\n\n[errors]\n" + strings.Join(failures, "\n")
	}
	return mcp.NewToolResultText(text), nil
}

// handleStopSession handles the stop_session tool call
func (s *MCPService) handleStopSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := req.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	stopped, err := s.chat.Stop(sessionID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !stopped {
		return mcp.NewToolResultText(fmt.Sprintf("No turn running for session %s", sessionID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Stopped session %s", sessionID)), nil
}

// handleSyncStatus handles the sync_status tool call
func (s *MCPService) handleSyncStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	running := s.chat.Running()
	if running == nil {
		running = []string{}
	}
	return jsonResult(map[string]any{
		"mode":      s.adapter.Mode(),
		"detection": s.detection,
		"running":   running,
	})
}
