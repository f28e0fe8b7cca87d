// Package types provides shared type definitions for claudeweb.
// These types are used across storage, watcher, providers and server packages.
package types

import (
	"encoding/json"
	"time"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is a single conversation turn with fully flattened text content.
// Timestamp is kept as the string found in the log; the agent writes ISO-8601.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ContentBlock represents a single content block within an assistant message.
// Claude messages can contain multiple blocks: text, tool_use, tool_result,
// thinking. Only text and tool_use carry displayable content.
type ContentBlock struct {
	Type string `json:"type"`

	// Text block fields
	Text string `json:"text,omitempty"`

	// Tool use block fields (type: "tool_use")
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"` // kept raw so key order survives re-indenting
}

// Content block type discriminators
const (
	BlockTypeText    = "text"
	BlockTypeToolUse = "tool_use"
)

// =============================================================================
// SESSION TYPES
// =============================================================================

// Session is the metadata describing one conversation.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Workspace    string    `json:"workspace"`
	MessageCount int       `json:"messageCount,omitempty"`
}

// =============================================================================
// STORAGE EVENTS
// =============================================================================

// StorageEventType is the kind of change observed in a backing store.
type StorageEventType string

const (
	SessionAdded   StorageEventType = "session_added"
	SessionUpdated StorageEventType = "session_updated"
	SessionDeleted StorageEventType = "session_deleted"
	MessageAdded   StorageEventType = "message_added"
)

// StorageEvent notifies subscribers that something changed. An empty
// SessionID means "re-list everything".
type StorageEvent struct {
	Type      StorageEventType `json:"type"`
	SessionID string           `json:"sessionId,omitempty"`
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// StreamEventType tags the events a running agent turn produces.
type StreamEventType string

const (
	StreamChunk StreamEventType = "chunk"
	StreamDone  StreamEventType = "done"
	StreamError StreamEventType = "error"
)

// StreamEvent is one normalized event from the process bridge.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Content string          `json:"content,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Chunk returns a chunk event carrying text.
func Chunk(content string) StreamEvent {
	return StreamEvent{Type: StreamChunk, Content: content}
}

// Done returns the terminal event of a stream.
func Done() StreamEvent {
	return StreamEvent{Type: StreamDone}
}

// Failure returns an error event.
func Failure(message string) StreamEvent {
	return StreamEvent{Type: StreamError, Message: message}
}
