// Package types provides JSONL record definitions for Claude Code session files.
package types

import (
	"bytes"
	"encoding/json"
)

// =============================================================================
// EVENT TYPE CONSTANTS
// =============================================================================

// JSONL event type discriminators
const (
	EventTypeUser                = "user"
	EventTypeAssistant           = "assistant"
	EventTypeSystem              = "system"
	EventTypeSummary             = "summary"
	EventTypeFileHistorySnapshot = "file-history-snapshot"
	EventTypeQueueOperation      = "queue-operation"
)

// SystemSubtypeInit is the subtype of the first stream-json event.
const SystemSubtypeInit = "init"

// =============================================================================
// BASE EVENT TYPE
// =============================================================================

// JSONLEvent contains common fields present across most JSONL events.
type JSONLEvent struct {
	Type      string `json:"type"`
	UUID      string `json:"uuid,omitempty"`
	Timestamp string `json:"timestamp"`
}

// =============================================================================
// USER EVENT
// =============================================================================

// UserEvent represents a user input record in the JSONL session file.
type UserEvent struct {
	JSONLEvent
	Message UserMessage `json:"message"`
}

// UserMessage holds the content of a user record. Content is a plain string
// for typed turns and an array of tool_result blocks when the agent feeds
// tool output back to the model.
type UserMessage struct {
	Content json.RawMessage `json:"content"`
}

// Text returns the string content and true when the record is a typed user
// turn. Array content returns false.
func (m UserMessage) Text() (string, bool) {
	trimmed := bytes.TrimSpace(m.Content)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", false
	}
	return s, true
}

// =============================================================================
// ASSISTANT EVENT
// =============================================================================

// AssistantEvent represents Claude's response in the JSONL session file.
// Streaming growth writes several records sharing Message.ID; the last wins.
type AssistantEvent struct {
	JSONLEvent
	Message AssistantMessage `json:"message"`
}

// AssistantMessage represents the message content in an assistant event.
type AssistantMessage struct {
	ID      string `json:"id,omitempty"`
	Content Blocks `json:"content"`
}

// Blocks is an ordered list of content blocks. Decoding is lenient: a bare
// string becomes a single text block and elements that are not block
// objects are dropped instead of failing the whole record.
type Blocks []ContentBlock

// UnmarshalJSON implements json.Unmarshaler.
func (b *Blocks) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*b = nil
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*b = Blocks{{Type: BlockTypeText, Text: s}}
		return nil
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		out := make(Blocks, 0, len(raw))
		for _, r := range raw {
			var block ContentBlock
			if err := json.Unmarshal(r, &block); err != nil {
				continue
			}
			if block.Type == "" {
				continue
			}
			out = append(out, block)
		}
		*b = out
		return nil
	default:
		*b = nil
		return nil
	}
}

// =============================================================================
// SYSTEM / QUEUE EVENTS
// =============================================================================

// SystemEvent represents system metadata records. Only the timestamp is
// used, to date the session.
type SystemEvent struct {
	JSONLEvent
}

// QueueOperationEvent tracks message queue operations. It is usually the
// first record of a log, so it dates the session.
type QueueOperationEvent struct {
	Timestamp string `json:"timestamp"`
}
