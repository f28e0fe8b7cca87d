// Package types provides streaming event definitions for the Claude Code CLI.
// Command: claude -p --output-format stream-json --verbose "prompt"
package types

import (
	"bytes"
	"encoding/json"
)

// =============================================================================
// STREAMING EVENT CONSTANTS
// =============================================================================

// Streaming event type discriminators
const (
	StreamTypeSystem            = "system"
	StreamTypeAssistant         = "assistant"
	StreamTypeUser              = "user"
	StreamTypeResult            = "result"
	StreamTypeMessageStart      = "message_start"
	StreamTypeMessageDelta      = "message_delta"
	StreamTypeMessageStop       = "message_stop"
	StreamTypeContentBlockStart = "content_block_start"
	StreamTypeContentBlockDelta = "content_block_delta"
	StreamTypeContentBlockStop  = "content_block_stop"
)

// ResultSubtypeSuccess marks a turn that completed normally. Failures carry
// subtypes such as "error_max_turns" or "error_during_execution".
const ResultSubtypeSuccess = "success"

// =============================================================================
// SYSTEM INIT EVENT
// =============================================================================

// SystemInitEvent is the first streaming event, containing session data.
type SystemInitEvent struct {
	SessionID string `json:"session_id"`
	Cwd       string `json:"cwd"`
	Model     string `json:"model"`
}

// =============================================================================
// ASSISTANT / DELTA EVENTS
// =============================================================================

// StreamingAssistantEvent represents Claude's response in streaming output.
type StreamingAssistantEvent struct {
	Message StreamingAssistantMessage `json:"message"`
}

// StreamingAssistantMessage is the message content in a streaming assistant event.
// Content is nil when the record carried no content array.
type StreamingAssistantMessage struct {
	Content Blocks `json:"content"`
}

// ContentBlockDeltaEvent carries an incremental piece of a content block.
type ContentBlockDeltaEvent struct {
	Delta struct {
		Text string `json:"text"`
	} `json:"delta"`
}

// =============================================================================
// RESULT EVENT
// =============================================================================

// ResultEvent is the final streaming event with completion info. Result is
// a plain string on current CLI builds and an object with a text field on
// older ones, so it is kept raw.
type ResultEvent struct {
	Subtype    string          `json:"subtype"`
	IsError    bool            `json:"is_error"`
	Result     json.RawMessage `json:"result,omitempty"`
	DurationMs int             `json:"duration_ms"`
	NumTurns   int             `json:"num_turns"`
}

// Failed reports whether the turn ended in an error. A result without a
// subtype is treated as success unless is_error is set.
func (e *ResultEvent) Failed() bool {
	return e.IsError || (e.Subtype != "" && e.Subtype != ResultSubtypeSuccess)
}

// ErrorMessage describes a failed result, preferring the CLI's own text.
func (e *ResultEvent) ErrorMessage() string {
	var s string
	if err := json.Unmarshal(e.Result, &s); err == nil && s != "" {
		return s
	}
	if text := ResultText(e.Result); text != "" {
		return text
	}
	if e.Subtype != "" {
		return "claude ended the turn with " + e.Subtype
	}
	return "claude ended the turn with an error"
}

// ResultText returns the text of an object-form result, or "".
func ResultText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return ""
	}
	return obj.Text
}
