// Package types provides event classification using the Discriminated Union pattern.
// The `type` field in each JSON event acts as the discriminator (tag) that determines
// which concrete Go type should be used for full parsing.
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject is returned when a line is valid JSON but not an object.
var ErrNotObject = errors.New("not a JSON object")

// =============================================================================
// JSONL EVENT CLASSIFIER
// =============================================================================

// JSONLEventType represents the classified type of a JSONL event.
type JSONLEventType int

const (
	JSONLEventUnknown JSONLEventType = iota
	JSONLEventUser
	JSONLEventAssistant
	JSONLEventSystem
	JSONLEventSummary
	JSONLEventFileHistorySnapshot
	JSONLEventQueueOperation
)

// String returns a human-readable name for the event type.
func (t JSONLEventType) String() string {
	switch t {
	case JSONLEventUser:
		return "user"
	case JSONLEventAssistant:
		return "assistant"
	case JSONLEventSystem:
		return "system"
	case JSONLEventSummary:
		return "summary"
	case JSONLEventFileHistorySnapshot:
		return "file-history-snapshot"
	case JSONLEventQueueOperation:
		return "queue-operation"
	default:
		return "unknown"
	}
}

// ClassifiedJSONLEvent holds the parsed JSONL event with its classified type.
// At most ONE of the event pointers will be non-nil based on EventType.
// Summary and snapshot records are classified but not decoded.
type ClassifiedJSONLEvent struct {
	EventType JSONLEventType

	User           *UserEvent
	Assistant      *AssistantEvent
	System         *SystemEvent
	QueueOperation *QueueOperationEvent
}

// discriminator is the first-pass shape shared by both classifiers.
type discriminator struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype,omitempty"`
}

func readDiscriminator(line []byte) (discriminator, error) {
	var d discriminator
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return d, fmt.Errorf("empty line")
	}
	if trimmed[0] != '{' {
		if json.Valid(trimmed) {
			return d, ErrNotObject
		}
		return d, fmt.Errorf("failed to parse discriminator: invalid JSON")
	}
	if err := json.Unmarshal(trimmed, &d); err != nil {
		return d, fmt.Errorf("failed to parse discriminator: %w", err)
	}
	return d, nil
}

// ClassifyJSONLEvent parses a JSONL line and returns a classified event.
// It uses two-pass parsing: first extracting the discriminator, then parsing
// into the correct concrete type.
func ClassifyJSONLEvent(line []byte) (*ClassifiedJSONLEvent, error) {
	d, err := readDiscriminator(line)
	if err != nil {
		return nil, err
	}

	result := &ClassifiedJSONLEvent{}

	switch d.Type {
	case EventTypeUser:
		result.EventType = JSONLEventUser
		var event UserEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("failed to parse user event: %w", err)
		}
		result.User = &event

	case EventTypeAssistant:
		result.EventType = JSONLEventAssistant
		var event AssistantEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("failed to parse assistant event: %w", err)
		}
		result.Assistant = &event

	case EventTypeSystem:
		result.EventType = JSONLEventSystem
		var event SystemEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("failed to parse system event: %w", err)
		}
		result.System = &event

	case EventTypeSummary:
		result.EventType = JSONLEventSummary

	case EventTypeFileHistorySnapshot:
		result.EventType = JSONLEventFileHistorySnapshot

	case EventTypeQueueOperation:
		result.EventType = JSONLEventQueueOperation
		var event QueueOperationEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("failed to parse queue-operation event: %w", err)
		}
		result.QueueOperation = &event

	default:
		result.EventType = JSONLEventUnknown
	}

	return result, nil
}

// Timestamp returns the record timestamp for user and assistant events.
func (c *ClassifiedJSONLEvent) Timestamp() string {
	switch c.EventType {
	case JSONLEventUser:
		return c.User.Timestamp
	case JSONLEventAssistant:
		return c.Assistant.Timestamp
	case JSONLEventSystem:
		return c.System.Timestamp
	case JSONLEventQueueOperation:
		return c.QueueOperation.Timestamp
	}
	return ""
}

// =============================================================================
// STREAMING EVENT CLASSIFIER
// =============================================================================

// StreamingEventType represents the classified type of a streaming event.
type StreamingEventType int

const (
	StreamingEventUnknown StreamingEventType = iota
	StreamingEventSystemInit
	StreamingEventAssistant
	StreamingEventUser
	StreamingEventContentBlockDelta
	StreamingEventMetadata
	StreamingEventResultSuccess
	StreamingEventResultError
)

// String returns a human-readable name for the streaming event type.
func (t StreamingEventType) String() string {
	switch t {
	case StreamingEventSystemInit:
		return "system:init"
	case StreamingEventAssistant:
		return "assistant"
	case StreamingEventUser:
		return "user"
	case StreamingEventContentBlockDelta:
		return "content_block_delta"
	case StreamingEventMetadata:
		return "metadata"
	case StreamingEventResultSuccess:
		return "result:success"
	case StreamingEventResultError:
		return "result:error"
	default:
		return "unknown"
	}
}

// ClassifiedStreamingEvent holds the parsed streaming event with its classified type.
type ClassifiedStreamingEvent struct {
	EventType StreamingEventType

	SystemInit *SystemInitEvent
	Assistant  *StreamingAssistantEvent
	Delta      *ContentBlockDeltaEvent
	Result     *ResultEvent

	// ResultText is the text of an object-form "result" field on any event.
	ResultText string
}

// ClassifyStreamingEvent parses a streaming JSON line and returns a classified event.
// Lines that are not JSON objects return an error.
func ClassifyStreamingEvent(line []byte) (*ClassifiedStreamingEvent, error) {
	d, err := readDiscriminator(line)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(line, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse result field: %w", err)
	}

	result := &ClassifiedStreamingEvent{ResultText: ResultText(envelope.Result)}

	switch d.Type {
	case StreamTypeSystem:
		if d.Subtype == SystemSubtypeInit {
			result.EventType = StreamingEventSystemInit
			var event SystemInitEvent
			if err := json.Unmarshal(line, &event); err != nil {
				return nil, fmt.Errorf("failed to parse system:init event: %w", err)
			}
			result.SystemInit = &event
		} else {
			result.EventType = StreamingEventMetadata
		}

	case StreamTypeAssistant:
		result.EventType = StreamingEventAssistant
		var event StreamingAssistantEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("failed to parse assistant event: %w", err)
		}
		result.Assistant = &event

	case StreamTypeUser:
		result.EventType = StreamingEventUser

	case StreamTypeContentBlockDelta:
		result.EventType = StreamingEventContentBlockDelta
		var event ContentBlockDeltaEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("failed to parse content_block_delta event: %w", err)
		}
		result.Delta = &event

	case StreamTypeMessageStart, StreamTypeMessageDelta, StreamTypeMessageStop,
		StreamTypeContentBlockStart, StreamTypeContentBlockStop:
		result.EventType = StreamingEventMetadata

	case StreamTypeResult:
		if d.Subtype == ResultSubtypeSuccess {
			result.EventType = StreamingEventResultSuccess
		} else {
			result.EventType = StreamingEventResultError
		}
		var event ResultEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("failed to parse result event: %w", err)
		}
		result.Result = &event

	default:
		result.EventType = StreamingEventUnknown
	}

	return result, nil
}
