// Package transcript reconstructs conversation history from Claude Code
// JSONL session logs.
//
// The agent appends to the log while streaming, so one logical assistant
// message usually appears as several records sharing message.id, each a
// snapshot of the message so far. Only the last snapshot is kept.
package transcript

import (
	"bytes"
	"os"

	"claudeweb/internal/types"
)

// record is one classified line together with its position in the file.
type record struct {
	line  int
	event *types.ClassifiedJSONLEvent
}

// Parse turns raw log bytes into the ordered list of displayable messages.
// Malformed and unknown lines are skipped. The result is never nil.
func Parse(data []byte) []types.Message {
	records := classify(data)

	// Pass 1: last line index for every assistant message.id.
	last := make(map[string]int)
	for _, rec := range records {
		if rec.event.EventType != types.JSONLEventAssistant {
			continue
		}
		if id := rec.event.Assistant.Message.ID; id != "" {
			last[id] = rec.line
		}
	}

	// Pass 2: emit in file order.
	messages := make([]types.Message, 0, len(records))
	for _, rec := range records {
		switch rec.event.EventType {
		case types.JSONLEventUser:
			if msg, ok := userMessage(rec.event.User); ok {
				messages = append(messages, msg)
			}
		case types.JSONLEventAssistant:
			ev := rec.event.Assistant
			if id := ev.Message.ID; id != "" && last[id] != rec.line {
				continue
			}
			if msg, ok := assistantMessage(ev); ok {
				messages = append(messages, msg)
			}
		}
	}
	return messages
}

// ParseFile reads and parses a log file. An unreadable file yields an
// empty list.
func ParseFile(path string) []types.Message {
	data, err := os.ReadFile(path)
	if err != nil {
		return []types.Message{}
	}
	return Parse(data)
}

// FirstTimestamp returns the first non-empty record timestamp in the log.
func FirstTimestamp(data []byte) string {
	for _, rec := range classify(data) {
		if ts := rec.event.Timestamp(); ts != "" {
			return ts
		}
	}
	return ""
}

func classify(data []byte) []record {
	lines := bytes.Split(data, []byte("\n"))
	records := make([]record, 0, len(lines))
	for i, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		ev, err := types.ClassifyJSONLEvent(line)
		if err != nil {
			continue
		}
		records = append(records, record{line: i, event: ev})
	}
	return records
}

func userMessage(ev *types.UserEvent) (types.Message, bool) {
	text, ok := ev.Message.Text()
	if !ok || text == "" {
		return types.Message{}, false
	}
	return types.Message{
		ID:        ev.UUID,
		Role:      types.RoleUser,
		Content:   text,
		Timestamp: ev.Timestamp,
	}, true
}

func assistantMessage(ev *types.AssistantEvent) (types.Message, bool) {
	content := types.FlattenBlocks(ev.Message.Content)
	if content == "" {
		return types.Message{}, false
	}
	id := ev.UUID
	if id == "" {
		id = ev.Message.ID
	}
	return types.Message{
		ID:        id,
		Role:      types.RoleAssistant,
		Content:   content,
		Timestamp: ev.Timestamp,
	}, true
}
