package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"strconv"
	"time"
)

const indexFileName = "sessions-index.json"

// SessionIndex matches Claude Code's sessions-index.json structure.
type SessionIndex struct {
	Version int          `json:"version"`
	Entries []IndexEntry `json:"entries"`
}

// IndexEntry matches Claude Code's session entry format. It is a cache,
// never the source of message content.
type IndexEntry struct {
	SessionID    string    `json:"sessionId"`
	FullPath     string    `json:"fullPath"`
	FileMtime    int64     `json:"fileMtime"` // milliseconds
	FirstPrompt  string    `json:"firstPrompt"`
	MessageCount int       `json:"messageCount"`
	Created      Timestamp `json:"created"`
	Modified     Timestamp `json:"modified"`
	GitBranch    string    `json:"gitBranch,omitempty"`
	ProjectPath  string    `json:"projectPath"`
	IsSidechain  bool      `json:"isSidechain"`
}

// Timestamp decodes the index's date fields, which are ISO strings on
// current CLI builds and epoch milliseconds on some older ones. Anything
// unparseable decodes to the zero time rather than failing the index.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	t.Time = time.Time{}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		t.Time = parseTimestamp(s)
		return nil
	}
	if ms, err := strconv.ParseInt(string(trimmed), 10, 64); err == nil {
		t.Time = time.UnixMilli(ms).UTC()
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time)
}

// readIndex loads the index at path. The second return is false when the
// file is missing, unreadable, or not a version 1 index with an entries
// array.
func readIndex(path string) (*SessionIndex, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var envelope struct {
		Version int             `json:"version"`
		Entries json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, false
	}
	entries := bytes.TrimSpace(envelope.Entries)
	if envelope.Version != 1 || len(entries) == 0 || entries[0] != '[' {
		return nil, false
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(entries, &raw); err != nil {
		return nil, false
	}
	index := &SessionIndex{Version: envelope.Version, Entries: make([]IndexEntry, 0, len(raw))}
	for _, r := range raw {
		var entry IndexEntry
		if err := json.Unmarshal(r, &entry); err != nil {
			continue
		}
		index.Entries = append(index.Entries, entry)
	}
	return index, true
}

// parseTimestamp converts an ISO timestamp string to time.Time.
func parseTimestamp(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}
