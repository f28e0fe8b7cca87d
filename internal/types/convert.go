// Package types provides conversion from content blocks to display text.
// This is the single place where assistant blocks are flattened.
package types

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlattenBlocks concatenates the displayable parts of an assistant message.
// Text blocks are copied verbatim, tool invocations become a fenced
// "tool: NAME" section with the input pretty-printed, and thinking and
// tool_result blocks are dropped.
func FlattenBlocks(blocks []ContentBlock) string {
	var sb strings.Builder
	for _, block := range blocks {
		switch block.Type {
		case BlockTypeText:
			sb.WriteString(block.Text)
		case BlockTypeToolUse:
			name := block.Name
			if name == "" {
				name = "unknown"
			}
			sb.WriteString("\n```tool: ")
			sb.WriteString(name)
			sb.WriteString("\n")
			sb.WriteString(prettyInput(block.Input))
			sb.WriteString("\n```\n")
		}
	}
	return sb.String()
}

// prettyInput re-indents a tool input with two spaces, preserving key order.
func prettyInput(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

// TextBlocks returns the non-empty text of each text block, in order.
func TextBlocks(blocks []ContentBlock) []string {
	var out []string
	for _, block := range blocks {
		if block.Type == BlockTypeText && block.Text != "" {
			out = append(out, block.Text)
		}
	}
	return out
}
