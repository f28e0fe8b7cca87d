package providers

import (
	"bytes"
	"regexp"
	"strings"

	"claudeweb/internal/types"
)

// LineDecoder splits a byte stream into trimmed, non-empty lines. Bytes
// after the last newline are held until the next Feed or Flush. The zero
// value is ready to use.
type LineDecoder struct {
	pending []byte
}

// Feed appends p and returns every line it completed.
func (d *LineDecoder) Feed(p []byte) []string {
	d.pending = append(d.pending, p...)

	var lines []string
	for {
		i := bytes.IndexByte(d.pending, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSpace(string(d.pending[:i]))
		d.pending = d.pending[i+1:]
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(d.pending) == 0 {
		d.pending = nil
	}
	return lines
}

// Flush returns whatever partial line remains and resets the decoder.
func (d *LineDecoder) Flush() string {
	rest := strings.TrimSpace(string(d.pending))
	d.pending = nil
	return rest
}

// TranslateLine maps one line of stream-json output to stream events and
// also returns the classified event, which is nil for lines that are not
// JSON objects. Such lines are passed through as text.
func TranslateLine(line string) ([]types.StreamEvent, *types.ClassifiedStreamingEvent) {
	ev, err := types.ClassifyStreamingEvent([]byte(line))
	if err != nil {
		return []types.StreamEvent{types.Chunk(line)}, nil
	}

	switch ev.EventType {
	case types.StreamingEventAssistant:
		if content := ev.Assistant.Message.Content; content != nil {
			var out []types.StreamEvent
			for _, text := range types.TextBlocks(content) {
				out = append(out, types.Chunk(text))
			}
			return out, ev
		}
	case types.StreamingEventContentBlockDelta:
		if text := ev.Delta.Delta.Text; text != "" {
			return []types.StreamEvent{types.Chunk(text)}, ev
		}
	case types.StreamingEventResultSuccess, types.StreamingEventResultError:
		if ev.Result.Failed() {
			return []types.StreamEvent{types.Failure(ev.Result.ErrorMessage())}, ev
		}
	}

	if ev.ResultText != "" {
		return []types.StreamEvent{types.Chunk(ev.ResultText)}, ev
	}
	return nil, ev
}

var stderrErrorPattern = regexp.MustCompile(`(?i)error|fatal|exception`)

// isStderrError reports whether a stderr line should surface as an error event.
func isStderrError(line string) bool {
	return stderrErrorPattern.MatchString(line)
}
