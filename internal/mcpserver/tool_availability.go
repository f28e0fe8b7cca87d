package mcpserver

import (
	"fmt"
	"sort"
	"strings"
)

// Tool names.
const (
	ToolListSessions = "list_sessions"
	ToolGetMessages  = "get_messages"
	ToolSendMessage  = "send_message"
	ToolStopSession  = "stop_session"
	ToolSyncStatus   = "sync_status"
)

// ToolAvailability holds the enabled/disabled state for each MCP tool.
type ToolAvailability map[string]bool

// DefaultToolAvailability enables every tool.
func DefaultToolAvailability() ToolAvailability {
	return ToolAvailability{
		ToolListSessions: true,
		ToolGetMessages:  true,
		ToolSendMessage:  true,
		ToolStopSession:  true,
		ToolSyncStatus:   true,
	}
}

// IsEnabled checks if a specific tool is enabled.
func (a ToolAvailability) IsEnabled(name string) bool {
	return a[name]
}

// Disable turns tools off by name. Unknown names are an error.
func (a ToolAvailability) Disable(names ...string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := a[name]; !ok {
			return fmt.Errorf("unknown MCP tool %q (known: %s)", name, strings.Join(a.Names(), ", "))
		}
		a[name] = false
	}
	return nil
}

// Names returns every known tool name, sorted.
func (a ToolAvailability) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
