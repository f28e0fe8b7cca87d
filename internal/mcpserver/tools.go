package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// toolDef pairs a tool definition with its handler.
type toolDef struct {
	tool    mcp.Tool
	handler server.ToolHandlerFunc
}

func (s *MCPService) tools() []toolDef {
	return []toolDef{
		{CreateListSessionsTool(), s.handleListSessions},
		{CreateGetMessagesTool(), s.handleGetMessages},
		{CreateSendMessageTool(), s.handleSendMessage},
		{CreateStopSessionTool(), s.handleStopSession},
		{CreateSyncStatusTool(), s.handleSyncStatus},
	}
}

// CreateListSessionsTool creates the list_sessions tool definition
func CreateListSessionsTool() mcp.Tool {
	return mcp.NewTool(ToolListSessions,
		mcp.WithDescription("List the conversations in this workspace, most recently updated first. Returns a JSON array with id, title, createdAt, updatedAt, messageCount and whether a turn is running."),
	)
}

// CreateGetMessagesTool creates the get_messages tool definition
func CreateGetMessagesTool() mcp.Tool {
	return mcp.NewTool(ToolGetMessages,
		mcp.WithDescription("Get the messages of one conversation in order. Tool calls appear inline as fenced blocks."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id as returned by list_sessions"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Only return the last N messages (default: all)"),
		),
	)
}

// CreateSendMessageTool creates the send_message tool definition
func CreateSendMessageTool() mcp.Tool {
	return mcp.NewTool(ToolSendMessage,
		mcp.WithDescription("Send a message to a conversation and wait for the full reply. Starts the session if it has no history yet, otherwise resumes it."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id; use one from list_sessions to continue a conversation"),
		),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("The message to send"),
		),
	)
}

// CreateStopSessionTool creates the stop_session tool definition
func CreateStopSessionTool() mcp.Tool {
	return mcp.NewTool(ToolStopSession,
		mcp.WithDescription("Stop the running turn of a conversation, if any."),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id"),
		),
	)
}

// CreateSyncStatusTool creates the sync_status tool definition
func CreateSyncStatusTool() mcp.Tool {
	return mcp.NewTool(ToolSyncStatus,
		mcp.WithDescription("Report which storage backend is in use (native Claude logs or the fallback store), where it lives, and which sessions have a running turn."),
	)
}
