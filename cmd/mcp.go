package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"claudeweb/internal/logger"
)

var mcpSSEPort int

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for Claude Code integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets another agent read and drive this workspace's conversations.
Configure in Claude Code with:

  {
    "mcpServers": {
      "claude-web": { "command": "claude-web", "args": ["mcp"] }
    }
  }

Available tools: list_sessions, get_messages, send_message, stop_session,
sync_status. Disable tools with the mcp.disabled_tools config key.

With --sse the server listens on that port instead of stdio.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		svc, err := a.mcpService()
		if err != nil {
			return err
		}
		defer a.bridge.Shutdown()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if mcpSSEPort > 0 {
			if err := svc.Start(mcpSSEPort); err != nil {
				return err
			}
			logger.Info("serving MCP", "url", fmt.Sprintf("http://localhost:%d/sse", svc.Port()))
			<-ctx.Done()
			svc.Stop()
			return nil
		}

		logger.Debug("serving MCP on stdio", "workspace", a.cfg.Workspace, "mode", a.adapter.Mode())
		return svc.ServeStdio(ctx)
	},
}

func init() {
	mcpCmd.Flags().IntVar(&mcpSSEPort, "sse", 0, "Serve MCP over SSE on this port instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}
