package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"claudeweb/internal/logger"
	"claudeweb/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the workspace's sessions.

By default it listens on port 3000. Use --port to change it, and
--mcp-port to also serve MCP over SSE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("mcp-port", 0, "Also serve MCP over SSE on this port (0 = off)")
	_ = viper.BindPFlag("mcp.port", serveCmd.Flags().Lookup("mcp-port"))
}

func serveRun(cmd *cobra.Command) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	log := logger.New("serve")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.MCPPort > 0 {
		mcpSvc, err := a.mcpService()
		if err != nil {
			return err
		}
		if err := mcpSvc.Start(a.cfg.MCPPort); err != nil {
			return fmt.Errorf("start MCP server: %w", err)
		}
		defer mcpSvc.Stop()
		log.Info("serving MCP", "url", fmt.Sprintf("http://localhost:%d/sse", mcpSvc.Port()))
	}

	api := server.New(a.adapter, a.chat, a.detection)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	log.Info("serving",
		"url", fmt.Sprintf("http://localhost:%d", a.cfg.Port),
		"workspace", a.cfg.Workspace,
		"mode", a.adapter.Mode(),
	)

	select {
	case err := <-errCh:
		a.bridge.Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	// Abort running turns first so their streams end and handlers return.
	a.bridge.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
