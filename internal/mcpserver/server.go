// Package mcpserver exposes claudeweb sessions as MCP tools, over stdio for
// a parent agent or over SSE for long-running use next to the web server.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"

	"claudeweb/internal/chat"
	"claudeweb/internal/logger"
	"claudeweb/internal/storage"
)

// MCPService wraps storage and the chat service as MCP tools.
type MCPService struct {
	adapter      storage.Adapter
	chat         *chat.Service
	detection    storage.Detection
	availability ToolAvailability
	version      string
	log          *log.Logger

	mu         sync.Mutex
	httpServer *http.Server
	port       int
}

// NewMCPService creates the service. Every tool is enabled until
// SetAvailability says otherwise.
func NewMCPService(adapter storage.Adapter, chatSvc *chat.Service, detection storage.Detection, version string) *MCPService {
	return &MCPService{
		adapter:      adapter,
		chat:         chatSvc,
		detection:    detection,
		availability: DefaultToolAvailability(),
		version:      version,
		log:          logger.New("mcp"),
	}
}

// SetAvailability replaces the enabled tool set. It takes effect the next
// time MCPServer is built.
func (s *MCPService) SetAvailability(a ToolAvailability) {
	s.availability = a
}

// MCPServer returns a configured mcp-go server with the enabled tools.
func (s *MCPService) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("claude-web", s.version, server.WithToolCapabilities(true))

	for _, def := range s.tools() {
		if !s.availability.IsEnabled(def.tool.Name) {
			s.log.Debug("tool disabled", "tool", def.tool.Name)
			continue
		}
		srv.AddTool(def.tool, def.handler)
	}
	return srv
}

// ServeStdio serves MCP on stdin/stdout, blocking until ctx is cancelled.
func (s *MCPService) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// Start serves MCP over SSE on port in the background.
func (s *MCPService) Start(port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return nil // Already running
	}

	sseServer := server.NewSSEServer(s.MCPServer(),
		server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)),
	)
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: sseServer,
	}
	s.port = port

	go func(hs *http.Server) {
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("MCP SSE server failed", "err", err)
		}
	}(s.httpServer)

	s.log.Info("MCP server started", "port", port)
	return nil
}

// Stop shuts down the SSE transport if it is running.
func (s *MCPService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer == nil {
		return
	}
	_ = s.httpServer.Close()
	s.httpServer = nil
	s.log.Info("MCP server stopped")
}

// IsRunning returns whether the SSE transport is running.
func (s *MCPService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpServer != nil
}

// Port returns the SSE port, or 0 when stopped.
func (s *MCPService) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer == nil {
		return 0
	}
	return s.port
}
