package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"claudeweb/internal/chat"
	"claudeweb/internal/config"
	"claudeweb/internal/logger"
	"claudeweb/internal/mcpserver"
	"claudeweb/internal/providers"
	"claudeweb/internal/storage"
)

// app holds the shared dependencies every command builds on.
type app struct {
	cfg       config.Config
	adapter   storage.Adapter
	detection storage.Detection
	bridge    *providers.Bridge
	chat      *chat.Service
}

// newApp loads configuration, configures logging and selects storage.
// Logging is configured first so component loggers pick up the level.
func newApp() (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	selector := storage.NewSelector(storage.Options{
		Workspace:  cfg.Workspace,
		ClaudeHome: cfg.ClaudeHome,
		DataDir:    cfg.DataDir,
		Mode:       cfg.Mode,
	})
	adapter, err := selector.Adapter()
	if err != nil {
		return nil, fmt.Errorf("select storage: %w", err)
	}

	claudePath := providers.ResolveClaudePath(cfg.ClaudePath)
	if claudePath == "" {
		logger.Warn("claude CLI not found; sending messages will fail", "hint", "set claude_path or CLAUDE_WEB_CLAUDE_PATH")
	} else {
		logger.Debug("using claude CLI", "path", claudePath)
	}
	bridge := providers.NewBridge(claudePath)

	return &app{
		cfg:       cfg,
		adapter:   adapter,
		detection: selector.Detection(),
		bridge:    bridge,
		chat:      chat.NewService(adapter, bridge, cfg.Workspace),
	}, nil
}

// mcpService builds the MCP service with the configured tool set.
func (a *app) mcpService() (*mcpserver.MCPService, error) {
	svc := mcpserver.NewMCPService(a.adapter, a.chat, a.detection, buildVersion)
	availability := mcpserver.DefaultToolAvailability()
	if err := availability.Disable(a.cfg.MCPDisabledTools...); err != nil {
		return nil, err
	}
	svc.SetAvailability(availability)
	return svc, nil
}
