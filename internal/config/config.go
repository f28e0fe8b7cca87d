// Package config turns viper settings into a typed Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"claudeweb/internal/workspace"
)

// EnvPrefix is the prefix for environment overrides, e.g. CLAUDE_WEB_PORT.
const EnvPrefix = "CLAUDE_WEB"

// Config is the resolved runtime configuration.
type Config struct {
	Port       int
	Workspace  string
	DataDir    string
	ClaudeHome string
	ClaudePath string
	LogLevel   string
	LogFile    string
	Mode       string

	// MCPPort, when non-zero, serves MCP over SSE next to the HTTP API.
	MCPPort          int
	MCPDisabledTools []string
}

// Dir returns ~/.config/claude-web.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot find home directory: %w", err)
	}
	return filepath.Join(home, ".config", "claude-web"), nil
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", 3000)
	v.SetDefault("workspace", "")
	v.SetDefault("data_dir", "")
	v.SetDefault("claude_home", workspace.DefaultClaudeHome())
	v.SetDefault("claude_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("mode", "auto")
	v.SetDefault("mcp.port", 0)
	v.SetDefault("mcp.disabled_tools", []string{})
}

// Load reads v into a Config, filling in the derived defaults.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:       v.GetInt("port"),
		Workspace:  v.GetString("workspace"),
		DataDir:    v.GetString("data_dir"),
		ClaudeHome: v.GetString("claude_home"),
		ClaudePath: v.GetString("claude_path"),
		LogLevel:   v.GetString("log_level"),
		LogFile:    v.GetString("log_file"),
		Mode:       strings.ToLower(strings.TrimSpace(v.GetString("mode"))),

		MCPPort:          v.GetInt("mcp.port"),
		MCPDisabledTools: v.GetStringSlice("mcp.disabled_tools"),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid port %d", cfg.Port)
	}

	if cfg.MCPPort < 0 || cfg.MCPPort > 65535 {
		return cfg, fmt.Errorf("invalid mcp port %d", cfg.MCPPort)
	}

	switch cfg.Mode {
	case "", "auto":
		cfg.Mode = "auto"
	case "native", "fallback":
	default:
		return cfg, fmt.Errorf("invalid mode %q (want auto, native or fallback)", cfg.Mode)
	}

	if cfg.Workspace == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return cfg, fmt.Errorf("get working directory: %w", err)
		}
		cfg.Workspace = workspace.Detect(cwd)
	}
	ws, err := filepath.Abs(cfg.Workspace)
	if err != nil {
		return cfg, fmt.Errorf("resolve workspace: %w", err)
	}
	cfg.Workspace = ws

	if cfg.ClaudeHome == "" {
		cfg.ClaudeHome = workspace.DefaultClaudeHome()
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(cfg.Workspace, "data", "sessions")
	}
	return cfg, nil
}
