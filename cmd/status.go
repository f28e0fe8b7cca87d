package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"claudeweb/internal/output"
	"claudeweb/internal/providers"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which storage backend and claude CLI would be used",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		det := a.detection
		ui.Info("Workspace:  %s", a.cfg.Workspace)
		ui.Info("Mode:       %s", output.ModeColor(string(a.adapter.Mode())))
		if det.Found {
			ui.Info("Logs:       %s (%d sessions, index: %v)", det.Path, det.SessionCount, det.HasIndex)
		} else {
			ui.Info("Logs:       not found (%s)", det.Reason)
		}
		if store, ok := a.adapter.(interface{ Dir() string }); ok {
			ui.Info("Store:      %s", store.Dir())
		}
		if det.Reason != "" && det.Found {
			ui.Info("Note:       %s", det.Reason)
		}

		path := a.bridge.ClaudePath()
		version, err := providers.GetClaudeVersion(path)
		if err != nil {
			ui.Warning("claude CLI: %v", err)
			return nil
		}
		ui.Success("claude CLI: %s (%s)", path, version)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(effectiveConfig(a))
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprint(ui.Out, string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

// configView mirrors the config file layout.
type configView struct {
	Port       int     `yaml:"port"`
	Workspace  string  `yaml:"workspace"`
	DataDir    string  `yaml:"data_dir"`
	ClaudeHome string  `yaml:"claude_home"`
	ClaudePath string  `yaml:"claude_path"`
	LogLevel   string  `yaml:"log_level"`
	LogFile    string  `yaml:"log_file"`
	Mode       string  `yaml:"mode"`
	MCP        mcpView `yaml:"mcp"`
}

type mcpView struct {
	Port          int      `yaml:"port"`
	DisabledTools []string `yaml:"disabled_tools"`
}

func effectiveConfig(a *app) configView {
	disabled := a.cfg.MCPDisabledTools
	if disabled == nil {
		disabled = []string{}
	}
	return configView{
		Port:       a.cfg.Port,
		Workspace:  a.cfg.Workspace,
		DataDir:    a.cfg.DataDir,
		ClaudeHome: a.cfg.ClaudeHome,
		ClaudePath: a.bridge.ClaudePath(),
		LogLevel:   a.cfg.LogLevel,
		LogFile:    a.cfg.LogFile,
		Mode:       a.cfg.Mode,
		MCP: mcpView{
			Port:          a.cfg.MCPPort,
			DisabledTools: disabled,
		},
	}
}
