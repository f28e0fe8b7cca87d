package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	ws := t.TempDir()
	v := newViper()
	v.Set("workspace", ws)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "auto", cfg.Mode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ws, cfg.Workspace)
	assert.Equal(t, filepath.Join(ws, "data", "sessions"), cfg.DataDir)
	assert.Equal(t, ".claude", filepath.Base(cfg.ClaudeHome))
	assert.Equal(t, 0, cfg.MCPPort)
	assert.Empty(t, cfg.MCPDisabledTools)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`port: 8123
mode: native
log_level: debug
mcp:
  port: 9100
  disabled_tools:
    - send_message
`), 0o600))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	v.Set("workspace", t.TempDir())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.Port)
	assert.Equal(t, "native", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9100, cfg.MCPPort)
	assert.Equal(t, []string{"send_message"}, cfg.MCPDisabledTools)
}

func TestLoad_DetectsWorkspaceFromCwd(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	t.Chdir(sub)

	cfg, err := Load(newViper())
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(cfg.Workspace)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CLAUDE_WEB_PORT", "4100")
	t.Setenv("CLAUDE_WEB_MODE", "Fallback")

	v := newViper()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.Set("workspace", t.TempDir())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 4100, cfg.Port)
	assert.Equal(t, "fallback", cfg.Mode)
}

func TestLoad_Invalid(t *testing.T) {
	v := newViper()
	v.Set("workspace", t.TempDir())
	v.Set("mode", "cloud")
	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mode")

	v = newViper()
	v.Set("workspace", t.TempDir())
	v.Set("port", 0)
	_, err = Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}
