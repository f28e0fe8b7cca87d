package providers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

var (
	claudePath     string
	claudePathOnce sync.Once
)

// findClaudeBinary searches for the claude binary on PATH and in common
// install locations.
func findClaudeBinary() string {
	if path, err := exec.LookPath("claude"); err == nil {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}

	locations := []string{
		filepath.Join(home, ".claude/local/claude"),
		"/usr/local/bin/claude",
		"/opt/homebrew/bin/claude",
		filepath.Join(home, ".local/bin/claude"),
		filepath.Join(home, ".npm-global/bin/claude"),
		filepath.Join(home, "bin/claude"),
	}

	for _, loc := range locations {
		if info, err := os.Stat(loc); err == nil && !info.IsDir() && info.Mode()&0111 != 0 {
			return loc
		}
	}

	return ""
}

// GetClaudePath returns the path to the claude binary (cached). An empty
// string means it was not found.
func GetClaudePath() string {
	claudePathOnce.Do(func() {
		claudePath = findClaudeBinary()
	})
	return claudePath
}

// ResolveClaudePath returns override when set, otherwise the discovered path.
func ResolveClaudePath(override string) string {
	if override != "" {
		return override
	}
	return GetClaudePath()
}

// GetClaudeVersion runs `claude --version`.
func GetClaudeVersion(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("claude not found")
	}
	output, err := exec.Command(path, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("claude --version: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}
