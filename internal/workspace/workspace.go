// Package workspace resolves the project folder claudeweb serves and maps it
// onto Claude Code's project storage layout.
package workspace

import (
	"os"
	"path/filepath"
	"strings"
)

// markers are checked in priority order; each one is searched for all the
// way up before the next is tried.
var markers = []string{".claude", ".git", "package.json"}

// Detect walks up from cwd looking for a project marker and returns the
// directory holding it, or cwd when none is found.
func Detect(cwd string) string {
	cwd = filepath.Clean(cwd)
	for _, marker := range markers {
		dir := cwd
		for {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	return cwd
}

// EncodeProjectKey encodes a folder path like Claude Code does: every path
// separator becomes "-".
func EncodeProjectKey(path string) string {
	key := strings.ReplaceAll(path, "/", "-")
	if filepath.Separator != '/' {
		key = strings.ReplaceAll(key, string(filepath.Separator), "-")
	}
	return key
}

// ProjectsDir returns <claudeHome>/projects.
func ProjectsDir(claudeHome string) string {
	return filepath.Join(claudeHome, "projects")
}

// SessionsDir returns the directory holding the session logs for folder.
func SessionsDir(claudeHome, folder string) string {
	return filepath.Join(ProjectsDir(claudeHome), EncodeProjectKey(folder))
}

// DefaultClaudeHome returns ~/.claude.
func DefaultClaudeHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".claude")
}
