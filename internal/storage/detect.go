package storage

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"claudeweb/internal/workspace"
)

// Detection reports where (and whether) the agent's session logs live for
// a workspace.
type Detection struct {
	Found        bool   `json:"found"`
	Path         string `json:"path"`
	Format       string `json:"format"` // "jsonl" or "unknown"
	ProjectKey   string `json:"projectKey,omitempty"`
	Workspace    string `json:"workspace,omitempty"`
	SessionCount int    `json:"sessionCount"`
	HasIndex     bool   `json:"hasIndex"`
	Reason       string `json:"reason,omitempty"`
}

// LocateClaudeStorage inspects claudeHome for the project directory of ws.
// A missing project directory still counts as found as long as the
// projects root exists: the agent creates it on the first turn.
func LocateClaudeStorage(claudeHome, ws string) Detection {
	if _, err := os.Stat(claudeHome); err != nil {
		return Detection{Format: "unknown", Reason: "no " + claudeHome + " directory"}
	}
	projectsDir := workspace.ProjectsDir(claudeHome)
	if _, err := os.Stat(projectsDir); err != nil {
		return Detection{Path: projectsDir, Format: "unknown", Reason: "no " + projectsDir + " directory"}
	}

	key := workspace.EncodeProjectKey(ws)
	det := Detection{
		Found:      true,
		Path:       workspace.SessionsDir(claudeHome, ws),
		Format:     "jsonl",
		ProjectKey: key,
		Workspace:  ws,
	}

	entries, err := os.ReadDir(det.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			det.Reason = "project directory will be created on first session"
			return det
		}
		return Detection{Path: det.Path, Format: "unknown", Reason: "cannot read project directory: " + err.Error()}
	}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case name == indexFileName:
			det.HasIndex = true
		case strings.HasSuffix(name, ".jsonl") && !strings.HasPrefix(name, "agent-"):
			det.SessionCount++
		}
	}
	return det
}
