package storage

import (
	"fmt"
	"path/filepath"
	"sync"

	"claudeweb/internal/logger"
	"claudeweb/internal/workspace"
)

// Options configure adapter selection.
type Options struct {
	Workspace  string
	ClaudeHome string
	// DataDir is the fallback store root; defaults to <workspace>/data/sessions.
	DataDir string
	// Mode is "auto", "native" or "fallback". Empty means auto.
	Mode string
}

// Selector picks the adapter for a workspace once and hands out the same
// instance for the rest of the process lifetime.
type Selector struct {
	opts Options

	once      sync.Once
	adapter   Adapter
	detection Detection
	err       error
}

// NewSelector returns a selector; nothing is touched until Adapter is called.
func NewSelector(opts Options) *Selector {
	return &Selector{opts: opts}
}

// Adapter returns the shared adapter, selecting it on first use.
func (s *Selector) Adapter() (Adapter, error) {
	s.once.Do(func() {
		s.adapter, s.detection, s.err = Open(s.opts)
	})
	return s.adapter, s.err
}

// Detection returns the storage detection made during selection.
func (s *Selector) Detection() Detection {
	s.Adapter()
	return s.detection
}

// Open selects and builds an adapter. Native storage is preferred whenever
// the agent's project storage is found.
func Open(opts Options) (Adapter, Detection, error) {
	log := logger.New("storage")

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(opts.Workspace, "data", "sessions")
	}
	det := LocateClaudeStorage(opts.ClaudeHome, opts.Workspace)

	switch opts.Mode {
	case "", "auto":
		if det.Found && det.Format == "jsonl" {
			log.Info("using native adapter", "path", det.Path)
			return NewNativeStore(det.Path, opts.Workspace), det, nil
		}
		log.Info("using fallback adapter", "path", dataDir, "reason", det.Reason)
		return NewFallbackStore(dataDir, opts.Workspace), det, nil

	case string(ModeNative):
		path := workspace.SessionsDir(opts.ClaudeHome, opts.Workspace)
		log.Info("using native adapter (forced)", "path", path)
		return NewNativeStore(path, opts.Workspace), det, nil

	case string(ModeFallback):
		log.Info("using fallback adapter (forced)", "path", dataDir)
		return NewFallbackStore(dataDir, opts.Workspace), det, nil

	default:
		return nil, det, fmt.Errorf("unknown storage mode %q", opts.Mode)
	}
}
