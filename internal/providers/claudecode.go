// Package providers runs the Claude Code CLI for a session turn and turns
// its stream-json output into chunk, done and error events.
package providers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"claudeweb/internal/logger"
	"claudeweb/internal/types"
)

// SpawnRequest describes one agent turn.
type SpawnRequest struct {
	SessionID string
	Message   string
	Workspace string
	// Resume continues an existing log; otherwise the session id is assigned.
	Resume bool
}

// BuildArgs returns the CLI arguments for a turn.
func BuildArgs(req SpawnRequest) []string {
	sessionFlag := "--session-id"
	if req.Resume {
		sessionFlag = "--resume"
	}
	return []string{
		sessionFlag, req.SessionID,
		"-p",
		"--output-format", "stream-json",
		"--verbose",
		req.Message,
	}
}

// process is a running turn.
type process struct {
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	aborted atomic.Bool
}

// Bridge owns the table of running agent processes, at most one per session.
type Bridge struct {
	claudePath string
	waitDelay  time.Duration
	log        *log.Logger

	mu    sync.Mutex
	procs map[string]*process
}

// NewBridge creates a bridge that runs the binary at claudePath.
func NewBridge(claudePath string) *Bridge {
	return &Bridge{
		claudePath: claudePath,
		waitDelay:  5 * time.Second,
		log:        logger.New("bridge"),
		procs:      make(map[string]*process),
	}
}

// ClaudePath returns the binary the bridge runs.
func (b *Bridge) ClaudePath() string { return b.claudePath }

// Spawn starts a turn and returns its event stream. Any turn already running
// for the session is aborted first. The stream always ends with exactly one
// done event and is then closed. Cancelling ctx terminates the process.
func (b *Bridge) Spawn(ctx context.Context, req SpawnRequest) <-chan types.StreamEvent {
	out := make(chan types.StreamEvent, 64)

	fail := func(msg string) <-chan types.StreamEvent {
		out <- types.Failure(msg)
		out <- types.Done()
		close(out)
		return out
	}

	if b.claudePath == "" {
		return fail("claude CLI not found in PATH or common locations")
	}

	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, b.claudePath, BuildArgs(req)...)
	cmd.Dir = req.Workspace
	cmd.Env = append(os.Environ(), "FORCE_COLOR=0", "NO_COLOR=1")
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return terminateProcess(cmd)
	}
	cmd.WaitDelay = b.waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fail(fmt.Sprintf("failed to create stdout pipe: %v", err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fail(fmt.Sprintf("failed to create stderr pipe: %v", err))
	}

	p := &process{cmd: cmd, cancel: cancel}

	b.mu.Lock()
	if prev, ok := b.procs[req.SessionID]; ok {
		delete(b.procs, req.SessionID)
		b.terminate(req.SessionID, prev)
	}
	if err := cmd.Start(); err != nil {
		b.mu.Unlock()
		cancel()
		return fail(fmt.Sprintf("failed to start claude: %v", err))
	}
	b.procs[req.SessionID] = p
	b.mu.Unlock()

	b.log.Debug("started claude", "session", req.SessionID, "pid", cmd.Process.Pid, "resume", req.Resume)

	go b.supervise(ctx, req.SessionID, p, stdout, stderr, out)
	return out
}

// supervise pumps both pipes, waits for exit, and closes the stream.
func (b *Bridge) supervise(ctx context.Context, sessionID string, p *process, stdout, stderr io.Reader, out chan<- types.StreamEvent) {
	defer close(out)
	defer p.cancel()

	emit := func(ev types.StreamEvent) {
		select {
		case out <- ev:
		case <-ctx.Done():
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		b.pumpStdout(sessionID, stdout, emit)
	}()
	go func() {
		defer wg.Done()
		b.pumpStderr(sessionID, stderr, emit)
	}()
	wg.Wait()

	err := p.cmd.Wait()
	b.release(sessionID, p)

	switch {
	case p.aborted.Load():
		b.log.Debug("claude aborted", "session", sessionID)
	case ctx.Err() != nil:
		b.log.Debug("claude cancelled", "session", sessionID)
	case err != nil:
		b.log.Warn("claude exited with error", "session", sessionID, "err", err)
		emit(types.Failure(fmt.Sprintf("claude exited: %v", err)))
	}
	emit(types.Done())
}

// pumpStdout translates stdout line by line, flushing any partial line at EOF.
func (b *Bridge) pumpStdout(sessionID string, r io.Reader, emit func(types.StreamEvent)) {
	handle := func(line string) {
		events, ev := TranslateLine(line)
		if ev != nil {
			switch {
			case ev.SystemInit != nil:
				b.log.Debug("claude session started", "session", sessionID,
					"claude_session", ev.SystemInit.SessionID, "model", ev.SystemInit.Model, "cwd", ev.SystemInit.Cwd)
			case ev.Result != nil:
				b.log.Debug("claude turn finished", "session", sessionID,
					"subtype", ev.Result.Subtype, "duration_ms", ev.Result.DurationMs, "turns", ev.Result.NumTurns)
			}
		}
		for _, out := range events {
			emit(out)
		}
	}

	var dec LineDecoder
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, line := range dec.Feed(buf[:n]) {
				handle(line)
			}
		}
		if err != nil {
			break
		}
	}
	if rest := dec.Flush(); rest != "" {
		handle(rest)
	}
}

// pumpStderr surfaces error-looking lines and logs the rest.
func (b *Bridge) pumpStderr(sessionID string, r io.Reader, emit func(types.StreamEvent)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if isStderrError(line) {
			emit(types.Failure(line))
			continue
		}
		b.log.Debug("claude stderr", "session", sessionID, "line", line)
	}
	// Keep draining so the child never blocks on a full pipe.
	io.Copy(io.Discard, r)
}

// release removes the table entry only if it still belongs to p.
func (b *Bridge) release(sessionID string, p *process) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.procs[sessionID]; ok && cur == p {
		delete(b.procs, sessionID)
	}
}

// terminate marks p aborted and signals it. The caller has already removed
// it from the table.
func (b *Bridge) terminate(sessionID string, p *process) {
	p.aborted.Store(true)
	p.cancel()
	b.log.Debug("terminating claude", "session", sessionID)
}

// Abort terminates the running turn for a session. It returns false when
// nothing was running.
func (b *Bridge) Abort(sessionID string) bool {
	b.mu.Lock()
	p, ok := b.procs[sessionID]
	if ok {
		delete(b.procs, sessionID)
	}
	b.mu.Unlock()

	if !ok {
		return false
	}
	b.terminate(sessionID, p)
	return true
}

// IsRunning reports whether a turn is running for the session.
func (b *Bridge) IsRunning(sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.procs[sessionID]
	return ok
}

// Running returns the ids of all sessions with a running turn.
func (b *Bridge) Running() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.procs))
	for id := range b.procs {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown aborts every running turn.
func (b *Bridge) Shutdown() {
	for _, id := range b.Running() {
		b.Abort(id)
	}
}
