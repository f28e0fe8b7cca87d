package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"claudeweb/internal/logger"
	"claudeweb/internal/transcript"
	"claudeweb/internal/types"
	"claudeweb/internal/watcher"
)

const (
	untitledSession   = "Untitled"
	defaultTitle      = "New Conversation"
	titlePreviewRunes = 100
)

// NativeStore reads the Claude CLI's own project log directory. The CLI is
// the only writer of session logs; this store never writes to them.
type NativeStore struct {
	dir       string
	workspace string
	log       *log.Logger
	now       func() time.Time
}

// NewNativeStore returns a store over dir, the project log directory for
// workspace.
func NewNativeStore(dir, workspace string) *NativeStore {
	return &NativeStore{
		dir:       dir,
		workspace: workspace,
		log:       logger.New("native"),
		now:       time.Now,
	}
}

// Mode implements Adapter.
func (s *NativeStore) Mode() Mode { return ModeNative }

// Dir returns the project log directory.
func (s *NativeStore) Dir() string { return s.dir }

func (s *NativeStore) sessionPath(id string) string {
	return filepath.Join(s.dir, id+".jsonl")
}

// ListSessions implements Adapter. The index is used when present and well
// formed; otherwise the directory is scanned.
func (s *NativeStore) ListSessions(ctx context.Context) ([]types.Session, error) {
	if index, ok := readIndex(filepath.Join(s.dir, indexFileName)); ok {
		return s.fromIndex(index), nil
	}
	return s.scan(ctx)
}

func (s *NativeStore) fromIndex(index *SessionIndex) []types.Session {
	sessions := make([]types.Session, 0, len(index.Entries))
	for _, entry := range index.Entries {
		if entry.IsSidechain || !sessionIDPattern.MatchString(entry.SessionID) {
			continue
		}

		modified := entry.Modified.Time
		if modified.IsZero() && entry.FileMtime > 0 {
			modified = time.UnixMilli(entry.FileMtime).UTC()
		}
		if modified.IsZero() {
			modified = s.now()
		}
		created := entry.Created.Time
		if created.IsZero() {
			created = modified
		}

		title := entry.FirstPrompt
		if title == "" {
			title = untitledSession
		}
		workspace := entry.ProjectPath
		if workspace == "" {
			workspace = s.workspace
		}

		sessions = append(sessions, types.Session{
			ID:           entry.SessionID,
			Title:        title,
			CreatedAt:    created,
			UpdatedAt:    modified,
			Workspace:    workspace,
			MessageCount: entry.MessageCount,
		})
	}
	sortByUpdated(sessions)
	return sessions
}

func (s *NativeStore) scan(ctx context.Context) ([]types.Session, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []types.Session{}, nil
		}
		return nil, fmt.Errorf("failed to read sessions dir: %w", err)
	}

	sessions := make([]types.Session, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jsonl") || strings.HasPrefix(name, "agent-") {
			continue
		}
		id := strings.TrimSuffix(name, ".jsonl")
		if !sessionIDPattern.MatchString(id) {
			continue
		}
		session, err := s.sessionFromFile(id)
		if err != nil {
			s.log.Debug("skipping session file", "id", id, "err", err)
			continue
		}
		sessions = append(sessions, *session)
	}
	sortByUpdated(sessions)
	return sessions, nil
}

// sessionFromFile builds session metadata from the log file itself.
func (s *NativeStore) sessionFromFile(id string) (*types.Session, error) {
	path := s.sessionPath(id)
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	messages := transcript.Parse(data)
	title := untitledSession
	for _, msg := range messages {
		if msg.Role == types.RoleUser {
			title = truncateTitle(msg.Content)
			break
		}
	}

	created := parseTimestamp(transcript.FirstTimestamp(data))
	if created.IsZero() {
		created = info.ModTime()
	}

	return &types.Session{
		ID:           id,
		Title:        title,
		CreatedAt:    created,
		UpdatedAt:    info.ModTime(),
		Workspace:    s.workspace,
		MessageCount: len(messages),
	}, nil
}

// GetSession implements Adapter.
func (s *NativeStore) GetSession(ctx context.Context, id string) (*types.Session, error) {
	if err := ValidateID("get", id); err != nil {
		return nil, err
	}
	sessions, err := s.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID == id {
			return &sessions[i], nil
		}
	}

	// The index lags behind new sessions.
	session, err := s.sessionFromFile(id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	return session, nil
}

// CreateSession implements Adapter. Only an identifier is allocated: the
// log file appears when the agent runs its first turn.
func (s *NativeStore) CreateSession(_ context.Context, title string) (*types.Session, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}
	if title == "" {
		title = defaultTitle
	}
	now := s.now()
	return &types.Session{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
		Workspace: s.workspace,
	}, nil
}

// DeleteSession implements Adapter. A missing file is not an error.
func (s *NativeStore) DeleteSession(_ context.Context, id string) error {
	if err := ValidateID("delete", id); err != nil {
		return err
	}
	if err := os.Remove(s.sessionPath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// RenameSession implements Adapter. Titles come from the agent's log, which
// this store never edits, so rename only logs a warning.
// TODO: keep custom titles in a side table under the data dir.
func (s *NativeStore) RenameSession(_ context.Context, id, title string) error {
	if err := ValidateID("rename", id); err != nil {
		return err
	}
	s.log.Warn("rename is not persisted in native mode", "id", id, "title", title)
	return nil
}

// GetMessages implements Adapter. A missing or unreadable log yields an
// empty list.
func (s *NativeStore) GetMessages(_ context.Context, id string) ([]types.Message, error) {
	if err := ValidateID("messages", id); err != nil {
		return nil, err
	}
	return transcript.ParseFile(s.sessionPath(id)), nil
}

// AppendMessage implements Adapter. The agent writes its own log.
func (s *NativeStore) AppendMessage(_ context.Context, id string, _ NewMessage) (*types.Message, error) {
	if err := ValidateID("append", id); err != nil {
		return nil, err
	}
	return nil, &Error{Kind: ErrUnsupported, Op: "append", ID: id}
}

// HasHistory implements Adapter: a session resumes once its log exists.
func (s *NativeStore) HasHistory(_ context.Context, id string) (bool, error) {
	if err := ValidateID("history", id); err != nil {
		return false, err
	}
	_, err := os.Stat(s.sessionPath(id))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat session %s: %w", id, err)
}

// WatchChanges implements Adapter.
func (s *NativeStore) WatchChanges(handler func(types.StorageEvent)) (Unsubscribe, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}
	sub, err := watcher.Subscribe(s.dir, watcher.NativeMapping, handler)
	if err != nil {
		return nil, err
	}
	return func() { sub.Close() }, nil
}

// truncateTitle shortens a first prompt for display.
func truncateTitle(s string) string {
	if utf8.RuneCountInString(s) <= titlePreviewRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:titlePreviewRunes]) + "..."
}

func sortByUpdated(sessions []types.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
}
