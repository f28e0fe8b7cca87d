package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"claudeweb/internal/logger"
	"claudeweb/internal/types"
	"claudeweb/internal/watcher"
)

// sessionFile is the on-disk layout of one fallback session.
type sessionFile struct {
	Session  types.Session   `json:"session"`
	Messages []types.Message `json:"messages"`
}

// FallbackStore keeps one {id}.json file per session. Writes from this
// process are serialized; other processes are not coordinated with.
type FallbackStore struct {
	dir       string
	workspace string
	log       *log.Logger
	now       func() time.Time

	mu sync.Mutex
}

// NewFallbackStore returns a store rooted at dir.
func NewFallbackStore(dir, workspace string) *FallbackStore {
	return &FallbackStore{
		dir:       dir,
		workspace: workspace,
		log:       logger.New("fallback"),
		now:       time.Now,
	}
}

// Mode implements Adapter.
func (s *FallbackStore) Mode() Mode { return ModeFallback }

// Dir returns the data directory.
func (s *FallbackStore) Dir() string { return s.dir }

func (s *FallbackStore) sessionPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FallbackStore) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

// read loads a session file. It returns nil, nil when the file is absent
// or does not decode; only I/O failures are errors.
func (s *FallbackStore) read(id string) (*sessionFile, error) {
	data, err := os.ReadFile(s.sessionPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var sf sessionFile
	if err := json.Unmarshal(data, &sf); err != nil {
		s.log.Debug("ignoring corrupt session file", "id", id, "err", err)
		return nil, nil
	}
	if sf.Messages == nil {
		sf.Messages = []types.Message{}
	}
	return &sf, nil
}

func (s *FallbackStore) write(sf *sessionFile) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.sessionPath(sf.Session.ID), data, 0o644)
}

// ListSessions implements Adapter. Corrupt files are skipped.
func (s *FallbackStore) ListSessions(ctx context.Context) ([]types.Session, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []types.Session{}, nil
		}
		return nil, fmt.Errorf("failed to read data dir: %w", err)
	}

	sessions := make([]types.Session, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if !sessionIDPattern.MatchString(id) {
			continue
		}
		sf, err := s.read(id)
		if err != nil || sf == nil {
			s.log.Debug("skipping session file", "file", name, "err", err)
			continue
		}
		sf.Session.MessageCount = len(sf.Messages)
		sessions = append(sessions, sf.Session)
	}
	sortByUpdated(sessions)
	return sessions, nil
}

// GetSession implements Adapter.
func (s *FallbackStore) GetSession(_ context.Context, id string) (*types.Session, error) {
	if err := ValidateID("get", id); err != nil {
		return nil, err
	}
	sf, err := s.read(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	if sf == nil {
		return nil, nil
	}
	sf.Session.MessageCount = len(sf.Messages)
	return &sf.Session, nil
}

// CreateSession implements Adapter.
func (s *FallbackStore) CreateSession(_ context.Context, title string) (*types.Session, error) {
	if title == "" {
		title = defaultTitle
	}
	now := s.now()
	sf := &sessionFile{
		Session: types.Session{
			ID:        uuid.New().String(),
			Title:     title,
			CreatedAt: now,
			UpdatedAt: now,
			Workspace: s.workspace,
		},
		Messages: []types.Message{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(sf); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &sf.Session, nil
}

// DeleteSession implements Adapter. A missing file is not an error.
func (s *FallbackStore) DeleteSession(_ context.Context, id string) error {
	if err := ValidateID("delete", id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.sessionPath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// RenameSession implements Adapter.
func (s *FallbackStore) RenameSession(_ context.Context, id, title string) error {
	if err := ValidateID("rename", id); err != nil {
		return err
	}
	if strings.TrimSpace(title) == "" {
		return &Error{Kind: ErrInvalidArgument, Op: "rename", ID: id, Err: errors.New("title is required")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sf, err := s.read(id)
	if err != nil {
		return fmt.Errorf("failed to read session %s: %w", id, err)
	}
	if sf == nil {
		return &Error{Kind: ErrNotFound, Op: "rename", ID: id}
	}
	sf.Session.Title = title
	sf.Session.UpdatedAt = s.bump(sf.Session.UpdatedAt)
	return s.write(sf)
}

// GetMessages implements Adapter. A missing session yields an empty list.
func (s *FallbackStore) GetMessages(_ context.Context, id string) ([]types.Message, error) {
	if err := ValidateID("messages", id); err != nil {
		return nil, err
	}
	sf, err := s.read(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	if sf == nil {
		return []types.Message{}, nil
	}
	return sf.Messages, nil
}

// AppendMessage implements Adapter.
func (s *FallbackStore) AppendMessage(_ context.Context, id string, in NewMessage) (*types.Message, error) {
	if err := ValidateID("append", id); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, &Error{Kind: ErrInvalidArgument, Op: "append", ID: id, Err: fmt.Errorf("unknown role %q", in.Role)}
	}
	if in.Content == "" {
		return nil, &Error{Kind: ErrInvalidArgument, Op: "append", ID: id, Err: errors.New("content is required")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sf, err := s.read(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	if sf == nil {
		return nil, &Error{Kind: ErrNotFound, Op: "append", ID: id}
	}

	updated := s.bump(sf.Session.UpdatedAt)
	msg := types.Message{
		ID:        uuid.New().String(),
		Role:      in.Role,
		Content:   in.Content,
		Timestamp: in.Timestamp,
	}
	if msg.Timestamp == "" {
		msg.Timestamp = updated.UTC().Format(time.RFC3339Nano)
	}
	sf.Messages = append(sf.Messages, msg)
	sf.Session.UpdatedAt = updated
	if err := s.write(sf); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	return &msg, nil
}

// bump returns the current time, or just after prev if the clock has not
// moved past it.
func (s *FallbackStore) bump(prev time.Time) time.Time {
	now := s.now()
	if !now.After(prev) {
		now = prev.Add(time.Millisecond)
	}
	return now
}

// HasHistory implements Adapter: a session resumes once it holds messages.
func (s *FallbackStore) HasHistory(ctx context.Context, id string) (bool, error) {
	msgs, err := s.GetMessages(ctx, id)
	if err != nil {
		return false, err
	}
	return len(msgs) > 0, nil
}

// WatchChanges implements Adapter.
func (s *FallbackStore) WatchChanges(handler func(types.StorageEvent)) (Unsubscribe, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	sub, err := watcher.Subscribe(s.dir, watcher.FallbackMapping, handler)
	if err != nil {
		return nil, err
	}
	return func() { sub.Close() }, nil
}
