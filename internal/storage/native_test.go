package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claudeweb/internal/types"
)

func writeLog(t *testing.T, dir, id string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, id+".jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600))
	return path
}

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestNative_IndexListing(t *testing.T) {
	dir := t.TempDir()
	index := `{"version":1,"entries":[
		{"sessionId":"A","firstPrompt":"fix bug","modified":"2025-01-02T00:00:00Z","created":"2025-01-01T00:00:00Z","messageCount":4,"isSidechain":false},
		{"sessionId":"B","firstPrompt":"","modified":"2025-01-03T00:00:00Z","isSidechain":false},
		{"sessionId":"C","firstPrompt":"side","modified":"2025-01-04T00:00:00Z","isSidechain":true},
		{"sessionId":"../etc","firstPrompt":"bad","modified":"2025-01-05T00:00:00Z"}
	]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sessions-index.json"), []byte(index), 0o600))

	store := NewNativeStore(dir, "/ws")
	sessions, err := store.ListSessions(context.Background())
	require.NoError(t, err)

	require.Len(t, sessions, 2)
	assert.Equal(t, "B", sessions[0].ID)
	assert.Equal(t, "Untitled", sessions[0].Title)
	assert.Equal(t, "A", sessions[1].ID)
	assert.Equal(t, "fix bug", sessions[1].Title)
	assert.Equal(t, 4, sessions[1].MessageCount)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), sessions[1].CreatedAt.UTC())
	assert.Equal(t, "/ws", sessions[1].Workspace)
}

func TestNative_IndexWrongVersionFallsBackToScan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sessions-index.json"),
		[]byte(`{"version":2,"entries":[{"sessionId":"ghost"}]}`), 0o600))
	writeLog(t, dir, "real", `{"type":"user","uuid":"u","message":{"content":"hello"}}`)

	sessions, err := NewNativeStore(dir, "/ws").ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "real", sessions[0].ID)
}

func TestNative_IndexEpochMillis(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sessions-index.json"),
		[]byte(`{"version":1,"entries":[{"sessionId":"A","created":1735689600000,"fileMtime":1735776000000}]}`), 0o600))

	sessions, err := NewNativeStore(dir, "/ws").ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, time.UnixMilli(1735689600000).UTC(), sessions[0].CreatedAt)
	assert.Equal(t, time.UnixMilli(1735776000000).UTC(), sessions[0].UpdatedAt)
}

func TestNative_ScanListing(t *testing.T) {
	dir := t.TempDir()
	long := strings.Repeat("é", 120)
	older := writeLog(t, dir, "older",
		`{"type":"user","uuid":"u1","timestamp":"2025-01-01T10:00:00Z","message":{"content":"`+long+`"}}`)
	newer := writeLog(t, dir, "newer",
		`{"type":"summary","summary":"x"}`,
		`{"type":"user","uuid":"u2","timestamp":"2025-01-02T10:00:00Z","message":{"content":"short"}}`,
		`{"type":"assistant","uuid":"a2","message":{"id":"m","content":[{"type":"text","text":"ok"}]}}`)
	writeLog(t, dir, "agent-abc", `{"type":"user","message":{"content":"subagent"}}`)
	writeLog(t, dir, "empty", `{"type":"summary","summary":"only"}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	now := time.Now()
	touch(t, older, now.Add(-2*time.Hour))
	touch(t, newer, now.Add(-time.Hour))
	touch(t, filepath.Join(dir, "empty.jsonl"), now.Add(-3*time.Hour))

	sessions, err := NewNativeStore(dir, "/ws").ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	assert.Equal(t, "newer", sessions[0].ID)
	assert.Equal(t, "short", sessions[0].Title)
	assert.Equal(t, 2, sessions[0].MessageCount)
	assert.Equal(t, time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC), sessions[0].CreatedAt.UTC())

	assert.Equal(t, "older", sessions[1].ID)
	assert.Equal(t, strings.Repeat("é", 100)+"...", sessions[1].Title)

	assert.Equal(t, "empty", sessions[2].ID)
	assert.Equal(t, "Untitled", sessions[2].Title)
}

func TestNative_ListMissingDir(t *testing.T) {
	sessions, err := NewNativeStore(filepath.Join(t.TempDir(), "nope"), "/ws").ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestNative_GetMessages(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "S",
		`{"type":"user","uuid":"u1","timestamp":"t1","message":{"role":"user","content":"Hi"}}`,
		`{"type":"assistant","uuid":"a1","timestamp":"t2","message":{"id":"m1","content":[{"type":"text","text":"Hel"}]}}`,
		`{"type":"assistant","uuid":"a2","timestamp":"t3","message":{"id":"m1","content":[{"type":"text","text":"Hello!"}]}}`)

	store := NewNativeStore(dir, "/ws")
	msgs, err := store.GetMessages(context.Background(), "S")
	require.NoError(t, err)
	assert.Equal(t, []types.Message{
		{ID: "u1", Role: types.RoleUser, Content: "Hi", Timestamp: "t1"},
		{ID: "a2", Role: types.RoleAssistant, Content: "Hello!", Timestamp: "t3"},
	}, msgs)

	msgs, err = store.GetMessages(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestNative_InvalidIDs(t *testing.T) {
	ctx := context.Background()
	store := NewNativeStore(t.TempDir(), "/ws")

	_, err := store.GetMessages(ctx, "../../etc/passwd")
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = store.GetSession(ctx, "a b")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.ErrorIs(t, store.DeleteSession(ctx, "x/y"), ErrInvalidArgument)
	assert.ErrorIs(t, store.RenameSession(ctx, "", "t"), ErrInvalidArgument)

	_, err = store.HasHistory(ctx, "..")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	var serr *Error
	require.True(t, errors.As(store.DeleteSession(ctx, "x/y"), &serr))
	assert.Equal(t, "delete", serr.Op)
}

func TestNative_CreateAndHistory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "project")
	store := NewNativeStore(dir, "/ws")
	ctx := context.Background()

	session, err := store.CreateSession(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "New Conversation", session.Title)
	assert.NoError(t, ValidateID("test", session.ID))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	has, err := store.HasHistory(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, has)

	writeLog(t, dir, session.ID, `{"type":"user","uuid":"u","message":{"content":"hi"}}`)
	has, err = store.HasHistory(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, has)

	got, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hi", got.Title)
}

func TestNative_GetSessionAbsent(t *testing.T) {
	got, err := NewNativeStore(t.TempDir(), "/ws").GetSession(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNative_DeleteAndRename(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	store := NewNativeStore(dir, "/ws")
	path := writeLog(t, dir, "S", `{"type":"user","message":{"content":"hi"}}`)

	require.NoError(t, store.RenameSession(ctx, "S", "new title"))
	got, err := store.GetSession(ctx, "S")
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Title)

	require.NoError(t, store.DeleteSession(ctx, "S"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.DeleteSession(ctx, "S"))
}

func TestNative_AppendUnsupported(t *testing.T) {
	_, err := NewNativeStore(t.TempDir(), "/ws").AppendMessage(context.Background(), "S",
		NewMessage{Role: types.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestNative_WatchChanges(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "project")
	store := NewNativeStore(dir, "/ws")

	events := make(chan types.StorageEvent, 16)
	unsubscribe, err := store.WatchChanges(func(ev types.StorageEvent) { events <- ev })
	require.NoError(t, err)
	defer unsubscribe()

	writeLog(t, dir, "S", `{"type":"user","message":{"content":"hi"}}`)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.SessionID == "S" {
				assert.Contains(t, []types.StorageEventType{types.SessionAdded, types.MessageAdded}, ev.Type)
				return
			}
		case <-deadline:
			t.Fatal("no watch event")
		}
	}
}
