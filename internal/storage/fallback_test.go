package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claudeweb/internal/types"
)

// frozenClock returns the same instant on every call.
func frozenClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestFallback_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	store := NewFallbackStore(dir, "/ws")
	store.now = frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	session, err := store.CreateSession(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "New Conversation", session.Title)
	assert.Equal(t, session.CreatedAt, session.UpdatedAt)

	msg, err := store.AppendMessage(ctx, session.ID, NewMessage{Role: types.RoleUser, Content: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.NotEmpty(t, msg.Timestamp)

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].UpdatedAt.After(sessions[0].CreatedAt))
	assert.Equal(t, 1, sessions[0].MessageCount)

	msgs, err := store.GetMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, types.RoleUser, msgs[0].Role)

	has, err := store.HasHistory(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestFallback_FileFormat(t *testing.T) {
	dir := t.TempDir()
	store := NewFallbackStore(dir, "/ws")
	ctx := context.Background()

	session, err := store.CreateSession(ctx, "Design chat")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, session.ID+".json"))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "session")
	assert.JSONEq(t, `[]`, string(raw["messages"]))
}

func TestFallback_UpdatedAtStrictlyIncreases(t *testing.T) {
	store := NewFallbackStore(t.TempDir(), "/ws")
	store.now = frozenClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	session, err := store.CreateSession(ctx, "t")
	require.NoError(t, err)

	prev := session.UpdatedAt
	for i := 0; i < 3; i++ {
		_, err := store.AppendMessage(ctx, session.ID, NewMessage{Role: types.RoleAssistant, Content: "x"})
		require.NoError(t, err)
		got, err := store.GetSession(ctx, session.ID)
		require.NoError(t, err)
		assert.True(t, got.UpdatedAt.After(prev))
		prev = got.UpdatedAt
	}
}

func TestFallback_ListOrderAndCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFallbackStore(dir, "/ws")
	ctx := context.Background()

	store.now = frozenClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	first, err := store.CreateSession(ctx, "first")
	require.NoError(t, err)
	store.now = frozenClock(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	second, err := store.CreateSession(ctx, "second")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0o644))

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)

	store.now = frozenClock(time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC))
	_, err = store.AppendMessage(ctx, first.ID, NewMessage{Role: types.RoleUser, Content: "bump"})
	require.NoError(t, err)

	sessions, err = store.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, sessions[0].ID)
}

func TestFallback_CorruptFileReadsAsMissing(t *testing.T) {
	dir := t.TempDir()
	store := NewFallbackStore(dir, "/ws")
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.json"), []byte("{nope"), 0o644))

	got, err := store.GetSession(ctx, "abc123")
	require.NoError(t, err)
	assert.Nil(t, got)

	msgs, err := store.GetMessages(ctx, "abc123")
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)

	has, err := store.HasHistory(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = store.AppendMessage(ctx, "abc123", NewMessage{Role: types.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFallback_RenameAndDelete(t *testing.T) {
	store := NewFallbackStore(t.TempDir(), "/ws")
	ctx := context.Background()

	session, err := store.CreateSession(ctx, "old")
	require.NoError(t, err)

	require.NoError(t, store.RenameSession(ctx, session.ID, "new"))
	got, err := store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)

	assert.ErrorIs(t, store.RenameSession(ctx, session.ID, " "), ErrInvalidArgument)
	assert.ErrorIs(t, store.RenameSession(ctx, "missing", "x"), ErrNotFound)

	require.NoError(t, store.DeleteSession(ctx, session.ID))
	got, err = store.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, store.DeleteSession(ctx, session.ID))
}

func TestFallback_AppendValidation(t *testing.T) {
	store := NewFallbackStore(t.TempDir(), "/ws")
	ctx := context.Background()

	_, err := store.AppendMessage(ctx, "../x", NewMessage{Role: types.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = store.AppendMessage(ctx, "abc", NewMessage{Role: "robot", Content: "x"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = store.AppendMessage(ctx, "abc", NewMessage{Role: types.RoleUser})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = store.AppendMessage(ctx, "abc", NewMessage{Role: types.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFallback_MissingSession(t *testing.T) {
	store := NewFallbackStore(filepath.Join(t.TempDir(), "not-yet"), "/ws")
	ctx := context.Background()

	sessions, err := store.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	msgs, err := store.GetMessages(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	has, err := store.HasHistory(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestFallback_WatchChanges(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	store := NewFallbackStore(dir, "/ws")

	events := make(chan types.StorageEvent, 16)
	unsubscribe, err := store.WatchChanges(func(ev types.StorageEvent) { events <- ev })
	require.NoError(t, err)
	defer unsubscribe()

	session, err := store.CreateSession(context.Background(), "watched")
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.SessionID == session.ID {
				return
			}
		case <-deadline:
			t.Fatal("no watch event")
		}
	}
}
