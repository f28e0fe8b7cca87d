package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claudeweb/internal/chat"
	"claudeweb/internal/providers"
	"claudeweb/internal/storage"
	"claudeweb/internal/types"
)

// fakeSpawner replays a canned reply for every turn.
type fakeSpawner struct {
	mu       sync.Mutex
	requests []providers.SpawnRequest
	reply    []types.StreamEvent
	running  map[string]bool
}

func (f *fakeSpawner) Spawn(_ context.Context, req providers.SpawnRequest) <-chan types.StreamEvent {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	ch := make(chan types.StreamEvent, len(f.reply))
	for _, ev := range f.reply {
		ch <- ev
	}
	close(ch)
	return ch
}

func (f *fakeSpawner) Abort(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	was := f.running[id]
	delete(f.running, id)
	return was
}

func (f *fakeSpawner) IsRunning(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[id]
}

func (f *fakeSpawner) Running() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id := range f.running {
		ids = append(ids, id)
	}
	return ids
}

func setupTestServer(t *testing.T, adapter storage.Adapter) (*Server, *fakeSpawner) {
	t.Helper()
	spawner := &fakeSpawner{
		reply:   []types.StreamEvent{types.Chunk("Hel"), types.Chunk("lo"), types.Done()},
		running: map[string]bool{},
	}
	svc := chat.NewService(adapter, spawner, "/ws")
	det := storage.Detection{Format: "unknown", Reason: "test"}
	return New(adapter, svc, det, WithHeartbeat(50*time.Millisecond)), spawner
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, target any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), target), w.Body.String())
}

func TestListSessions_Empty(t *testing.T) {
	srv, _ := setupTestServer(t, storage.NewFallbackStore(t.TempDir(), "/ws"))

	w := do(t, srv.Router(), "GET", "/api/sessions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessions":[]}`, w.Body.String())
}

func TestCorruptFallbackFile_API(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc123.json"), []byte("{nope"), 0o644))
	srv, _ := setupTestServer(t, storage.NewFallbackStore(dir, "/ws"))
	router := srv.Router()

	w := do(t, router, "GET", "/api/sessions/abc123/messages", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":[]}`, w.Body.String())

	w = do(t, router, "GET", "/api/sessions/abc123", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, "GET", "/api/sessions", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessions":[]}`, w.Body.String())
}

func TestSessionCRUD_API(t *testing.T) {
	srv, _ := setupTestServer(t, storage.NewFallbackStore(t.TempDir(), "/ws"))
	router := srv.Router()

	// Create
	w := do(t, router, "POST", "/api/sessions", `{"title":"First"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Session types.Session `json:"session"`
	}
	decode(t, w, &created)
	assert.Equal(t, "First", created.Session.Title)
	assert.NotEmpty(t, created.Session.ID)
	id := created.Session.ID

	// Create without a body uses the default title
	w = do(t, router, "POST", "/api/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	var untitled struct {
		Session types.Session `json:"session"`
	}
	decode(t, w, &untitled)
	assert.Equal(t, "New Conversation", untitled.Session.Title)

	// Get
	w = do(t, router, "GET", "/api/sessions/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Session types.Session `json:"session"`
		Running bool          `json:"running"`
	}
	decode(t, w, &got)
	assert.Equal(t, id, got.Session.ID)
	assert.False(t, got.Running)

	// Rename
	w = do(t, router, "PATCH", "/api/sessions/"+id, `{"title":"  Renamed  "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = do(t, router, "GET", "/api/sessions/"+id, "")
	decode(t, w, &got)
	assert.Equal(t, "Renamed", got.Session.Title)

	// List
	w = do(t, router, "GET", "/api/sessions", "")
	var list struct {
		Sessions []types.Session `json:"sessions"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Sessions, 2)

	// Delete
	w = do(t, router, "DELETE", "/api/sessions/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, "GET", "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionRoutes_Errors(t *testing.T) {
	srv, _ := setupTestServer(t, storage.NewFallbackStore(t.TempDir(), "/ws"))
	router := srv.Router()

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"get invalid id", "GET", "/api/sessions/bad.id", "", http.StatusBadRequest},
		{"delete invalid id", "DELETE", "/api/sessions/bad.id", "", http.StatusBadRequest},
		{"messages invalid id", "GET", "/api/sessions/bad.id/messages", "", http.StatusBadRequest},
		{"stop invalid id", "POST", "/api/sessions/bad.id/stop", "", http.StatusBadRequest},
		{"get missing", "GET", "/api/sessions/missing", "", http.StatusNotFound},
		{"rename missing", "PATCH", "/api/sessions/missing", `{"title":"x"}`, http.StatusNotFound},
		{"rename blank title", "PATCH", "/api/sessions/missing", `{"title":"   "}`, http.StatusBadRequest},
		{"rename no title", "PATCH", "/api/sessions/missing", `{}`, http.StatusBadRequest},
		{"rename bad json", "PATCH", "/api/sessions/missing", `{`, http.StatusBadRequest},
		{"wrong method", "PUT", "/api/sessions/x", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRename_NativeIsNoOp(t *testing.T) {
	srv, _ := setupTestServer(t, storage.NewNativeStore(t.TempDir(), "/ws"))

	w := do(t, srv.Router(), "PATCH", "/api/sessions/abc", `{"title":"x"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetMessages_Native(t *testing.T) {
	dir := t.TempDir()
	log := `{"type":"user","uuid":"u1","timestamp":"2024-01-01T00:00:00Z","message":{"role":"user","content":"hi"}}` + "\n" +
		`{"type":"assistant","uuid":"a1","timestamp":"2024-01-01T00:00:01Z","message":{"id":"m1","role":"assistant","content":[{"type":"text","text":"hello"}]}}` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "S1.jsonl"), []byte(log), 0o600))
	srv, _ := setupTestServer(t, storage.NewNativeStore(dir, "/ws"))

	w := do(t, srv.Router(), "GET", "/api/sessions/S1/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Messages []types.Message `json:"messages"`
	}
	decode(t, w, &body)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "hi", body.Messages[0].Content)
	assert.Equal(t, "hello", body.Messages[1].Content)

	w = do(t, srv.Router(), "GET", "/api/sessions/none/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":[]}`, w.Body.String())
}

func TestStream_RelaysEvents(t *testing.T) {
	store := storage.NewFallbackStore(t.TempDir(), "/ws")
	srv, spawner := setupTestServer(t, store)
	session, err := store.CreateSession(context.Background(), "")
	require.NoError(t, err)

	w := do(t, srv.Router(), "GET", "/api/sessions/"+session.ID+"/stream?message=Hi%20there", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t,
		"data: {\"type\":\"chunk\",\"content\":\"Hel\"}\n\n"+
			"data: {\"type\":\"chunk\",\"content\":\"lo\"}\n\n"+
			"data: {\"type\":\"done\"}\n\n",
		w.Body.String())

	require.Len(t, spawner.requests, 1)
	assert.Equal(t, "Hi there", spawner.requests[0].Message)
	assert.False(t, spawner.requests[0].Resume)
}

func TestStream_Validation(t *testing.T) {
	srv, spawner := setupTestServer(t, storage.NewFallbackStore(t.TempDir(), "/ws"))

	w := do(t, srv.Router(), "GET", "/api/sessions/abc/stream", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), `data: {"type":"error","message":`))

	w = do(t, srv.Router(), "GET", "/api/sessions/bad.id/stream?message=hi", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, spawner.requests)
}

func TestStopSession(t *testing.T) {
	srv, spawner := setupTestServer(t, storage.NewFallbackStore(t.TempDir(), "/ws"))
	spawner.running["S"] = true

	w := do(t, srv.Router(), "POST", "/api/sessions/S/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"stopped":true}`, w.Body.String())

	w = do(t, srv.Router(), "POST", "/api/sessions/S/stop", "")
	assert.JSONEq(t, `{"ok":true,"stopped":false}`, w.Body.String())
}

func TestSyncStatus(t *testing.T) {
	srv, spawner := setupTestServer(t, storage.NewFallbackStore(t.TempDir(), "/ws"))
	spawner.running["S"] = true

	w := do(t, srv.Router(), "GET", "/api/sync-status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Mode      string            `json:"mode"`
		Detection storage.Detection `json:"detection"`
		Running   []string          `json:"running"`
	}
	decode(t, w, &body)
	assert.Equal(t, "fallback", body.Mode)
	assert.Equal(t, "test", body.Detection.Reason)
	assert.Equal(t, []string{"S"}, body.Running)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(&storage.Error{Kind: storage.ErrInvalidArgument, Op: "x"}))
	assert.Equal(t, http.StatusNotFound, statusFor(&storage.Error{Kind: storage.ErrNotFound, Op: "x"}))
	assert.Equal(t, http.StatusNotImplemented, statusFor(&storage.Error{Kind: storage.ErrUnsupported, Op: "x"}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("disk on fire")))
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := setupTestServer(t, storage.NewFallbackStore(t.TempDir(), "/ws"))

	w := do(t, srv.Router(), "OPTIONS", "/api/sessions", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

// readFrames collects SSE frames from body on a goroutine.
func readFrames(body *bufio.Reader) <-chan string {
	frames := make(chan string, 64)
	go func() {
		defer close(frames)
		var frame strings.Builder
		for {
			line, err := body.ReadString('\n')
			if err != nil {
				return
			}
			if line == "\n" {
				frames <- frame.String()
				frame.Reset()
				continue
			}
			frame.WriteString(strings.TrimSuffix(line, "\n"))
		}
	}()
	return frames
}

func nextFrame(t *testing.T, frames <-chan string) string {
	t.Helper()
	select {
	case f, ok := <-frames:
		require.True(t, ok, "stream closed")
		return f
	case <-time.After(5 * time.Second):
		t.Fatal("no frame")
		return ""
	}
}

func TestWatchSSE(t *testing.T) {
	store := storage.NewFallbackStore(t.TempDir(), "/ws")
	srv, _ := setupTestServer(t, store)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/watch", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frames := readFrames(bufio.NewReader(resp.Body))
	assert.Equal(t, ": heartbeat", nextFrame(t, frames))

	session, err := store.CreateSession(context.Background(), "watched")
	require.NoError(t, err)

	want := `data: {"type":"session_added","sessionId":"` + session.ID + `"}`
	sawHeartbeat := false
	found := false
	deadline := time.After(5 * time.Second)
	for !found || !sawHeartbeat {
		select {
		case f, ok := <-frames:
			require.True(t, ok)
			switch f {
			case want:
				found = true
			case ": heartbeat":
				sawHeartbeat = true
			}
		case <-deadline:
			t.Fatalf("found=%v heartbeat=%v", found, sawHeartbeat)
		}
	}
}

func TestWatchWebSocket(t *testing.T) {
	store := storage.NewFallbackStore(t.TempDir(), "/ws")
	srv, _ := setupTestServer(t, store)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/watch/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	session, err := store.CreateSession(context.Background(), "watched")
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var ev types.StorageEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == types.SessionAdded && ev.SessionID == session.ID {
			break
		}
	}
}
