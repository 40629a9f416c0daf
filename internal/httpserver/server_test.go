package httpserver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marksoc/spelling-nads/server/internal/store"
	"github.com/marksoc/spelling-nads/server/internal/words"
)

const testSchema = `
CREATE TABLE profiles (
  wallet       TEXT PRIMARY KEY,
  username     TEXT NOT NULL,
  pfp_url      TEXT NOT NULL DEFAULT '',
  games_played INTEGER NOT NULL DEFAULT 0,
  wins         INTEGER NOT NULL DEFAULT 0,
  streak       INTEGER NOT NULL DEFAULT 0,
  best_wpm     INTEGER NOT NULL DEFAULT 0,
  created_at   TEXT NOT NULL
);
CREATE TABLE matches (
  id          INTEGER PRIMARY KEY AUTOINCREMENT,
  wallet      TEXT NOT NULL,
  winner      TEXT NOT NULL,
  won         INTEGER NOT NULL,
  top_wpm     INTEGER NOT NULL DEFAULT 0,
  started_at  TEXT NOT NULL,
  finished_at TEXT NOT NULL
);`

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	_ = words.Init()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	sessions := store.NewMemoryStore()
	return New(sessions, db, nil, nil), sessions
}

func postJSON(t *testing.T, srv *Server, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestNotFoundIsJSON(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, w.Body.String(), `"not_found"`)
}

func TestProfileFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	// Login issues a cookie and flags a fresh wallet for setup.
	w := postJSON(t, srv, "/profile/login", map[string]string{"walletAddress": "0xCAFE"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"needsSetup":true`)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	// /profile/me before setup signals the identity screen.
	req := httptest.NewRequest(http.MethodGet, "/profile/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"needsSetup":true`)

	// Create the identity.
	w = postJSON(t, srv, "/profile", map[string]string{"username": "mark", "pfpUrl": "profile-pics/3.png"}, cookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Now /profile/me resolves.
	req = httptest.NewRequest(http.MethodGet, "/profile/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Username string `json:"username"`
		Wallet   string `json:"walletAddress"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "mark", got.Username)
	assert.Equal(t, "0xCAFE", got.Wallet)
}

func TestProfileMeRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/profile/me", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNewSoloRegistersSession(t *testing.T) {
	srv, sessions := newTestServer(t)

	w := postJSON(t, srv, "/solo/new", map[string]any{
		"settings": map[string]string{"difficulty": "Beginner", "mode": "1v1", "theme": "Spaceship"},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotEmpty(t, res.SessionID)

	sess, err := sessions.Get(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.NotNil(t, sess.Engine)
	sess.Cancel()
}

func TestSoloWSStreamsFrames(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	w := postJSON(t, srv, "/solo/new", map[string]any{
		"settings": map[string]string{"difficulty": "Beginner", "mode": "1v1", "theme": "Volcano"},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/solo/" + res.SessionID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The first frames arrive regardless of game phase.
	var frame struct {
		Type  string `json:"type"`
		Scene struct {
			Phase string  `json:"phase"`
			Width float64 `json:"width"`
		} `json:"scene"`
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == "frame" {
			break
		}
	}
	require.Equal(t, "frame", frame.Type)
	assert.NotEmpty(t, frame.Scene.Phase)
	assert.Equal(t, float64(1280), frame.Scene.Width)

	// Input and submit messages are accepted without closing the socket.
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "input", "text": "ca"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "submit", "answer": "castle"}))
	require.NoError(t, conn.ReadJSON(&frame))
}

func TestSoloWSSecondAttachRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	w := postJSON(t, srv, "/solo/new", map[string]any{
		"settings": map[string]string{"difficulty": "Beginner", "mode": "1v1", "theme": "Spaceship"},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/solo/" + res.SessionID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGateReadyAbandonsWaitOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	returned := make(chan struct{})
	go func() {
		gateReady(ctx, nil, make(chan struct{}), ready)
		close(returned)
	}()

	cancel()
	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("gate goroutine did not return after cancel")
	}
	select {
	case <-ready:
		t.Fatal("ready closed without an attached socket")
	default:
	}
}

func TestGateReadyClosesAfterBothSignals(t *testing.T) {
	assets := make(chan struct{})
	attached := make(chan struct{})
	ready := make(chan struct{})
	go gateReady(context.Background(), assets, attached, ready)

	close(assets)
	close(attached)
	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("ready never closed")
	}
}

func TestSoloWSUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/solo/doesnotexist/ws", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoomLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	w := postJSON(t, srv, "/rooms", map[string]string{"name": "friday"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		Code    string `json:"code"`
		Private bool   `json:"private"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Len(t, created.Code, 6)
	assert.False(t, created.Private)

	req := httptest.NewRequest(http.MethodGet, "/rooms", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.Code)

	req = httptest.NewRequest(http.MethodGet, "/rooms/"+created.Code+"/qr", nil)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestGetWordFallsBackWithoutUpstream(t *testing.T) {
	srv, _ := newTestServer(t)
	w := postJSON(t, srv, "/api/get-word", map[string]string{"word": "castle"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Could not load definition.")
}

func TestGetSpeechRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)
	w := postJSON(t, srv, "/api/get-speech", map[string]string{"text": "hello"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMain(m *testing.M) {
	// Keep cookie/JWT defaults deterministic for handler tests.
	_ = os.Unsetenv("NODE_ENV")
	_ = os.Unsetenv("CLIENT_ORIGIN")
	os.Exit(m.Run())
}
