package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SrMths/jogo-numero-secreto/internal/config"
	"github.com/SrMths/jogo-numero-secreto/internal/game"
	"github.com/SrMths/jogo-numero-secreto/internal/pool"
	"github.com/SrMths/jogo-numero-secreto/internal/present"
	"github.com/SrMths/jogo-numero-secreto/internal/store"
)

// fixedSource always proposes the same index, so the first secret of a
// session is k+1.
type fixedSource int

func (f fixedSource) IntN(n int) int { return int(f) % n }

func testConfig() config.Config {
	return config.Config{
		Max:           10,
		Voice:         "test voice",
		Rate:          1.5,
		SessionSecret: "test-secret",
		SessionTTL:    time.Minute,
		CookieName:    "sid",
		ClientOrigin:  "http://localhost:5173",
		GuessRate:     100,
	}
}

func newTestServer(t *testing.T, cfg config.Config, secret int) (*Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemoryStore()
	srv := New(mem, cfg, func() pool.Source { return fixedSource(secret - 1) })
	return srv, mem
}

// do sends a request through the router, carrying cookie if not nil.
func do(t *testing.T, srv *Server, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) viewRes {
	t.Helper()
	var v viewRes
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func newGame(t *testing.T, srv *Server) (*http.Cookie, viewRes) {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/game/new", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0], decodeView(t, rec)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), 7)
	rec := do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestIndexServed(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), 7)
	rec := do(t, srv, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "reiniciar")

	rec = do(t, srv, http.MethodGet, "/static/app.js", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pickVoice(c.voice.name)", "page selects the configured voice")
}

func TestNotFound(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), 7)
	rec := do(t, srv, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"not_found"`)
}

func TestNewGame(t *testing.T) {
	srv, mem := newTestServer(t, testConfig(), 7)
	cookie, v := newGame(t, srv)

	assert.Equal(t, "sid", cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, []renderOp{
		{Loc: present.Title, Text: "Jogo do número secreto"},
		{Loc: present.Paragraph, Text: "Escolha um número entre 1 e 10"},
	}, v.Renders)
	assert.False(t, v.RestartEnabled)
	assert.Equal(t, game.StatePlaying, v.Game.State)
	assert.Equal(t, 1, v.Game.Attempts)
	assert.Zero(t, v.Game.Secret)
	require.Len(t, v.Speech, 2)
	assert.Equal(t, present.Voice{Name: "test voice", Rate: 1.5}, v.Speech[0].Voice)
	assert.Equal(t, 1, mem.Len())

	// A second new game replaces the first session.
	rec := do(t, srv, http.MethodPost, "/game/new", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, mem.Len())
}

func TestGuessScenario(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), 7)
	cookie, _ := newGame(t, srv)

	want := []struct {
		body    string
		outcome game.Outcome
		text    string
	}{
		{`{"guess":"3"}`, game.TooLow, "O número secreto é maior"},
		{`{"guess":9}`, game.TooHigh, "O número secreto é menor"},
		{`{"guess":" 7 "}`, game.Correct, "Você descobriu o número secreto com 3 tentativas!"},
	}
	var last viewRes
	for _, w := range want {
		rec := do(t, srv, http.MethodPost, "/game/guess", w.body, cookie)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		last = decodeView(t, rec)
		assert.Equal(t, w.outcome, last.Outcome)
		assert.Equal(t, w.text, last.Renders[len(last.Renders)-1].Text)
	}

	assert.True(t, last.RestartEnabled)
	assert.False(t, last.ClearInput)
	assert.Equal(t, game.StateFinished, last.Game.State)
	assert.Equal(t, 3, last.Game.Attempts)
	assert.Equal(t, 7, last.Game.Secret)
	assert.Equal(t, []int{3, 9, 7}, last.Game.Guesses)
}

func TestGuessInvalidInput(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), 7)
	cookie, _ := newGame(t, srv)

	for _, body := range []string{`{"guess":"abc"}`, `{"guess":""}`, `{"guess":42}`, `{"guess":2.5}`} {
		rec := do(t, srv, http.MethodPost, "/game/guess", body, cookie)
		require.Equal(t, http.StatusOK, rec.Code)
		v := decodeView(t, rec)
		assert.Equal(t, game.Invalid, v.Outcome, body)
		assert.True(t, v.ClearInput)
		assert.Equal(t, 1, v.Game.Attempts)
		assert.Equal(t, "Digite um número válido entre 1 e 10", v.Renders[0].Text)
	}

	rec := do(t, srv, http.MethodPost, "/game/guess", `{`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuessRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), 7)

	rec := do(t, srv, http.MethodPost, "/game/guess", `{"guess":"1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_session")

	forged := &http.Cookie{Name: "sid", Value: "not-a-token"}
	rec = do(t, srv, http.MethodPost, "/game/guess", `{"guess":"1"}`, forged)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_session")

	// Signed with another key.
	other, _ := newTestServer(t, config.Config{SessionSecret: "other", CookieName: "sid"}, 7)
	tok, _, err := other.signSession("abc")
	require.NoError(t, err)
	rec = do(t, srv, http.MethodPost, "/game/guess", `{"guess":"1"}`, &http.Cookie{Name: "sid", Value: tok})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuessBearerToken(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), 4)
	cookie, _ := newGame(t, srv)

	req := httptest.NewRequest(http.MethodPost, "/game/guess", strings.NewReader(`{"guess":"4"}`))
	req.Header.Set("Authorization", "Bearer "+cookie.Value)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, game.Correct, decodeView(t, rec).Outcome)
}

func TestGuessSweptSession(t *testing.T) {
	srv, mem := newTestServer(t, testConfig(), 7)
	cookie, v := newGame(t, srv)
	require.NoError(t, mem.Delete(context.Background(), v.Game.ID))

	rec := do(t, srv, http.MethodPost, "/game/guess", `{"guess":"1"}`, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGuessRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.GuessRate = 0.001 // burst 1, no refill during the test
	srv, _ := newTestServer(t, cfg, 7)
	cookie, _ := newGame(t, srv)

	rec := do(t, srv, http.MethodPost, "/game/guess", `{"guess":"1"}`, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodPost, "/game/guess", `{"guess":"2"}`, cookie)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestGuessAfterFinish(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), 2)
	cookie, _ := newGame(t, srv)

	do(t, srv, http.MethodPost, "/game/guess", `{"guess":"2"}`, cookie)
	rec := do(t, srv, http.MethodPost, "/game/guess", `{"guess":"5"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeView(t, rec)
	assert.Equal(t, game.Invalid, v.Outcome)
	assert.Equal(t, "Clique em Novo jogo para jogar de novo", v.Renders[0].Text)
	assert.True(t, v.RestartEnabled)
}

func TestRestart(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), 5)
	cookie, _ := newGame(t, srv)

	rec := do(t, srv, http.MethodPost, "/game/restart", "", cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_finished")

	do(t, srv, http.MethodPost, "/game/guess", `{"guess":"1"}`, cookie)
	do(t, srv, http.MethodPost, "/game/guess", `{"guess":"5"}`, cookie)

	rec = do(t, srv, http.MethodPost, "/game/restart", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeView(t, rec)
	assert.Equal(t, game.StatePlaying, v.Game.State)
	assert.Equal(t, 1, v.Game.Attempts)
	assert.Empty(t, v.Game.Guesses)
	assert.False(t, v.RestartEnabled)
	assert.True(t, v.ClearInput)
	assert.Equal(t, "Jogo do número secreto", v.Renders[0].Text)
}

func TestState(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), 5)
	cookie, _ := newGame(t, srv)
	do(t, srv, http.MethodPost, "/game/guess", `{"guess":"8"}`, cookie)

	rec := do(t, srv, http.MethodGet, "/game/state", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeView(t, rec)
	assert.Empty(t, v.Renders)
	assert.Equal(t, 2, v.Game.Attempts)
	assert.Equal(t, []int{8}, v.Game.Guesses)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), 5)
	rec := do(t, srv, http.MethodOptions, "/game/guess", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSweepDropsLimiters(t *testing.T) {
	srv, mem := newTestServer(t, testConfig(), 5)
	cookie, v := newGame(t, srv)
	do(t, srv, http.MethodPost, "/game/guess", `{"guess":"1"}`, cookie)
	require.Len(t, srv.limiters, 1)

	require.NoError(t, mem.Delete(context.Background(), v.Game.ID))
	srv.sweep(context.Background(), time.Hour)
	assert.Empty(t, srv.limiters)
}

// lookupStore takes a limiter on every Get, as a guess arriving mid-sweep would.
type lookupStore struct {
	*store.Memory
	srv *Server
}

func (l *lookupStore) Get(ctx context.Context, id string) (*game.Session, error) {
	l.srv.limiter("guess-during-sweep")
	return l.Memory.Get(ctx, id)
}

func TestSweepDoesNotBlockLimiters(t *testing.T) {
	ls := &lookupStore{Memory: store.NewMemoryStore()}
	ls.srv = New(ls, testConfig(), nil)
	ls.srv.limiter("gone")

	done := make(chan struct{})
	go func() {
		ls.srv.sweep(context.Background(), time.Hour)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep held the limiter lock while reading the store")
	}
	assert.NotContains(t, ls.srv.limiters, "gone")
	assert.Contains(t, ls.srv.limiters, "guess-during-sweep")
}

func TestWebSocketGame(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), 6)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer c.CloseNow()

	var frame wsRender
	require.NoError(t, wsjson.Read(ctx, c, &frame))
	assert.Equal(t, "render", frame.Type)
	assert.Equal(t, "Jogo do número secreto", frame.Renders[0].Text)

	require.NoError(t, wsjson.Write(ctx, c, map[string]string{"type": "restart"}))
	var wsErr wsError
	require.NoError(t, wsjson.Read(ctx, c, &wsErr))
	assert.Equal(t, "not_finished", wsErr.Error)

	require.NoError(t, wsjson.Write(ctx, c, map[string]any{"type": "guess", "value": true}))
	require.NoError(t, wsjson.Read(ctx, c, &wsErr))
	assert.Equal(t, "bad_json", wsErr.Error)

	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte("{not json")))
	require.NoError(t, wsjson.Read(ctx, c, &wsErr))
	assert.Equal(t, "bad_json", wsErr.Error)

	require.NoError(t, wsjson.Write(ctx, c, map[string]any{"type": "guess", "value": 9}))
	frame = wsRender{}
	require.NoError(t, wsjson.Read(ctx, c, &frame))
	assert.Equal(t, game.TooHigh, frame.Outcome)

	require.NoError(t, wsjson.Write(ctx, c, map[string]string{"type": "guess", "value": "6"}))
	frame = wsRender{}
	require.NoError(t, wsjson.Read(ctx, c, &frame))
	assert.Equal(t, game.Correct, frame.Outcome)
	assert.True(t, frame.RestartEnabled)
	assert.Equal(t, 2, frame.Game.Attempts)

	require.NoError(t, wsjson.Write(ctx, c, map[string]string{"type": "restart"}))
	frame = wsRender{}
	require.NoError(t, wsjson.Read(ctx, c, &frame))
	assert.Equal(t, game.StatePlaying, frame.Game.State)

	require.NoError(t, wsjson.Write(ctx, c, map[string]string{"type": "dance"}))
	require.NoError(t, wsjson.Read(ctx, c, &wsErr))
	assert.Equal(t, "unknown_type", wsErr.Error)

	require.NoError(t, c.Close(websocket.StatusNormalClosure, ""))
}
