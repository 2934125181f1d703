// internal/httpserver/server.go
//
// HTTP server wiring for the secret number game.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Page: "/" and "/static/*" from the embedded assets.
//   - Game endpoints: POST /game/new, POST /game/guess, POST /game/restart,
//     GET /game/state.
//   - Live endpoint: GET /ws (see routes_ws.go).
//   - Per-session guess rate limiting and idle session cleanup.
//
// Notes:
//   - Every game endpoint drives a present.Controller through a request-scoped
//     view, so the page gets exactly what the controller rendered.
//   - Sessions are identified by a signed cookie (see session.go).
//   - All work on a session runs inside store.Update, one call at a time.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/SrMths/jogo-numero-secreto/assets"
	"github.com/SrMths/jogo-numero-secreto/internal/config"
	"github.com/SrMths/jogo-numero-secreto/internal/game"
	"github.com/SrMths/jogo-numero-secreto/internal/pool"
	"github.com/SrMths/jogo-numero-secreto/internal/present"
	"github.com/SrMths/jogo-numero-secreto/internal/store"
)

// Server bundles router, session store and settings.
type Server struct {
	r      *chi.Mux
	store  store.Store
	cfg    config.Config
	secret []byte
	secure bool
	voice  present.Voice
	source func() pool.Source

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter // keyed by session ID
}

// New constructs a Server, installs middleware, and registers routes.
// source supplies the randomness of each new session; nil means crypto/rand.
func New(st store.Store, cfg config.Config, source func() pool.Source) *Server {
	if source == nil {
		source = func() pool.Source { return pool.CryptoSource{} }
	}
	s := &Server{
		r:        chi.NewRouter(),
		store:    st,
		cfg:      cfg,
		secret:   []byte(cfg.SessionSecret),
		secure:   strings.HasPrefix(cfg.ClientOrigin, "https://"),
		voice:    present.Voice{Name: cfg.Voice, Rate: cfg.Rate},
		source:   source,
		limiters: make(map[string]*rate.Limiter),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)            // add X-Request-ID
	s.r.Use(chimw.RealIP)               // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)            // recover from panics
	s.r.Use(corsFrom(cfg.ClientOrigin)) // credentials-friendly CORS

	// --- page ---
	s.r.Get("/", s.handleIndex)
	s.r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(assets.Web()))))

	// --- live play; long lived, so outside the timeout group ---
	s.r.Get("/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Post("/game/new", s.handleNewGame)
		r.Post("/game/guess", s.handleGuess)
		r.Post("/game/restart", s.handleRestart)
		r.Get("/game/state", s.handleState)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start serves HTTP on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	}
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFrom enables credentialed CORS for a single origin.
func corsFrom(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------- PAGE --------------------------------------

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	b, err := assets.Index()
	if err != nil {
		log.Error().Err(err).Msg("read index")
		http.Error(w, "index unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

// ------------------------------- GAME --------------------------------------

// guessInput accepts the guess as a JSON string or a JSON number.
type guessInput string

func (g *guessInput) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*g = guessInput(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*g = guessInput(n.String())
	return nil
}

// guessReq is the payload of POST /game/guess.
type guessReq struct {
	Guess guessInput `json:"guess"`
}

// handleNewGame replaces the caller's session with a fresh one and renders
// the opening screen. Reloading the page lands here, so nothing survives a reload.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	if old, err := s.sessionID(r); err == nil {
		_ = s.store.Delete(r.Context(), old)
		s.forgetLimiter(old)
	}

	gs, err := game.NewSession(s.cfg.Max, s.source())
	if err != nil {
		log.Error().Err(err).Msg("new session")
		http.Error(w, `{"error":"new_session_failed"}`, http.StatusInternalServerError)
		return
	}
	v := newView(gs, "")
	s.controller(gs, v).Start()

	if err := s.store.Save(r.Context(), gs); err != nil {
		log.Error().Err(err).Msg("save session")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	tok, exp, err := s.signSession(gs.ID)
	if err != nil {
		log.Error().Err(err).Msg("sign session")
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	s.setSessionCookie(w, tok, exp)

	log.Info().Str("session", gs.ID).Int("max", gs.Max).Msg("new game")
	_ = json.NewEncoder(w).Encode(v.result(gs, ""))
}

// handleGuess evaluates the submitted guess. Invalid input is not an HTTP
// error: it is rendered like any other outcome.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	sid, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if !s.limiter(sid).Allow() {
		http.Error(w, `{"error":"rate_limited"}`, http.StatusTooManyRequests)
		return
	}

	var res viewRes
	err := s.store.Update(r.Context(), sid, func(gs *game.Session) error {
		v := newView(gs, string(req.Guess))
		o, err := s.controller(gs, v).SubmitGuess()
		if err != nil && !isUserError(err) {
			return err
		}
		res = v.result(gs, o)
		return nil
	})
	if !s.writeStoreErr(w, sid, err) {
		return
	}
	if res.Outcome == game.Correct {
		log.Info().Str("session", sid).Int("attempts", res.Game.Attempts).Msg("secret found")
	}
	_ = json.NewEncoder(w).Encode(res)
}

// handleRestart starts a new round; only allowed once the secret was found.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	sid, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	var res viewRes
	err := s.store.Update(r.Context(), sid, func(gs *game.Session) error {
		v := newView(gs, "")
		if err := s.controller(gs, v).Restart(); err != nil {
			return err
		}
		res = v.result(gs, "")
		return nil
	})
	if errors.Is(err, present.ErrRestartDisabled) {
		http.Error(w, `{"error":"not_finished"}`, http.StatusConflict)
		return
	}
	if !s.writeStoreErr(w, sid, err) {
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

// handleState reports the session without rendering anything.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sid, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	var res viewRes
	err := s.store.Update(r.Context(), sid, func(gs *game.Session) error {
		res = newView(gs, "").result(gs, "")
		return nil
	})
	if !s.writeStoreErr(w, sid, err) {
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

// ------------------------------ helpers ------------------------------------

func (s *Server) controller(gs *game.Session, v *view) *present.Controller {
	return present.NewController(gs, v, present.WithSpeaker(v, s.voice))
}

// requireSession writes a 401 and returns false when r has no valid session token.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid, err := s.sessionID(r)
	switch {
	case errors.Is(err, errNoSession):
		http.Error(w, `{"error":"no_session"}`, http.StatusUnauthorized)
		return "", false
	case err != nil:
		http.Error(w, `{"error":"invalid_session"}`, http.StatusUnauthorized)
		return "", false
	}
	return sid, true
}

// writeStoreErr maps an Update error to a response. Returns true if err was nil.
func (s *Server) writeStoreErr(w http.ResponseWriter, sid string, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		http.Error(w, `{"error":"timeout"}`, http.StatusServiceUnavailable)
	default:
		log.Error().Err(err).Str("session", sid).Msg("session update")
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
	}
	return false
}

// isUserError reports errors that are rendered to the player rather than failed.
func isUserError(err error) bool {
	return errors.Is(err, game.ErrInvalidGuess) || errors.Is(err, game.ErrGameFinished)
}

// newLimiter builds the guess limiter of one session.
func (s *Server) newLimiter() *rate.Limiter {
	burst := int(math.Ceil(s.cfg.GuessRate))
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.cfg.GuessRate), burst)
}

func (s *Server) limiter(sid string) *rate.Limiter {
	s.limMu.Lock()
	defer s.limMu.Unlock()
	l, ok := s.limiters[sid]
	if !ok {
		l = s.newLimiter()
		s.limiters[sid] = l
	}
	return l
}

func (s *Server) forgetLimiter(sid string) {
	s.limMu.Lock()
	delete(s.limiters, sid)
	s.limMu.Unlock()
}

// sweeper is implemented by stores that can evict idle sessions.
type sweeper interface {
	Sweep(idle time.Duration) int
}

// RunJanitor evicts sessions idle for longer than idle, and their limiters,
// every interval until ctx is done.
func (s *Server) RunJanitor(ctx context.Context, idle, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sweep(ctx, idle)
		}
	}
}

func (s *Server) sweep(ctx context.Context, idle time.Duration) {
	evicted := 0
	if sw, ok := s.store.(sweeper); ok {
		evicted = sw.Sweep(idle)
	}

	// Store lookups run without limMu.
	s.limMu.Lock()
	ids := make([]string, 0, len(s.limiters))
	for id := range s.limiters {
		ids = append(ids, id)
	}
	s.limMu.Unlock()

	var gone []string
	for _, id := range ids {
		if _, err := s.store.Get(ctx, id); errors.Is(err, store.ErrNotFound) {
			gone = append(gone, id)
		}
	}
	if len(gone) > 0 {
		s.limMu.Lock()
		for _, id := range gone {
			delete(s.limiters, id)
		}
		s.limMu.Unlock()
	}
	if evicted > 0 {
		log.Debug().Int("evicted", evicted).Int("live", s.store.Len()).Msg("swept idle sessions")
	}
}

// originHosts turns the configured client origin into websocket origin patterns.
func originHosts(origin string) []string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
