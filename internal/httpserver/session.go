// internal/httpserver/session.go
//
// Session cookie handling. The cookie (or a Bearer token) carries an HS256
// JWT whose "sid" claim is the game session ID, so IDs cannot be guessed or
// forged by the client.

package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errNoSession      = errors.New("no session")
	errInvalidSession = errors.New("invalid session")
)

// sessionTokenTTL bounds the lifetime of a session token; the session itself
// is usually swept long before.
const sessionTokenTTL = 24 * time.Hour

// signSession creates an HS256 JWT for session id.
func (s *Server) signSession(id string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(sessionTokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": id,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	})
	ss, err := t.SignedString(s.secret)
	return ss, exp, err
}

// sessionID extracts and verifies the session token of r.
func (s *Server) sessionID(r *http.Request) (string, error) {
	tok := s.bearerOrCookie(r)
	if tok == "" {
		return "", errNoSession
	}
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return "", errInvalidSession
	}
	id, _ := claims["sid"].(string)
	if id == "" {
		return "", errInvalidSession
	}
	return id, nil
}

// setSessionCookie writes the session token cookie.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, exp time.Time) {
	sameSite := http.SameSiteLaxMode
	if s.secure {
		sameSite = http.SameSiteNoneMode // required for cross-site use when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// bearerOrCookie extracts a bearer token from the Authorization header or the session cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}
