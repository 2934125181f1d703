// internal/httpserver/routes_ws.go
//
// Live play over a WebSocket at GET /ws.
// Each connection owns one game session for its whole lifetime; the session
// is never stored, so closing or reloading the page ends it.
//
// Client → server frames:
//   {"type":"guess","value":"7"}
//   {"type":"restart"}
// Server → client frames:
//   {"type":"render", ...viewRes}   after every accepted action
//   {"type":"error","error":"..."}  bad_json | rate_limited | not_finished | unknown_type

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"

	"github.com/SrMths/jogo-numero-secreto/internal/game"
	"github.com/SrMths/jogo-numero-secreto/internal/present"
)

// wsWriteTimeout bounds a single frame write.
const wsWriteTimeout = 5 * time.Second

// wsIn is a client frame.
type wsIn struct {
	Type  string     `json:"type"`
	Value guessInput `json:"value"`
}

// wsRender is a render frame; viewRes fields are inlined.
type wsRender struct {
	Type string `json:"type"`
	viewRes
}

// wsError is an error frame. The connection stays open.
type wsError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// handleWS accepts the WebSocket connection and plays one session on it.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originHosts(s.cfg.ClientOrigin),
	})
	if err != nil {
		log.Warn().Err(err).Msg("ws accept")
		return
	}
	defer c.CloseNow()

	gs, err := game.NewSession(s.cfg.Max, s.source())
	if err != nil {
		log.Error().Err(err).Msg("ws new session")
		c.Close(websocket.StatusInternalError, "session unavailable")
		return
	}
	log.Info().Str("session", gs.ID).Msg("ws game started")

	err = s.playWS(r.Context(), c, gs)
	switch {
	case errors.Is(err, context.Canceled),
		websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway:
		log.Debug().Str("session", gs.ID).Msg("ws closed")
	case err != nil:
		log.Warn().Err(err).Str("session", gs.ID).Msg("ws game ended")
	}
}

// playWS renders the opening screen and then handles one frame at a time
// until the connection fails or closes.
func (s *Server) playWS(ctx context.Context, c *websocket.Conn, gs *game.Session) error {
	lim := s.newLimiter()

	v := newView(gs, "")
	s.controller(gs, v).Start()
	if err := writeFrame(ctx, c, wsRender{Type: "render", viewRes: v.result(gs, "")}); err != nil {
		return err
	}

	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		var in wsIn
		if err := json.Unmarshal(data, &in); err != nil {
			if err := writeFrame(ctx, c, wsError{Type: "error", Error: "bad_json"}); err != nil {
				return err
			}
			continue
		}
		if !lim.Allow() {
			if err := writeFrame(ctx, c, wsError{Type: "error", Error: "rate_limited"}); err != nil {
				return err
			}
			continue
		}

		v := newView(gs, string(in.Value))
		ctl := s.controller(gs, v)
		var o game.Outcome
		switch in.Type {
		case "guess":
			o, err = ctl.SubmitGuess()
			if isUserError(err) {
				err = nil
			}
		case "restart":
			err = ctl.Restart()
			if errors.Is(err, present.ErrRestartDisabled) {
				err = writeFrame(ctx, c, wsError{Type: "error", Error: "not_finished"})
				if err != nil {
					return err
				}
				continue
			}
		default:
			if err := writeFrame(ctx, c, wsError{Type: "error", Error: "unknown_type"}); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		if o == game.Correct {
			log.Info().Str("session", gs.ID).Int("attempts", gs.Attempts).Msg("secret found")
		}
		if err := writeFrame(ctx, c, wsRender{Type: "render", viewRes: v.result(gs, o)}); err != nil {
			return err
		}
	}
}

func writeFrame(ctx context.Context, c *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, c, v)
}
