// internal/httpserver/view.go
//
// view is the Presentation Adapter of one HTTP request (or one WebSocket
// message). The controller renders into it; the result is sent to the page
// as a list of operations to apply.

package httpserver

import (
	"github.com/SrMths/jogo-numero-secreto/internal/game"
	"github.com/SrMths/jogo-numero-secreto/internal/present"
)

// renderOp is one Render call, replayed by the page.
type renderOp struct {
	Loc  present.Location `json:"loc"`
	Text string           `json:"text"`
}

// speechCue asks the page to speak text.
type speechCue struct {
	Text  string        `json:"text"`
	Voice present.Voice `json:"voice"`
}

// viewRes is the JSON body of every game response.
type viewRes struct {
	Outcome        game.Outcome  `json:"outcome,omitempty"`
	Renders        []renderOp    `json:"renders"`
	ClearInput     bool          `json:"clearInput"`
	RestartEnabled bool          `json:"restartEnabled"`
	Speech         []speechCue   `json:"speech,omitempty"`
	Game           game.Snapshot `json:"game"`
}

// view implements present.Adapter and present.Speaker.
type view struct {
	input string
	res   viewRes
}

func newView(s *game.Session, input string) *view {
	return &view{
		input: input,
		res:   viewRes{Renders: []renderOp{}, RestartEnabled: s.Finished},
	}
}

func (v *view) Render(loc present.Location, text string) {
	v.res.Renders = append(v.res.Renders, renderOp{Loc: loc, Text: text})
}

func (v *view) ReadGuessInput() string { return v.input }

func (v *view) ClearGuessInput() {
	v.input = ""
	v.res.ClearInput = true
}

func (v *view) SetRestartEnabled(enabled bool) { v.res.RestartEnabled = enabled }

func (v *view) Speak(text string, voice present.Voice) {
	v.res.Speech = append(v.res.Speech, speechCue{Text: text, Voice: voice})
}

// result finalizes the response with the session state after the call.
func (v *view) result(s *game.Session, o game.Outcome) viewRes {
	v.res.Outcome = o
	v.res.Game = s.Snapshot()
	return v.res
}
