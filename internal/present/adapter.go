// Package present connects a game session to a presentation surface.
//
// The Adapter interface is everything the game needs from a surface: put
// text somewhere, read the guess field, clear it, toggle the restart
// control. Controller drives a Session through an Adapter; the terminal,
// HTTP and WebSocket surfaces all implement Adapter.
package present

// Location names a place on the surface where text is rendered.
type Location string

const (
	Title     Location = "h1"
	Paragraph Location = "p"
)

// Adapter is the presentation surface of one game session.
type Adapter interface {
	Render(loc Location, text string)
	ReadGuessInput() string
	ClearGuessInput()
	SetRestartEnabled(enabled bool)
}

// Voice selects how rendered text is spoken.
type Voice struct {
	Name string  `json:"name"`
	Rate float64 `json:"rate"`
}

// DefaultVoice matches the voice the page has always used.
var DefaultVoice = Voice{Name: "Brazilian Portuguese Female", Rate: 1.2}

// Speaker reads text aloud. It is optional; surfaces without audio skip it.
type Speaker interface {
	Speak(text string, v Voice)
}
