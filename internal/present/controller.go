package present

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/SrMths/jogo-numero-secreto/internal/game"
)

// ErrRestartDisabled is returned by Restart while the round is still on.
var ErrRestartDisabled = errors.New("restart is disabled until the secret is found")

// Controller drives one game session through an Adapter. It is as
// single-threaded as the session it wraps.
type Controller struct {
	s     *game.Session
	ui    Adapter
	voice Voice
	spk   Speaker // may be nil
}

// Option configures a Controller.
type Option func(*Controller)

// WithSpeaker mirrors every rendered text to sp using voice v.
func WithSpeaker(sp Speaker, v Voice) Option {
	return func(c *Controller) {
		c.spk = sp
		c.voice = v
	}
}

// NewController binds a session to a surface.
func NewController(s *game.Session, ui Adapter, opts ...Option) *Controller {
	c := &Controller{s: s, ui: ui, voice: DefaultVoice}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Session returns the wrapped session.
func (c *Controller) Session() *game.Session { return c.s }

// Start shows the opening messages and disables restart.
func (c *Controller) Start() {
	c.render(Title, msgTitle)
	c.render(Paragraph, msgPick(c.s.Max))
	c.ui.SetRestartEnabled(false)
}

// SubmitGuess reads the guess field, evaluates it and renders the result.
// Invalid input and guesses after the end are rendered as messages and
// also returned as errors (game.ErrInvalidGuess, game.ErrGameFinished).
func (c *Controller) SubmitGuess() (game.Outcome, error) {
	raw := c.ui.ReadGuessInput()
	o, err := c.s.Guess(raw)
	switch {
	case errors.Is(err, game.ErrGameFinished):
		c.render(Paragraph, msgPlayAgain)
		return o, err
	case errors.Is(err, game.ErrInvalidGuess):
		c.render(Paragraph, msgInvalid(c.s.Max))
		c.ui.ClearGuessInput()
		return o, err
	case err != nil:
		return o, err
	}

	switch o {
	case game.Correct:
		c.render(Title, msgWinTitle)
		c.render(Paragraph, fmt.Sprintf(msgWinTemplate, c.s.AttemptsLabel()))
		c.ui.SetRestartEnabled(true)
	case game.TooHigh:
		c.render(Paragraph, msgLower)
		c.ui.ClearGuessInput()
	case game.TooLow:
		c.render(Paragraph, msgHigher)
		c.ui.ClearGuessInput()
	}
	log.Debug().Str("session", c.s.ID).Str("outcome", string(o)).Int("attempts", c.s.Attempts).Msg("guess")
	return o, nil
}

// Restart starts a new round. It only works once the round is finished,
// mirroring the disabled restart control.
func (c *Controller) Restart() error {
	if !c.s.Finished {
		return ErrRestartDisabled
	}
	if err := c.s.Restart(); err != nil {
		return err
	}
	c.ui.ClearGuessInput()
	c.Start()
	log.Debug().Str("session", c.s.ID).Msg("restart")
	return nil
}

func (c *Controller) render(loc Location, text string) {
	c.ui.Render(loc, text)
	if c.spk != nil {
		c.spk.Speak(text, c.voice)
	}
}
