// internal/game/engine.go
//
// Game engine for a single secret number session.
// Responsibilities:
//   - Create sessions with a secret drawn from a non-repeating pool.
//   - Parse and evaluate guesses (correct / too high / too low / invalid).
//   - Track state transitions: playing → finished, finished → playing on restart.
//   - Produce the singular/plural attempt phrase for the success message.
//
// Notes:
//   - Rendering is not done here; see the present package.
//   - Invalid input never counts as an attempt.

package game

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SrMths/jogo-numero-secreto/internal/pool"
)

// DefaultMax is the default upper bound of the secret range.
const DefaultMax = 10

// now is swapped in tests.
var now = time.Now

// NewSession constructs a session over [1, max] and draws its first secret.
// A nil src uses crypto/rand.
func NewSession(max int, src pool.Source) (*Session, error) {
	p, err := pool.New(max, src)
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	s := &Session{ID: uuid.NewString(), Max: max, pool: p}
	s.reset(p.Draw())
	return s, nil
}

// NewSessionWithSecret is NewSession with a forced first secret. The secret
// is recorded in the pool so the rest of the cycle still never repeats it.
func NewSessionWithSecret(max, secret int, src pool.Source) (*Session, error) {
	if secret < 1 || secret > max {
		return nil, fmt.Errorf("new session: secret %d outside [1, %d]: %w", secret, max, ErrInvalidGuess)
	}
	p, err := pool.New(max, src)
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	// Draw until the forced secret comes up; a cycle covers every value, so
	// this ends within max draws. Values drawn on the way count as used.
	for p.Draw() != secret {
	}
	s := &Session{ID: uuid.NewString(), Max: max, pool: p}
	s.reset(secret)
	return s, nil
}

// Guess parses raw user input and evaluates it.
// Returns Invalid and ErrInvalidGuess for text that is not a base-10 integer.
func (s *Session) Guess(raw string) (Outcome, error) {
	if s.Finished {
		return Invalid, ErrGameFinished
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return Invalid, fmt.Errorf("%q is not a number: %w", raw, ErrInvalidGuess)
	}
	return s.EvaluateGuess(n)
}

// EvaluateGuess compares guess with the secret and mutates the state.
//
// State transitions:
//   - guess == secret → Correct, Finished = true, attempts unchanged.
//   - guess > secret  → TooHigh, attempts + 1.
//   - guess < secret  → TooLow, attempts + 1.
//   - guess outside [1, Max] → Invalid, nothing changes.
func (s *Session) EvaluateGuess(guess int) (Outcome, error) {
	if s.Finished {
		return Invalid, ErrGameFinished
	}
	if guess < 1 || guess > s.Max {
		return Invalid, fmt.Errorf("%d outside [1, %d]: %w", guess, s.Max, ErrInvalidGuess)
	}

	s.Guesses = append(s.Guesses, guess)
	switch {
	case guess == s.secret:
		s.Finished = true
		return Correct, nil
	case guess > s.secret:
		s.Attempts++
		return TooHigh, nil
	default:
		s.Attempts++
		return TooLow, nil
	}
}

// Restart draws a new secret and returns the session to playing.
// The new secret may equal the previous one across a pool cycle boundary.
func (s *Session) Restart() error {
	if s.pool == nil {
		return fmt.Errorf("restart %s: session has no pool", s.ID)
	}
	s.reset(s.pool.Draw())
	return nil
}

// AttemptsLabel returns the attempt count with the right noun form:
// "1 tentativa" for a single attempt, "<n> tentativas" otherwise.
func (s *Session) AttemptsLabel() string {
	word := "tentativa"
	if s.Attempts > 1 {
		word = "tentativas"
	}
	return fmt.Sprintf("%d %s", s.Attempts, word)
}

// State reports "playing" or "finished".
func (s *Session) State() string {
	if s.Finished {
		return StateFinished
	}
	return StatePlaying
}

// Snapshot copies the visible state.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:       s.ID,
		Max:      s.Max,
		Attempts: s.Attempts,
		State:    s.State(),
		Guesses:  append([]int{}, s.Guesses...),
	}
	if s.Finished {
		snap.Secret = s.secret
	}
	return snap
}

func (s *Session) reset(secret int) {
	s.secret = secret
	s.Attempts = 1
	s.Finished = false
	s.Guesses = s.Guesses[:0]
	s.StartedAt = now()
	s.LastSeen = s.StartedAt
}
