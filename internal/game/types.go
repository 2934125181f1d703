// internal/game/types.go
//
// Core type definitions for the secret number game.
// Defines:
//   - Outcome: result of evaluating one guess.
//   - Session: state of one game session (secret, attempts, finished) plus
//     the draw pool that supplies its secrets.
//   - Snapshot: a copy of the visible session state, safe to encode.

package game

import (
	"errors"
	"time"

	"github.com/SrMths/jogo-numero-secreto/internal/pool"
)

// Outcome represents the evaluation result of a single guess.
type Outcome string

const (
	Correct Outcome = "correct"
	TooHigh Outcome = "too_high"
	TooLow  Outcome = "too_low"
	Invalid Outcome = "invalid"
)

const (
	StatePlaying  = "playing"
	StateFinished = "finished"
)

var (
	// ErrInvalidGuess is returned for non-numeric or out-of-range guesses.
	// No attempt is counted for them.
	ErrInvalidGuess = errors.New("invalid guess")

	// ErrGameFinished is returned when guessing after the secret was found.
	ErrGameFinished = errors.New("game finished")
)

// Session holds the state of a single game. A Session is not safe for
// concurrent use; callers serialize access (see store.Store.Update).
type Session struct {
	ID        string    // Unique session identifier (UUID).
	Max       int       // Upper bound N of the secret range [1, N].
	Attempts  int       // Starts at 1, +1 per incorrect guess.
	Finished  bool      // True once the secret was guessed.
	Guesses   []int     // Accepted guesses of the current round.
	StartedAt time.Time // Start of the current round.
	LastSeen  time.Time // Last time the session was touched.

	secret int
	pool   *pool.Pool
}

// Snapshot is the externally visible state of a Session. The secret is
// only revealed once the round is finished.
type Snapshot struct {
	ID       string `json:"id"`
	Max      int    `json:"max"`
	Attempts int    `json:"attempts"`
	State    string `json:"state"`
	Guesses  []int  `json:"guesses"`
	Secret   int    `json:"secret,omitempty"`
}
