// internal/config/config.go
//
// Runtime configuration read from the environment.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win over the file.

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	ModeHTTP     = "http"
	ModeTerminal = "terminal"
)

// ErrInvalid wraps every validation failure of Load.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full set of runtime settings.
type Config struct {
	Mode string // ModeHTTP | ModeTerminal
	Port string

	Max     int     // upper bound N of the secret range
	Seed    uint64  // used when HasSeed
	HasSeed bool    // SECRET_SEED was set
	Voice   string  // speech voice name passed to the page
	Rate    float64 // speech rate

	SessionSecret string
	SessionTTL    time.Duration
	CookieName    string
	ClientOrigin  string
	GuessRate     float64 // guesses per second per session

	LogLevel  string
	LogFormat string // json | console
}

// Load reads .env (if any) and the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	c := Config{
		Mode:          getEnv("MODE", ModeHTTP),
		Port:          getEnv("PORT", "5175"),
		Voice:         getEnv("SPEECH_VOICE", "Brazilian Portuguese Female"),
		SessionSecret: getEnv("SESSION_SECRET", "dev_secret_change_me"),
		CookieName:    getEnv("COOKIE_NAME", "secret_number_sid"),
		ClientOrigin:  getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
	}

	var err error
	if c.Max, err = strconv.Atoi(getEnv("SECRET_MAX", "10")); err != nil {
		return c, fmt.Errorf("%w: SECRET_MAX: %v", ErrInvalid, err)
	}
	if c.Max < 1 {
		return c, fmt.Errorf("%w: SECRET_MAX must be >= 1, got %d", ErrInvalid, c.Max)
	}
	if v := os.Getenv("SECRET_SEED"); v != "" {
		if c.Seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			return c, fmt.Errorf("%w: SECRET_SEED: %v", ErrInvalid, err)
		}
		c.HasSeed = true
	}
	if c.Rate, err = strconv.ParseFloat(getEnv("SPEECH_RATE", "1.2"), 64); err != nil {
		return c, fmt.Errorf("%w: SPEECH_RATE: %v", ErrInvalid, err)
	}
	if c.SessionTTL, err = time.ParseDuration(getEnv("SESSION_TTL", "30m")); err != nil {
		return c, fmt.Errorf("%w: SESSION_TTL: %v", ErrInvalid, err)
	}
	if c.SessionTTL <= 0 {
		return c, fmt.Errorf("%w: SESSION_TTL must be positive, got %s", ErrInvalid, c.SessionTTL)
	}
	if c.GuessRate, err = strconv.ParseFloat(getEnv("GUESS_RATE", "5"), 64); err != nil || c.GuessRate <= 0 {
		return c, fmt.Errorf("%w: GUESS_RATE must be a positive number", ErrInvalid)
	}
	if c.Mode != ModeHTTP && c.Mode != ModeTerminal {
		return c, fmt.Errorf("%w: MODE must be %q or %q, got %q", ErrInvalid, ModeHTTP, ModeTerminal, c.Mode)
	}
	return c, nil
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
