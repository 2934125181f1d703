package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/SrMths/jogo-numero-secreto/internal/config"
	"github.com/SrMths/jogo-numero-secreto/internal/game"
	"github.com/SrMths/jogo-numero-secreto/internal/httpserver"
	"github.com/SrMths/jogo-numero-secreto/internal/pool"
	"github.com/SrMths/jogo-numero-secreto/internal/present"
	"github.com/SrMths/jogo-numero-secreto/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := func() pool.Source { return pool.CryptoSource{} }
	if cfg.HasSeed {
		source = pool.SeededSources(cfg.Seed)
	}

	switch cfg.Mode {
	case config.ModeTerminal:
		if err := runTerminal(ctx, cfg, source()); err != nil {
			log.Fatal().Err(err).Msg("terminal game")
		}
	default:
		mem := store.NewMemoryStore()
		srv := httpserver.New(mem, cfg, source)
		go srv.RunJanitor(ctx, cfg.SessionTTL, time.Minute)

		log.Info().Str("port", cfg.Port).Int("max", cfg.Max).Msg("starting server")
		if err := srv.Start(ctx, ":"+cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited")
		}
		log.Info().Msg("server stopped")
	}
}

// runTerminal plays one session on stdin/stdout.
func runTerminal(ctx context.Context, cfg config.Config, src pool.Source) error {
	s, err := game.NewSession(cfg.Max, src)
	if err != nil {
		return err
	}
	term := present.NewTerminal(os.Stdin, os.Stdout)
	err = term.Run(ctx, present.NewController(s, term))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func setupLogger(cfg config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	// The terminal surface owns stdout.
	out := os.Stdout
	if cfg.Mode == config.ModeTerminal {
		out = os.Stderr
	}
	if cfg.LogFormat == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}
