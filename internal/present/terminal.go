package present

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/SrMths/jogo-numero-secreto/internal/game"
)

// Terminal is a line based Adapter: every input line is either a guess or
// a command (novo / sair).
type Terminal struct {
	in      *bufio.Scanner
	out     io.Writer
	input   string
	restart bool
}

// NewTerminal reads commands from in and writes the surface to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewScanner(in), out: out}
}

func (t *Terminal) Render(loc Location, text string) {
	if loc == Title {
		fmt.Fprintf(t.out, "== %s ==\n", text)
		return
	}
	fmt.Fprintln(t.out, text)
}

func (t *Terminal) ReadGuessInput() string { return t.input }

func (t *Terminal) ClearGuessInput() { t.input = "" }

func (t *Terminal) SetRestartEnabled(enabled bool) {
	if enabled && !t.restart {
		fmt.Fprintln(t.out, "(digite 'novo' para jogar de novo ou 'sair' para terminar)")
	}
	t.restart = enabled
}

// Run plays until the input ends, the user quits or ctx is cancelled.
// Lines are read on a separate goroutine so cancellation does not wait for
// the next line.
func (t *Terminal) Run(ctx context.Context, c *Controller) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.Start()
	if err := ctx.Err(); err != nil {
		return err
	}

	lines := make(chan string)
	var scanErr error
	go func() {
		defer close(lines)
		for t.in.Scan() {
			select {
			case lines <- t.in.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr = t.in.Err()
	}()

	for {
		fmt.Fprint(t.out, "> ")
		var raw string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				return scanErr
			}
			raw = l
		}

		line := strings.TrimSpace(raw)
		switch strings.ToLower(line) {
		case "":
			continue
		case "sair", "quit", "exit":
			return nil
		case "novo", "restart", "reiniciar":
			if err := c.Restart(); errors.Is(err, ErrRestartDisabled) {
				fmt.Fprintln(t.out, "(acerte o número antes de começar um novo jogo)")
			} else if err != nil {
				return err
			}
			continue
		}

		t.input = line
		_, err := c.SubmitGuess()
		if err != nil && !errors.Is(err, game.ErrInvalidGuess) && !errors.Is(err, game.ErrGameFinished) {
			return err
		}
	}
}
