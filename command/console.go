package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// lineSource is the part of readline.Instance the console uses.
type lineSource interface {
	Readline() (string, error)
	Stdout() io.Writer
	Close() error
}

// Console reads command lines from the terminal when no TUI is shown.
type Console struct {
	interp *Interpreter
	rl     lineSource
}

func NewConsole(interp *Interpreter) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "traffic> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{interp: interp, rl: rl}, nil
}

// Stdout returns a writer that does not garble the prompt. Use it as
// log output while the console runs.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run reads lines until ctx is done, EOF, Ctrl-C or "quit". The last
// three call cancel.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	stop := context.AfterFunc(ctx, func() { c.rl.Close() })
	defer stop()
	defer c.rl.Close()

	out := c.rl.Stdout()
	for {
		line, err := c.rl.Readline()
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if !errors.Is(err, readline.ErrInterrupt) && !errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "Error reading input:", err)
			}
			fmt.Fprintln(out, "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		switch strings.ToLower(input) {
		case "":
			continue
		case "quit", "exit", "q":
			fmt.Fprintln(out, "Exiting...")
			cancel()
			return
		}
		fmt.Fprintln(out, c.interp.Reply(input))
	}
}
