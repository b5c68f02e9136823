package command

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lautenbacher.net/trafficlight/controller"
)

// scriptedLines replays lines and then returns final. If block is set
// it waits for Close instead of returning final.
type scriptedLines struct {
	mu     sync.Mutex
	lines  []string
	final  error
	block  bool
	closed chan struct{}
	once   sync.Once
	out    bytes.Buffer
}

func newScriptedLines(final error, lines ...string) *scriptedLines {
	return &scriptedLines{lines: lines, final: final, closed: make(chan struct{})}
}

func (s *scriptedLines) Readline() (string, error) {
	s.mu.Lock()
	if len(s.lines) > 0 {
		line := s.lines[0]
		s.lines = s.lines[1:]
		s.mu.Unlock()
		return line, nil
	}
	block := s.block
	s.mu.Unlock()
	if block {
		<-s.closed
		return "", io.EOF
	}
	return "", s.final
}

func (s *scriptedLines) Stdout() io.Writer { return &s.out }

func (s *scriptedLines) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func newTestConsole(t *testing.T, src *scriptedLines) (*Console, *controller.Controller) {
	interp, ctrl := newTestInterpreter(t)
	return &Console{interp: interp, rl: src}, ctrl
}

func TestConsole_RunsCommandsUntilEOF(t *testing.T) {
	src := newScriptedLines(io.EOF, "on", "", "get red", "nonsense")
	console, ctrl := newTestConsole(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	console.Run(ctx, cancel)

	assert.Equal(t, controller.Green, ctrl.State())
	assert.Equal(t, "OK\n7000\nERR: unknown command: nonsense (type 'help' for commands)\nExiting...\n", src.out.String())
	assert.Error(t, ctx.Err(), "EOF must cancel the application")
}

func TestConsole_Quit(t *testing.T) {
	src := newScriptedLines(io.EOF, "error", "quit", "off")
	console, ctrl := newTestConsole(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	console.Run(ctx, cancel)

	assert.Equal(t, controller.ErrorOn, ctrl.State(), "lines after quit are not read")
	assert.Error(t, ctx.Err())
}

func TestConsole_Interrupt(t *testing.T) {
	src := newScriptedLines(readline.ErrInterrupt)
	console, _ := newTestConsole(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	console.Run(ctx, cancel)

	assert.Error(t, ctx.Err())
	assert.Equal(t, "Exiting...\n", src.out.String())
}

func TestConsole_StopsOnContextCancel(t *testing.T) {
	src := newScriptedLines(nil)
	src.block = true
	console, _ := newTestConsole(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		console.Run(ctx, cancel)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "console did not stop after cancel")
	}
	assert.Empty(t, src.out.String())
}
