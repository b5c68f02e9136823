// Package command turns text lines into controller operations. The same
// interpreter serves the console, the TUI input field and MQTT.
package command

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/maps"

	"lautenbacher.net/trafficlight/controller"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArgument    = errors.New("bad argument")
)

const (
	replyOK   = "OK"
	replyFail = "FAIL"
)

// legacyTimerPrefix is the old firmware's "set blink period" command.
const legacyTimerPrefix = "T:"

type command struct {
	usage string
	run   func(args []string) (string, error)
}

// Interpreter executes command lines against one controller.
type Interpreter struct {
	ctrl     *controller.Controller
	commands map[string]command
	aliases  map[string]string
}

func NewInterpreter(ctrl *controller.Controller) *Interpreter {
	i := &Interpreter{ctrl: ctrl}
	i.commands = map[string]command{
		"turn_on":  {"turn_on            - start the cycle with green", i.transitionTo(controller.Green)},
		"turn_off": {"turn_off           - switch all lamps off", i.transitionTo(controller.Off)},
		"error":    {"error              - blink yellow", i.transitionTo(controller.ErrorOn)},
		"status":   {"status             - show state, lamps and dwell times", i.cmdStatus},
		"get":      {"get <phase>        - show dwell of green|yellow|red|blinking in ms", i.cmdGet},
		"set":      {"set <phase> <ms>   - change dwell of a phase", i.cmdSet},
		"history":  {"history            - show recent transitions", i.cmdHistory},
		"help":     {"help               - this list", i.cmdHelp},
	}
	i.aliases = map[string]string{
		"on":  "turn_on",
		"off": "turn_off",
		"?":   "help",
	}
	return i
}

// Execute runs one command line and returns its reply.
func (i *Interpreter) Execute(line string) (string, error) {
	line = strings.TrimSpace(line)
	if len(line) >= len(legacyTimerPrefix) && strings.EqualFold(line[:len(legacyTimerPrefix)], legacyTimerPrefix) {
		return i.cmdLegacyTimer(line[len(legacyTimerPrefix):])
	}

	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: empty line", ErrUnknownCommand)
	}
	name := strings.ToLower(parts[0])
	if target, ok := i.aliases[name]; ok {
		name = target
	}
	cmd, ok := i.commands[name]
	if !ok {
		return "", fmt.Errorf("%w: %s (type 'help' for commands)", ErrUnknownCommand, parts[0])
	}
	return cmd.run(parts[1:])
}

// Reply is Execute with errors folded into the reply text.
func (i *Interpreter) Reply(line string) string {
	reply, err := i.Execute(line)
	if err != nil {
		return "ERR: " + err.Error()
	}
	return reply
}

func (i *Interpreter) transitionTo(target controller.State) func([]string) (string, error) {
	return func([]string) (string, error) {
		if i.ctrl.Transition(target) {
			return replyOK, nil
		}
		return replyFail, nil
	}
}

func (i *Interpreter) cmdStatus([]string) (string, error) {
	return FormatStatus(i.ctrl.Status()), nil
}

// FormatStatus renders a status snapshot on one line.
func FormatStatus(st controller.Status) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "state=%s lamps=%s", st.State, st.Lamps)
	for _, p := range controller.Phases {
		d, _ := st.Dwell.Get(p)
		fmt.Fprintf(&buf, " %s=%dms", strings.ToLower(p.String()), d.Milliseconds())
	}
	return buf.String()
}

func (i *Interpreter) cmdGet(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: usage: get <phase>", ErrBadArgument)
	}
	phase, err := controller.ParsePhase(args[0])
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadArgument, err)
	}
	d, err := i.ctrl.DwellFor(phase)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(d.Milliseconds(), 10), nil
}

func (i *Interpreter) cmdSet(args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("%w: usage: set <phase> <ms>", ErrBadArgument)
	}
	phase, err := controller.ParsePhase(args[0])
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadArgument, err)
	}
	d, err := parseMillis(args[1])
	if err != nil {
		return "", err
	}
	if err := i.ctrl.SetDwell(phase, d); err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadArgument, err)
	}
	return replyOK, nil
}

// cmdLegacyTimer answers "T:<ms>" with "U:<ms>" after setting the blink period.
func (i *Interpreter) cmdLegacyTimer(arg string) (string, error) {
	d, err := parseMillis(strings.TrimSpace(arg))
	if err != nil {
		return "", err
	}
	if err := i.ctrl.SetDwell(controller.PhaseBlinking, d); err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadArgument, err)
	}
	return fmt.Sprintf("U:%d", d.Milliseconds()), nil
}

func (i *Interpreter) cmdHistory([]string) (string, error) {
	history := i.ctrl.History()
	if len(history) == 0 {
		return "no transitions yet", nil
	}
	lines := make([]string, 0, len(history))
	for _, ev := range history {
		how := "requested"
		if ev.Automatic {
			how = "auto"
		}
		lines = append(lines, fmt.Sprintf("%s %s -> %s (%s) lamps=%s",
			ev.At.Format("15:04:05.000"), ev.From, ev.To, how, ev.Lamps))
	}
	return strings.Join(lines, "\n"), nil
}

func (i *Interpreter) cmdHelp([]string) (string, error) {
	lines := make([]string, 0, len(i.commands)+1)
	names := maps.Keys(i.commands)
	slices.Sort(names)
	for _, name := range names {
		lines = append(lines, "  "+i.commands[name].usage)
	}
	lines = append(lines, "  T:<ms>             - legacy form of 'set blinking <ms>', answers U:<ms>")
	return "Commands:\n" + strings.Join(lines, "\n"), nil
}

func parseMillis(s string) (time.Duration, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number of milliseconds", ErrBadArgument, s)
	}
	d, err := controller.DwellFromMillis(ms)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBadArgument, err)
	}
	return d, nil
}
