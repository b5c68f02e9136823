package controller

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Phase keys the dwell table. Blinking covers both ErrorOn and ErrorOff.
type Phase int

const (
	PhaseGreen Phase = iota
	PhaseYellow
	PhaseRed
	PhaseBlinking
)

// Phases lists the configurable dwell phases.
var Phases = []Phase{PhaseGreen, PhaseYellow, PhaseRed, PhaseBlinking}

func (p Phase) String() string {
	switch p {
	case PhaseGreen:
		return "Green"
	case PhaseYellow:
		return "Yellow"
	case PhaseRed:
		return "Red"
	case PhaseBlinking:
		return "Blinking"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// ParsePhase accepts the phase names case insensitively, "blink" is an
// alias for Blinking.
func ParsePhase(name string) (Phase, error) {
	switch strings.ToLower(name) {
	case "green":
		return PhaseGreen, nil
	case "yellow":
		return PhaseYellow, nil
	case "red":
		return PhaseRed, nil
	case "blinking", "blink":
		return PhaseBlinking, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPhase, name)
}

// DwellTable holds how long each phase stays active before the cycle
// task requests the follow-up transition.
type DwellTable struct {
	Green    time.Duration `yaml:"Green"`
	Yellow   time.Duration `yaml:"Yellow"`
	Red      time.Duration `yaml:"Red"`
	Blinking time.Duration `yaml:"Blinking"`
}

// DefaultDwell is the factory cycle: 5s green, 2s yellow, 7s red and a
// one second blink period.
var DefaultDwell = DwellTable{
	Green:    5000 * time.Millisecond,
	Yellow:   2000 * time.Millisecond,
	Red:      7000 * time.Millisecond,
	Blinking: 1000 * time.Millisecond,
}

// MaxDwellMillis is the longest dwell in milliseconds a time.Duration holds.
const MaxDwellMillis = math.MaxInt64 / int64(time.Millisecond)

// DwellFromMillis converts an operator given millisecond value. Values
// that are not positive or do not fit a time.Duration are rejected.
func DwellFromMillis(ms int64) (time.Duration, error) {
	if ms <= 0 {
		return 0, fmt.Errorf("%w: %d ms must be positive", ErrInvalidDwell, ms)
	}
	if ms > MaxDwellMillis {
		return 0, fmt.Errorf("%w: %d ms exceeds the maximum of %d ms", ErrInvalidDwell, ms, MaxDwellMillis)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// Get returns the duration configured for p.
func (d DwellTable) Get(p Phase) (time.Duration, error) {
	switch p {
	case PhaseGreen:
		return d.Green, nil
	case PhaseYellow:
		return d.Yellow, nil
	case PhaseRed:
		return d.Red, nil
	case PhaseBlinking:
		return d.Blinking, nil
	}
	return 0, fmt.Errorf("%w: %v", ErrUnknownPhase, p)
}

// With returns a copy of d with p set to value.
func (d DwellTable) With(p Phase, value time.Duration) (DwellTable, error) {
	if value <= 0 {
		return d, fmt.Errorf("%w: %v must be positive, got %v", ErrInvalidDwell, p, value)
	}
	switch p {
	case PhaseGreen:
		d.Green = value
	case PhaseYellow:
		d.Yellow = value
	case PhaseRed:
		d.Red = value
	case PhaseBlinking:
		d.Blinking = value
	default:
		return d, fmt.Errorf("%w: %v", ErrUnknownPhase, p)
	}
	return d, nil
}

// Validate checks that every phase has a strictly positive duration.
func (d DwellTable) Validate() error {
	for _, p := range Phases {
		v, _ := d.Get(p)
		if v <= 0 {
			return fmt.Errorf("%w: %v must be positive, got %v", ErrInvalidDwell, p, v)
		}
	}
	return nil
}

// forState returns the dwell of s. The second result is false for
// states without a timed follow-up, which wait for a signal only.
func (d DwellTable) forState(s State) (time.Duration, bool) {
	switch s {
	case Green:
		return d.Green, true
	case Yellow:
		return d.Yellow, true
	case Red:
		return d.Red, true
	case ErrorOn, ErrorOff:
		return d.Blinking, true
	}
	return 0, false
}
