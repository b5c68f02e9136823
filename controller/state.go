package controller

import (
	"fmt"
	"strings"
)

// State is one of the traffic light's states. The zero value Undefined
// is held until the startup sequence performs the first transition to
// Off.
type State int

const (
	Undefined State = iota
	Off
	Green
	Yellow
	Red
	ErrorOn
	ErrorOff
)

// States lists every state a transition can target, in declaration order.
var States = []State{Off, Green, Yellow, Red, ErrorOn, ErrorOff}

var stateNames = map[State]string{
	Undefined: "Undefined",
	Off:       "Off",
	Green:     "Green",
	Yellow:    "Yellow",
	Red:       "Red",
	ErrorOn:   "ErrorOn",
	ErrorOff:  "ErrorOff",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState maps a case insensitive name back to its State.
func ParseState(name string) (State, error) {
	for _, s := range States {
		if strings.EqualFold(stateNames[s], name) {
			return s, nil
		}
	}
	return Undefined, fmt.Errorf("%w: %q", ErrUnknownState, name)
}

// MarshalText implements encoding.TextMarshaler so states read well in
// JSON and YAML.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// followUp is the transition the cycle task requests once the dwell of
// a state has elapsed.
var followUp = map[State]State{
	Green:    Yellow,
	Yellow:   Red,
	Red:      Green,
	ErrorOn:  ErrorOff,
	ErrorOff: ErrorOn,
}

// FollowUp returns the scheduled successor of s. Off and Undefined have
// none and stay until someone else moves the light.
func (s State) FollowUp() (State, bool) {
	next, ok := followUp[s]
	return next, ok
}
