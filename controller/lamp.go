package controller

// Lamp identifies one of the three physical outputs of the fixture.
type Lamp int

const (
	GreenLamp Lamp = iota
	YellowLamp
	RedLamp
)

// Lamps lists all outputs from top to bottom of the fixture.
var Lamps = []Lamp{RedLamp, YellowLamp, GreenLamp}

func (l Lamp) String() string {
	switch l {
	case GreenLamp:
		return "GREEN"
	case YellowLamp:
		return "YELLOW"
	case RedLamp:
		return "RED"
	}
	return "UNKNOWN"
}

// LampDriver switches a single lamp output. Implementations are called
// while the controller lock is held and must not call back into the
// controller.
type LampDriver interface {
	SetLamp(lamp Lamp, on bool)
}

// LampState is a snapshot of all three outputs.
type LampState struct {
	Green  bool `json:"Green"`
	Yellow bool `json:"Yellow"`
	Red    bool `json:"Red"`
}

// Set returns a copy of s with lamp switched to on.
func (s LampState) Set(lamp Lamp, on bool) LampState {
	switch lamp {
	case GreenLamp:
		s.Green = on
	case YellowLamp:
		s.Yellow = on
	case RedLamp:
		s.Red = on
	}
	return s
}

// IsOn reports whether lamp is lit in s.
func (s LampState) IsOn(lamp Lamp) bool {
	switch lamp {
	case GreenLamp:
		return s.Green
	case YellowLamp:
		return s.Yellow
	case RedLamp:
		return s.Red
	}
	return false
}

func (s LampState) String() string {
	ret := ""
	for _, l := range Lamps {
		if s.IsOn(l) {
			if ret != "" {
				ret += "+"
			}
			ret += l.String()
		}
	}
	if ret == "" {
		return "dark"
	}
	return ret
}
