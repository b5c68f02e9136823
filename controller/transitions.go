package controller

// lampAction is one output change of an entry or exit action.
type lampAction struct {
	lamp Lamp
	on   bool
}

// exitActions are run when a state is left, provided the rule of the
// target names that state in exitFrom.
var exitActions = map[State][]lampAction{
	Green:   {{GreenLamp, false}},
	Yellow:  {{YellowLamp, false}},
	Red:     {{RedLamp, false}},
	ErrorOn: {{YellowLamp, false}},
}

// transitionRule describes how a target state may be entered.
type transitionRule struct {
	// fromAny accepts the target from every current state, itself included.
	fromAny   bool
	legalFrom map[State]bool
	// exitFrom names the prior states whose exit action runs first.
	exitFrom map[State]bool
	entry    []lampAction
}

func stateSet(states ...State) map[State]bool {
	ret := make(map[State]bool, len(states))
	for _, s := range states {
		ret[s] = true
	}
	return ret
}

var allDark = []lampAction{
	{GreenLamp, false},
	{YellowLamp, false},
	{RedLamp, false},
}

var transitionTable = map[State]transitionRule{
	Off: {
		fromAny: true,
		entry:   allDark,
	},
	Green: {
		legalFrom: stateSet(Red, ErrorOn, Off),
		exitFrom:  stateSet(Red, ErrorOn),
		entry:     []lampAction{{GreenLamp, true}},
	},
	Yellow: {
		legalFrom: stateSet(Green),
		exitFrom:  stateSet(Green),
		entry:     []lampAction{{YellowLamp, true}},
	},
	Red: {
		legalFrom: stateSet(Yellow),
		exitFrom:  stateSet(Yellow),
		entry:     []lampAction{{RedLamp, true}},
	},
	ErrorOn: {
		fromAny:  true,
		exitFrom: stateSet(Green, Yellow, Red),
		entry:    []lampAction{{YellowLamp, true}},
	},
	ErrorOff: {
		legalFrom: stateSet(ErrorOn),
		exitFrom:  stateSet(ErrorOn),
	},
}

// IsLegal reports whether a transition from current to target would be
// accepted.
func IsLegal(current, target State) bool {
	rule, ok := transitionTable[target]
	if !ok {
		return false
	}
	return rule.fromAny || rule.legalFrom[current]
}

// actionsFor returns the lamp changes of a legal transition in the order
// they have to be applied: exit of the prior state, then entry.
func actionsFor(current, target State) []lampAction {
	rule := transitionTable[target]
	var ret []lampAction
	if rule.exitFrom[current] {
		ret = append(ret, exitActions[current]...)
	}
	return append(ret, rule.entry...)
}
