package controller

import "errors"

var (
	ErrInvalidDwell = errors.New("invalid dwell duration")
	ErrUnknownPhase = errors.New("unknown dwell phase")
	ErrUnknownState = errors.New("unknown state")
	ErrNoLamps      = errors.New("no lamp driver")
)

// ErrAlreadyRunning is returned when a second Run of the cycle task is attempted.
var ErrAlreadyRunning = errors.New("cycle task already running")
