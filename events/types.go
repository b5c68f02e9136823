package events

import (
	"time"

	"lautenbacher.net/trafficlight/controller"
)

// Event type constants for kelindar/event.
const (
	TypeStateChanged uint32 = iota + 1
	TypeTransitionRejected
	TypeDwellChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StateChangedEvent is published for every accepted transition.
type StateChangedEvent struct {
	From      controller.State     `json:"from"`
	To        controller.State     `json:"state"`
	Automatic bool                 `json:"automatic"`
	Lamps     controller.LampState `json:"lamps"`
	At        time.Time            `json:"at"`
}

func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }

// TransitionRejectedEvent is published when a requested target was illegal.
type TransitionRejectedEvent struct {
	From   controller.State `json:"from"`
	Target controller.State `json:"target"`
	At     time.Time        `json:"at"`
}

func (e TransitionRejectedEvent) Type() uint32 { return TypeTransitionRejected }

// DwellChangedEvent is published when one dwell phase got a new value.
type DwellChangedEvent struct {
	Phase controller.Phase `json:"phase"`
	Value time.Duration    `json:"value"`
	At    time.Time        `json:"at"`
}

func (e DwellChangedEvent) Type() uint32 { return TypeDwellChanged }
