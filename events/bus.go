// Package events fans controller notifications out to the metrics,
// MQTT and other listeners without holding the controller lock while
// they run.
package events

import (
	"github.com/kelindar/event"

	"lautenbacher.net/trafficlight/controller"
)

// Bus wraps kelindar/event dispatcher for event broadcasting. It is a
// controller.Observer.
type Bus struct {
	dispatcher *event.Dispatcher
}

var _ controller.Observer = (*Bus)(nil)

func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers of its type.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case StateChangedEvent:
		event.Publish(b.dispatcher, e)
	case TransitionRejectedEvent:
		event.Publish(b.dispatcher, e)
	case DwellChangedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type of its argument and
// returns the unsubscribe function. Unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e StateChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(StateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TransitionRejectedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DwellChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

func (b *Bus) TransitionAttempted(ev controller.TransitionEvent) {
	if !ev.Accepted {
		b.Publish(TransitionRejectedEvent{From: ev.From, Target: ev.To, At: ev.At})
		return
	}
	b.Publish(StateChangedEvent{
		From:      ev.From,
		To:        ev.To,
		Automatic: ev.Automatic,
		Lamps:     ev.Lamps,
		At:        ev.At,
	})
}

func (b *Bus) DwellChanged(ev controller.DwellEvent) {
	b.Publish(DwellChangedEvent{Phase: ev.Phase, Value: ev.Value, At: ev.At})
}
