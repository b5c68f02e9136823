package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lautenbacher.net/trafficlight/controller"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		require.FailNow(t, "no event received")
	}
	var zero T
	return zero
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan StateChangedEvent, 1)

	unsub := bus.Subscribe(func(e StateChangedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(StateChangedEvent{From: controller.Off, To: controller.Green})

	got := receive(t, received)
	assert.Equal(t, controller.Green, got.To)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan DwellChangedEvent, 1)

	unsub := bus.Subscribe(func(e DwellChangedEvent) {
		received <- e
	})
	bus.Publish(DwellChangedEvent{Phase: controller.PhaseRed})
	receive(t, received)

	unsub()

	bus.Publish(DwellChangedEvent{Phase: controller.PhaseGreen})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	assert.NotNil(t, unsub)
	unsub()
}

type nopLamps struct{}

func (nopLamps) SetLamp(controller.Lamp, bool) {}

func TestBus_AsControllerObserver(t *testing.T) {
	bus := New()
	changed := make(chan StateChangedEvent, 10)
	rejected := make(chan TransitionRejectedEvent, 10)
	dwell := make(chan DwellChangedEvent, 10)
	defer bus.Subscribe(func(e StateChangedEvent) { changed <- e })()
	defer bus.Subscribe(func(e TransitionRejectedEvent) { rejected <- e })()
	defer bus.Subscribe(func(e DwellChangedEvent) { dwell <- e })()

	ctrl, err := controller.New(nopLamps{}, controller.DefaultDwell, controller.WithObserver(bus))
	require.NoError(t, err)

	ctrl.Transition(controller.Off)
	ctrl.Transition(controller.Red)
	ctrl.Transition(controller.Green)
	require.NoError(t, ctrl.SetDwell(controller.PhaseYellow, 1500*time.Millisecond))

	first := receive(t, changed)
	assert.Equal(t, controller.Undefined, first.From)
	assert.Equal(t, controller.Off, first.To)

	second := receive(t, changed)
	assert.Equal(t, controller.Off, second.From)
	assert.Equal(t, controller.Green, second.To)
	assert.Equal(t, controller.LampState{Green: true}, second.Lamps)
	assert.False(t, second.Automatic)

	rej := receive(t, rejected)
	assert.Equal(t, controller.Off, rej.From)
	assert.Equal(t, controller.Red, rej.Target)

	d := receive(t, dwell)
	assert.Equal(t, controller.PhaseYellow, d.Phase)
	assert.Equal(t, 1500*time.Millisecond, d.Value)
}
