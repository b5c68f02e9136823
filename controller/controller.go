package controller

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gammazero/deque"
	u "lautenbacher.net/trafficlight/util"
)

const DefaultHistorySize = 64

// TransitionEvent describes one transition request, accepted or not.
type TransitionEvent struct {
	From      State
	To        State
	Accepted  bool
	Automatic bool
	Lamps     LampState
	At        time.Time
}

// DwellEvent describes a change of one dwell phase.
type DwellEvent struct {
	Phase Phase
	Value time.Duration
	At    time.Time
}

// Observer is told about every transition attempt and dwell change in
// commit order. It is called with the controller lock held, so it must
// return quickly and must not call back into the controller.
type Observer interface {
	TransitionAttempted(ev TransitionEvent)
	DwellChanged(ev DwellEvent)
}

// Status is a consistent snapshot of the controller.
type Status struct {
	State State
	Lamps LampState
	Dwell DwellTable
}

// Controller owns the state of the traffic light, its dwell table and
// the lamp outputs. All of them are guarded by one mutex; transitions
// are therefore totally ordered.
type Controller struct {
	mu          sync.Mutex
	state       State
	dwell       DwellTable
	lamps       LampDriver
	lampState   LampState
	wake        *u.WakeSignal
	observers   []Observer
	history     deque.Deque[TransitionEvent]
	historySize int
	now         func() time.Time

	cycleOnce sync.Once
	cycle     *CycleTask
}

type Option func(*Controller)

// WithObserver registers an observer. May be given more than once.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithHistorySize bounds the number of accepted transitions kept for
// History. Values < 1 fall back to DefaultHistorySize.
func WithHistorySize(n int) Option {
	return func(c *Controller) {
		if n < 1 {
			n = DefaultHistorySize
		}
		c.historySize = n
	}
}

// New creates a controller in the Undefined state. The startup sequence
// is expected to call Transition(Off) before anything else.
func New(lamps LampDriver, dwell DwellTable, opts ...Option) (*Controller, error) {
	if lamps == nil {
		return nil, ErrNoLamps
	}
	if err := dwell.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		dwell:       dwell,
		lamps:       lamps,
		wake:        u.NewWakeSignal(),
		historySize: DefaultHistorySize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Transition requests target. It returns false and changes nothing if
// target is not legal from the current state.
func (c *Controller) Transition(target State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyLocked(target, false)
}

// TransitionWhen requests targets one after another under one lock,
// provided allow accepts the state found first. A nil allow accepts
// every state. It stops at the first illegal target and returns the
// state found before the first request and whether all targets were
// accepted.
func (c *Controller) TransitionWhen(allow func(State) bool, targets ...State) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.state
	if allow != nil && !allow(before) {
		return before, false
	}
	for _, target := range targets {
		if !c.applyLocked(target, false) {
			return before, false
		}
	}
	return before, true
}

// advance performs the scheduled follow-up of expected, but only if the
// light is still in expected. It reports the new state and whether the
// follow-up was applied.
func (c *Controller) advance(expected State) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != expected {
		return c.state, false
	}
	next, ok := expected.FollowUp()
	if !ok {
		return c.state, false
	}
	if !c.applyLocked(next, true) {
		return c.state, false
	}
	return next, true
}

// applyLocked must be called with c.mu held.
func (c *Controller) applyLocked(target State, automatic bool) bool {
	ev := TransitionEvent{
		From:      c.state,
		To:        target,
		Automatic: automatic,
		At:        c.now(),
	}

	if !IsLegal(c.state, target) {
		ev.Lamps = c.lampState
		slog.Debug("Rejected transition", "from", ev.From, "target", target)
		c.notifyTransition(ev)
		return false
	}

	for _, a := range actionsFor(c.state, target) {
		c.lamps.SetLamp(a.lamp, a.on)
		c.lampState = c.lampState.Set(a.lamp, a.on)
	}
	c.state = target

	ev.Accepted = true
	ev.Lamps = c.lampState
	c.history.PushBack(ev)
	for c.history.Len() > c.historySize {
		c.history.PopFront()
	}

	if target != Off {
		c.wake.Notify()
	}

	slog.Debug("Transition", "from", ev.From, "state", target, "lamps", c.lampState, "automatic", automatic)
	c.notifyTransition(ev)
	return true
}

func (c *Controller) notifyTransition(ev TransitionEvent) {
	for _, o := range c.observers {
		o.TransitionAttempted(ev)
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Lamps returns the lamp outputs as last driven by the controller.
func (c *Controller) Lamps() LampState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lampState
}

// Status returns state, lamps and dwell table taken under one lock.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		State: c.state,
		Lamps: c.lampState,
		Dwell: c.dwell,
	}
}

// Dwell returns a copy of the dwell table.
func (c *Controller) Dwell() DwellTable {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dwell
}

// DwellFor returns the dwell configured for p.
func (c *Controller) DwellFor(p Phase) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dwell.Get(p)
}

// SetDwell changes one phase. The cycle task picks the new value up
// the next time it starts waiting on that phase; a wait already in
// progress keeps its deadline.
func (c *Controller) SetDwell(p Phase, value time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dwell, err := c.dwell.With(p, value)
	if err != nil {
		return err
	}
	c.replaceDwellLocked(dwell)
	return nil
}

// SetDwellTable replaces all phases at once, e.g. after a config reload.
func (c *Controller) SetDwellTable(dwell DwellTable) error {
	if err := dwell.Validate(); err != nil {
		return fmt.Errorf("rejecting dwell table: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceDwellLocked(dwell)
	return nil
}

// SetDwells changes several phases at once. If one value is invalid
// nothing is changed.
func (c *Controller) SetDwells(values map[Phase]time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dwell := c.dwell
	for p, v := range values {
		var err error
		if dwell, err = dwell.With(p, v); err != nil {
			return err
		}
	}
	c.replaceDwellLocked(dwell)
	return nil
}

// replaceDwellLocked installs dwell and reports every phase that
// changed, in Phases order.
func (c *Controller) replaceDwellLocked(dwell DwellTable) {
	old := c.dwell
	c.dwell = dwell

	now := c.now()
	for _, p := range Phases {
		oldV, _ := old.Get(p)
		newV, _ := dwell.Get(p)
		if oldV == newV {
			continue
		}
		slog.Info("Dwell changed", "phase", p, "value", newV)
		ev := DwellEvent{Phase: p, Value: newV, At: now}
		for _, o := range c.observers {
			o.DwellChanged(ev)
		}
	}
}

// History returns the most recent accepted transitions, oldest first.
func (c *Controller) History() []TransitionEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	ret := make([]TransitionEvent, c.history.Len())
	for i := range ret {
		ret[i] = c.history.At(i)
	}
	return ret
}

// dwellWait returns the state the cycle task is about to dwell on and
// its deadline. timed is false for Off and Undefined.
func (c *Controller) dwellWait() (state State, dwell time.Duration, timed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dwell, timed = c.dwell.forState(c.state)
	return c.state, dwell, timed
}

// CycleTask returns the one cycle task bound to this controller.
func (c *Controller) CycleTask() *CycleTask {
	c.cycleOnce.Do(func() {
		c.cycle = &CycleTask{
			ctrl: c,
			wake: c.wake,
		}
	})
	return c.cycle
}
