package controller

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	u "lautenbacher.net/trafficlight/util"
)

// CycleTask drives the automatic part of the state machine. It dwells
// on the current state for its configured duration and then requests
// the scheduled follow-up. Every accepted transition wakes it, so a
// command issued mid-dwell is never followed by the rest of the stale
// wait. The task never holds the controller lock while waiting.
type CycleTask struct {
	ctrl    *Controller
	wake    *u.WakeSignal
	running atomic.Bool
	// waits counts started waits; tests use it to see the task settle
	waits atomic.Uint64
}

// Run loops until ctx is done. Only one Run may be active at a time.
func (t *CycleTask) Run(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer t.running.Store(false)

	slog.Info("Starting cycle task")
	for {
		state, dwell, timed := t.ctrl.dwellWait()
		var timeout time.Duration
		if timed {
			timeout = dwell
		}

		t.waits.Add(1)
		switch t.wake.Wait(ctx, timeout) {
		case u.Cancelled:
			slog.Info("Ending cycle task")
			return nil
		case u.Signaled:
			// somebody moved the light, dwell on whatever it is now
			continue
		case u.TimedOut:
			if next, ok := t.ctrl.advance(state); ok {
				slog.Debug("Dwell elapsed", "from", state, "state", next, "dwell", dwell)
			} else {
				slog.Debug("Dwell elapsed on stale state, skipping follow-up", "dwelt", state, "state", next)
			}
		}
	}
}

// IsRunning reports whether Run is active.
func (t *CycleTask) IsRunning() bool {
	return t.running.Load()
}
