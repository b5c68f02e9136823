package util

import (
	"context"
	"time"
)

// WaitResult tells why WakeSignal.Wait returned.
type WaitResult int

const (
	Signaled WaitResult = iota
	TimedOut
	Cancelled
)

func (r WaitResult) String() string {
	switch r {
	case Signaled:
		return "signaled"
	case TimedOut:
		return "timed-out"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// WakeSignal is a single slot notification. A Notify while nobody is
// waiting is kept until the next Wait, further Notify calls while one
// is pending are coalesced into it.
type WakeSignal struct {
	notify chan struct{} // Buffered channel of size 1
}

// NewWakeSignal creates a new WakeSignal with no pending notification.
func NewWakeSignal() *WakeSignal {
	return &WakeSignal{
		notify: make(chan struct{}, 1),
	}
}

// Notify marks the signal as pending. It never blocks.
func (w *WakeSignal) Notify() {
	select {
	case w.notify <- struct{}{}:
	default:
		// already pending
	}
}

// Channel returns the notification channel for use in select statements.
func (w *WakeSignal) Channel() <-chan struct{} {
	return w.notify
}

// HasPending checks if a notification is waiting to be consumed.
// This is a non-destructive check.
func (w *WakeSignal) HasPending() bool {
	return len(w.notify) > 0
}

// Wait blocks until the signal is notified, the timeout elapses or ctx
// is done. A timeout <= 0 waits without deadline. If the notification
// and the deadline race, the notification wins.
func (w *WakeSignal) Wait(ctx context.Context, timeout time.Duration) WaitResult {
	if timeout <= 0 {
		select {
		case <-w.notify:
			return Signaled
		case <-ctx.Done():
			return Cancelled
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.notify:
		return Signaled
	case <-ctx.Done():
		return Cancelled
	case <-timer.C:
		select {
		case <-w.notify:
			return Signaled
		default:
			return TimedOut
		}
	}
}
