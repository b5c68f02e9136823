package util

import "sync"

// AtomicEvent keeps the latest value of T. Every change notifies the
// embedded WakeSignal, so a reader that falls behind sees one
// notification and then the newest value, never a backlog.
type AtomicEvent[T any] struct {
	mu    sync.Mutex
	value T
	*WakeSignal
}

func NewAtomicEvent[T any]() *AtomicEvent[T] {
	return &AtomicEvent[T]{
		WakeSignal: NewWakeSignal(),
	}
}

// Send replaces the value. It never blocks.
func (ae *AtomicEvent[T]) Send(value T) {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	ae.value = value
	ae.Notify()
}

// Update replaces the value with change(current) in one step and
// returns the result.
func (ae *AtomicEvent[T]) Update(change func(T) T) T {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	ae.value = change(ae.value)
	ae.Notify()
	return ae.value
}

func (ae *AtomicEvent[T]) Value() T {
	ae.mu.Lock()
	defer ae.mu.Unlock()
	return ae.value
}
