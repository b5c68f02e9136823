package util

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLamps struct {
	Green, Yellow, Red bool
}

func TestAtomicEvent_ZeroValue(t *testing.T) {
	ae := NewAtomicEvent[testLamps]()
	assert.Equal(t, testLamps{}, ae.Value())
	assert.False(t, ae.HasPending())
}

func TestAtomicEvent_SendCoalesces(t *testing.T) {
	ae := NewAtomicEvent[testLamps]()

	ae.Send(testLamps{Green: true})
	ae.Send(testLamps{Yellow: true})
	ae.Send(testLamps{Red: true})

	require.True(t, ae.HasPending())
	<-ae.Channel()
	assert.False(t, ae.HasPending(), "three sends make one notification")
	assert.Equal(t, testLamps{Red: true}, ae.Value())
}

func TestAtomicEvent_Update(t *testing.T) {
	ae := NewAtomicEvent[testLamps]()
	ae.Send(testLamps{Red: true})
	<-ae.Channel()

	got := ae.Update(func(l testLamps) testLamps {
		l.Yellow = true
		return l
	})

	assert.Equal(t, testLamps{Yellow: true, Red: true}, got)
	assert.Equal(t, got, ae.Value())
	assert.True(t, ae.HasPending())
}

func TestAtomicEvent_ConcurrentUpdatesAreNotLost(t *testing.T) {
	ae := NewAtomicEvent[int]()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 500 {
				ae.Update(func(n int) int { return n + 1 })
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4000, ae.Value())
}

func TestAtomicEvent_ReaderSeesLatest(t *testing.T) {
	ae := NewAtomicEvent[int]()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 1; i <= 1000; i++ {
			ae.Send(i)
		}
	}()

	last := 0
	for {
		select {
		case <-ae.Channel():
			v := ae.Value()
			require.GreaterOrEqual(t, v, last, "values only move forward")
			last = v
		case <-done:
			assert.Equal(t, 1000, ae.Value())
			return
		}
	}
}
