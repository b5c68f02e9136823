package platform

import (
	"sync"

	c "lautenbacher.net/trafficlight/config"
	"lautenbacher.net/trafficlight/controller"
	u "lautenbacher.net/trafficlight/util"
)

type AbstractPlatform struct {
	config         *c.Config
	lamps          *u.AtomicEvent[controller.LampState]
	lampFunc       func(controller.Lamp, bool)
	lampMutex      sync.Mutex
	isShuttingDown bool
	readyChan      chan bool
	readyOnce      sync.Once
}

func newAbstractPlatform(conf *c.Config, lampFunc func(controller.Lamp, bool)) *AbstractPlatform {
	return &AbstractPlatform{
		config:    conf,
		lamps:     u.NewAtomicEvent[controller.LampState](),
		lampFunc:  lampFunc,
		readyChan: make(chan bool),
	}
}

// SetLamp records the new lamp state and forwards it to the concrete
// output. Calls after shutdown are dropped.
func (s *AbstractPlatform) SetLamp(lamp controller.Lamp, on bool) {
	s.lampMutex.Lock()
	defer s.lampMutex.Unlock()

	if s.isShuttingDown {
		return
	}
	s.lamps.Update(func(ls controller.LampState) controller.LampState { return ls.Set(lamp, on) })
	s.lampFunc(lamp, on)
}

func (s *AbstractPlatform) GetLamps() controller.LampState {
	return s.lamps.Value()
}

func (s *AbstractPlatform) Ready() <-chan bool {
	return s.readyChan
}

func (s *AbstractPlatform) setReady() {
	s.readyOnce.Do(func() { close(s.readyChan) })
}

// setInShutdown darkens the fixture and blocks any further lamp changes.
func (s *AbstractPlatform) setInShutdown() {
	s.lampMutex.Lock()
	defer s.lampMutex.Unlock()

	if s.isShuttingDown {
		return
	}
	for _, lamp := range controller.Lamps {
		s.lampFunc(lamp, false)
	}
	s.lamps.Send(controller.LampState{})
	s.isShuttingDown = true
}
