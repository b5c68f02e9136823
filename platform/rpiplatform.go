package platform

import (
	"fmt"
	"log/slog"

	"github.com/stianeikeland/go-rpio/v4"

	"lautenbacher.net/trafficlight/config"
	"lautenbacher.net/trafficlight/controller"
)

// outputPin is the part of rpio.Pin the lamps need.
type outputPin interface {
	Output()
	High()
	Low()
}

// Replaced in tests, there is no /dev/gpiomem there.
var (
	gpioOpen  = rpio.Open
	gpioClose = rpio.Close
	gpioPin   = func(n int) outputPin { return rpio.Pin(n) }
)

type RaspberryPiPlatform struct {
	*AbstractPlatform
	pins map[controller.Lamp]outputPin
}

func NewRaspberryPiPlatform(conf *config.Config) *RaspberryPiPlatform {
	inst := &RaspberryPiPlatform{}
	inst.AbstractPlatform = newAbstractPlatform(conf, inst.rpiLampFunc)
	return inst
}

func (s *RaspberryPiPlatform) Start() error {
	slog.Info("Initialise GPIO...")
	if err := gpioOpen(); err != nil {
		return fmt.Errorf("failed to open gpio: %w", err)
	}

	cfg := s.config.Hardware.Pins
	gpios := map[controller.Lamp]int{
		controller.GreenLamp:  cfg.Green,
		controller.YellowLamp: cfg.Yellow,
		controller.RedLamp:    cfg.Red,
	}

	pins := make(map[controller.Lamp]outputPin, len(gpios))
	for lamp, gpio := range gpios {
		pin := gpioPin(gpio)
		pin.Output()
		pin.Low()
		pins[lamp] = pin
		slog.Debug("Lamp output ready", "lamp", lamp, "gpio", gpio)
	}

	s.lampMutex.Lock()
	s.pins = pins
	s.lampMutex.Unlock()

	s.setReady() // For RPi, we are ready immediately.
	return nil
}

func (s *RaspberryPiPlatform) Stop() {
	s.setInShutdown()

	s.lampMutex.Lock()
	opened := s.pins != nil
	s.pins = nil
	s.lampMutex.Unlock()

	if opened {
		if err := gpioClose(); err != nil {
			slog.Error("Error closing gpio", "error", err)
		}
	}
}

// rpiLampFunc runs with lampMutex held.
func (s *RaspberryPiPlatform) rpiLampFunc(lamp controller.Lamp, on bool) {
	pin, ok := s.pins[lamp]
	if !ok {
		return
	}
	if on {
		pin.High()
	} else {
		pin.Low()
	}
}
