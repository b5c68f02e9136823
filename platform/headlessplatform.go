package platform

import (
	"log/slog"

	"lautenbacher.net/trafficlight/config"
	"lautenbacher.net/trafficlight/controller"
)

// HeadlessPlatform has no lamps at all; every change is logged.
type HeadlessPlatform struct {
	*AbstractPlatform
}

func NewHeadlessPlatform(conf *config.Config) *HeadlessPlatform {
	inst := &HeadlessPlatform{}
	inst.AbstractPlatform = newAbstractPlatform(conf, inst.logLampFunc)
	return inst
}

func (s *HeadlessPlatform) Start() error {
	s.setReady()
	return nil
}

func (s *HeadlessPlatform) Stop() {
	s.setInShutdown()
}

func (s *HeadlessPlatform) logLampFunc(lamp controller.Lamp, on bool) {
	slog.Info("Lamp", "lamp", lamp, "on", on)
}
