// Package startup runs the lamp test that precedes normal operation.
package startup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"lautenbacher.net/trafficlight/controller"
)

// lampTestOrder is the order in which the lamps are lit once at power on.
var lampTestOrder = []controller.Lamp{controller.GreenLamp, controller.YellowLamp, controller.RedLamp}

// sdNotify is replaced in tests.
var sdNotify = daemon.SdNotify

// Run lights each lamp for pause, then puts ctrl into Off and tells
// systemd that the service is ready. It must finish before any command
// surface is started. A cancelled ctx leaves the lamps dark and ctrl
// untouched.
func Run(ctx context.Context, lamps controller.LampDriver, ctrl *controller.Controller, pause time.Duration) error {
	slog.Info("Starting lamp test", "pause", pause)
	for _, lamp := range lampTestOrder {
		lamps.SetLamp(lamp, true)
		err := sleep(ctx, pause)
		lamps.SetLamp(lamp, false)
		if err != nil {
			return fmt.Errorf("lamp test interrupted: %w", err)
		}
	}

	if !ctrl.Transition(controller.Off) {
		return fmt.Errorf("controller refused initial transition to %v from %v", controller.Off, ctrl.State())
	}

	if sent, err := sdNotify(false, daemon.SdNotifyReady); err != nil {
		slog.Warn("Failed to notify systemd", "error", err)
	} else if sent {
		slog.Debug("Notified systemd", "state", daemon.SdNotifyReady)
	}
	slog.Info("Lamp test done", "state", ctrl.State())
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
