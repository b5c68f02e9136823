// Package schedule switches the traffic light to blinking between
// sunset and sunrise.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"lautenbacher.net/trafficlight/config"
	"lautenbacher.net/trafficlight/controller"
)

// horizon is the sun elevation go-sunrise uses for sunrise and sunset,
// refraction included.
const horizon = -0.833

// nightAt reports whether now lies between sunset and sunrise at the
// given location and when that will change next. go-sunrise works on
// UTC dates, and away from Greenwich a local day spans two of them, so
// the windows of the neighbouring dates are checked too. Where the sun
// does not cross the horizon (polar day or night) the elevation decides
// and the returned time is zero.
func nightAt(latitude, longitude float64, now time.Time) (bool, time.Time) {
	now = now.UTC()
	var next time.Time
	for offset := -1; offset <= 2; offset++ {
		day := now.AddDate(0, 0, offset)
		rise, set := sunrise.SunriseSunset(latitude, longitude, day.Year(), day.Month(), day.Day())
		if rise.IsZero() || set.IsZero() {
			return sunrise.Elevation(latitude, longitude, now) < horizon, time.Time{}
		}
		if !now.Before(rise) && now.Before(set) {
			return false, set
		}
		if rise.After(now) && (next.IsZero() || rise.Before(next)) {
			next = rise
		}
	}
	return true, next
}

func isBlinking(s controller.State) bool {
	return s == controller.ErrorOn || s == controller.ErrorOff
}

// resumeTargets are the transitions that bring the light back at
// sunrise into what it did before sunset.
func resumeTargets(before controller.State) []controller.State {
	switch before {
	case controller.Off, controller.Undefined:
		return []controller.State{controller.Off}
	}
	return []controller.State{controller.Off, controller.Green}
}

type NightMode struct {
	ctrl      *controller.Controller
	latitude  float64
	longitude float64
	interval  time.Duration
	now       func() time.Time

	night bool
	// owned is set while the blinking was started by us and not
	// overridden by an operator.
	owned bool
	// before is the state the sunset found.
	before controller.State
}

func NewNightMode(ctrl *controller.Controller, cfg config.NightModeConfig) *NightMode {
	return &NightMode{
		ctrl:      ctrl,
		latitude:  cfg.Latitude,
		longitude: cfg.Longitude,
		interval:  cfg.CheckInterval,
		now:       time.Now,
	}
}

// Run checks the sun until ctx is done. It wakes at every sunrise and
// sunset, and at least once per check interval.
func (n *NightMode) Run(ctx context.Context) error {
	slog.Info("Starting night mode", "latitude", n.latitude, "longitude", n.longitude)
	for {
		now := n.now()
		next := n.apply(now)

		wait := next.Sub(now)
		if wait <= 0 || wait > n.interval {
			wait = n.interval
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("Ending night mode")
			return nil
		case <-timer.C:
		}
	}
}

// apply performs the transitions due at now and returns the next
// sunrise or sunset.
func (n *NightMode) apply(now time.Time) time.Time {
	night, next := nightAt(n.latitude, n.longitude, now)
	switch {
	case night && !n.night:
		before, ok := n.ctrl.TransitionWhen(func(s controller.State) bool { return !isBlinking(s) }, controller.ErrorOn)
		n.owned, n.before = ok, before
		if ok {
			slog.Info("Sunset, switching to blinking", "before", before, "sunrise", next)
		} else {
			slog.Info("Sunset, light is blinking already", "state", before)
		}
	case !night && n.night:
		if n.owned {
			targets := resumeTargets(n.before)
			if state, ok := n.ctrl.TransitionWhen(isBlinking, targets...); ok {
				slog.Info("Sunrise, resuming", "state", targets[len(targets)-1], "sunset", next)
			} else {
				slog.Info("Sunrise, leaving operator state alone", "state", state)
			}
		}
		n.owned = false
	}
	n.night = night
	return next
}
