package platform

import (
	"lautenbacher.net/trafficlight/controller"
)

// Platform abstracts the real lamp wiring away from the TUI simulation
// and the headless mode.
type Platform interface {
	controller.LampDriver

	// Start initializes the platform (opens GPIO, or starts the TUI).
	Start() error

	// Stop switches every lamp off and releases platform resources.
	Stop()

	// Ready is closed once the platform can show lamps and log output.
	Ready() <-chan bool

	// GetLamps returns the lamps as last set through SetLamp.
	GetLamps() controller.LampState
}
