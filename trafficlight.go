package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"lautenbacher.net/trafficlight/command"
	c "lautenbacher.net/trafficlight/config"
	"lautenbacher.net/trafficlight/controller"
	"lautenbacher.net/trafficlight/events"
	"lautenbacher.net/trafficlight/logging"
	"lautenbacher.net/trafficlight/metrics"
	"lautenbacher.net/trafficlight/mqtt"
	pl "lautenbacher.net/trafficlight/platform"
	"lautenbacher.net/trafficlight/schedule"
	"lautenbacher.net/trafficlight/server"
	"lautenbacher.net/trafficlight/startup"
)

type options struct {
	configFile string
	realHW     bool
	headless   bool
}

func addFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVarP(&opts.configFile, "config", "c", c.CONFILE, "path to the configuration file")
	flags.BoolVarP(&opts.realHW, "real", "r", false, "drive the lamps through the Raspberry Pi GPIO")
	flags.BoolVar(&opts.headless, "headless", false, "no lamps and no TUI, lamp changes are logged")
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "trafficlight",
		Short:         "Traffic light controller",
		Long:          `Runs a three lamp traffic light: a lamp test at power on, the automatic green, yellow, red cycle and yellow blinking for errors and at night.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}
	addFlags(cmd.Flags(), opts)
	cmd.MarkFlagsMutuallyExclusive("real", "headless")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(opts *options) error {
	conf, err := c.ReadConfig(opts.configFile)
	if err != nil {
		return err
	}
	conf.RealHW = opts.realHW
	useTUI := !opts.realHW && !opts.headless

	if err := logging.Init(logging.Options{
		Level:  conf.Logging.Level,
		Format: conf.Logging.Format,
		File:   conf.Logging.File,
		Buffer: useTUI,
	}); err != nil {
		return err
	}
	defer logging.Close()

	ossignal := make(chan os.Signal, 1)
	signal.Notify(ossignal, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(ossignal)

	app := NewApp(conf, ossignal)
	switch {
	case opts.realHW:
		app.platform = pl.NewRaspberryPiPlatform(&app.config)
	case opts.headless:
		app.platform = pl.NewHeadlessPlatform(&app.config)
	default:
		app.tui = pl.NewTUIPlatform(&app.config, ossignal)
		app.platform = app.tui
	}
	app.console = !useTUI && readline.IsTerminal(int(os.Stdin.Fd()))
	return app.Run(context.Background())
}

// App wires the controller to the platform and every command surface.
type App struct {
	config   c.Config
	ossignal chan os.Signal
	platform pl.Platform
	tui      *pl.TUIPlatform
	// console enables the readline prompt, used on a terminal without TUI.
	console bool

	ctrl      *controller.Controller
	bus       *events.Bus
	interp    *command.Interpreter
	collector *metrics.Collector
	bridge    *mqtt.Bridge

	shutdownWg sync.WaitGroup
	// ready is closed once the lamp test is done and the cycle runs.
	ready chan struct{}
}

func NewApp(conf c.Config, ossignal chan os.Signal) *App {
	return &App{
		config:   conf,
		ossignal: ossignal,
		ready:    make(chan struct{}),
	}
}

// Run blocks until an interrupt arrives or a surface asks to quit. The
// lamps are dark when it returns.
func (a *App) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if err := a.initialise(); err != nil {
		return err
	}

	if err := a.platform.Start(); err != nil {
		return fmt.Errorf("failed to start platform: %w", err)
	}
	defer a.shutdown(cancel)

	// Until the main loop runs, signals are watched here, so an
	// interrupt ends a platform that never gets ready or the lamp test.
	for ready := false; !ready; {
		select {
		case <-a.platform.Ready():
			ready = true
		case <-ctx.Done():
			return nil
		case sig := <-a.ossignal:
			if a.stopRequested(sig) {
				return nil
			}
		}
	}

	startupDone := make(chan error, 1)
	go func() {
		startupDone <- startup.Run(ctx, a.platform, a.ctrl, a.config.Startup.LampTestPause)
	}()
	for done := false; !done; {
		select {
		case err := <-startupDone:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if err != nil {
				return err
			}
			done = true
		case sig := <-a.ossignal:
			if a.stopRequested(sig) {
				cancel()
				<-startupDone
				return nil
			}
		}
	}

	a.startSurfaces(ctx, cancel)
	close(a.ready)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-a.ossignal:
			if a.stopRequested(sig) {
				return nil
			}
		}
	}
}

// stopRequested reloads the config on SIGHUP and reports true for every
// other signal.
func (a *App) stopRequested(sig os.Signal) bool {
	if sig == syscall.SIGHUP {
		a.reloadFromFile()
		return false
	}
	slog.Info("Received signal, shutting down", "signal", sig)
	return true
}

func (a *App) initialise() error {
	a.bus = events.New()
	ctrl, err := controller.New(a.platform, a.config.Dwell,
		controller.WithObserver(a.bus),
		controller.WithHistorySize(a.config.History.Size))
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}
	a.ctrl = ctrl
	a.interp = command.NewInterpreter(ctrl)
	a.collector = metrics.NewCollector()

	if a.tui != nil {
		a.tui.SetCommandHandler(a.interp.Reply)
		a.tui.SetStatusFunc(func() string { return command.FormatStatus(ctrl.Status()) })
	}
	return nil
}

func (a *App) goRun(name string, f func() error) {
	a.shutdownWg.Add(1)
	go func() {
		defer a.shutdownWg.Done()
		if err := f(); err != nil {
			slog.Error("Component failed", "component", name, "error", err)
		}
	}()
}

func (a *App) startSurfaces(ctx context.Context, cancel context.CancelFunc) {
	cycle := a.ctrl.CycleTask()
	a.goRun("cycle", func() error { return cycle.Run(ctx) })

	a.collector.Attach(a.bus, a.ctrl.Status())

	if a.config.Web.Enabled {
		web := server.New(a.config.Web.Listen, a.ctrl, a.collector.Handler())
		a.goRun("web", func() error { return web.Run(ctx) })
	}

	if a.config.MQTT.Enabled {
		bridge := mqtt.NewBridge(a.config.MQTT, a.interp.Reply)
		if err := bridge.Start(a.bus, a.ctrl.Status()); err != nil {
			slog.Error("MQTT disabled", "error", err)
		} else {
			a.bridge = bridge
		}
	}

	if a.config.NightMode.Enabled {
		night := schedule.NewNightMode(a.ctrl, a.config.NightMode)
		a.goRun("nightmode", func() error { return night.Run(ctx) })
	}

	if a.config.Configfile != "" {
		if err := c.Watch(ctx, a.config.Configfile, a.applyConfig); err != nil {
			slog.Warn("Config file is not watched", "error", err)
		}
	}

	if a.console {
		console, err := command.NewConsole(a.interp)
		if err != nil {
			slog.Warn("No console", "error", err)
			return
		}
		logging.SetOutput(console.Stdout())
		a.goRun("console", func() error {
			console.Run(ctx, cancel)
			return nil
		})
	}
}

// applyConfig takes over what can change at runtime, the dwell table.
func (a *App) applyConfig(conf c.Config) {
	if err := a.ctrl.SetDwellTable(conf.Dwell); err != nil {
		slog.Error("Failed to apply dwell from config", "error", err)
	}
}

func (a *App) reloadFromFile() {
	if a.config.Configfile == "" {
		return
	}
	conf, err := c.ReadConfig(a.config.Configfile)
	if err != nil {
		slog.Error("Reload failed", "error", err)
		return
	}
	slog.Info("Reloading config", "file", a.config.Configfile)
	a.applyConfig(conf)
}

func (a *App) shutdown(cancel context.CancelFunc) {
	cancel()
	a.shutdownWg.Wait()

	if a.bridge != nil {
		a.bridge.Stop()
	}
	a.collector.Detach()

	if a.tui != nil {
		logging.BufferOutput()
	} else {
		logging.SetOutput(os.Stderr)
	}
	a.platform.Stop()
	slog.Info("Traffic light stopped")
}
