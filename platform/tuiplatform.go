package platform

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"lautenbacher.net/trafficlight/config"
	"lautenbacher.net/trafficlight/controller"
	"lautenbacher.net/trafficlight/logging"
)

var lampColors = map[controller.Lamp]string{
	controller.RedLamp:    "#ff0000",
	controller.YellowLamp: "#ffbf00",
	controller.GreenLamp:  "#00ff00",
}

const darkLampColor = "#303030"

type TUIPlatform struct {
	*AbstractPlatform
	tviewapp     *tview.Application
	intro        *tview.TextView
	lampDisplay  *tview.TextView
	logView      *tview.TextView
	input        *tview.InputField
	ossignalChan chan os.Signal
	execute      func(string) string
	status       func() string
	logFlushOnce sync.Once
	stopChan     chan struct{}
	drawWg       sync.WaitGroup
}

func NewTUIPlatform(conf *config.Config, ossignalchan chan os.Signal) *TUIPlatform {
	inst := &TUIPlatform{
		ossignalChan: ossignalchan,
		stopChan:     make(chan struct{}),
	}
	// The TUI draws from the lamp state itself, nothing to do per lamp.
	inst.AbstractPlatform = newAbstractPlatform(conf, func(controller.Lamp, bool) {})
	return inst
}

// SetCommandHandler installs the function that answers lines typed into
// the command field. Must be called before Start.
func (s *TUIPlatform) SetCommandHandler(execute func(string) string) {
	s.execute = execute
}

// SetStatusFunc installs the source of the status line below the lamps.
// Must be called before Start.
func (s *TUIPlatform) SetStatusFunc(status func() string) {
	s.status = status
}

func (s *TUIPlatform) Start() error {
	s.initSimulationTUI()

	s.drawWg.Add(1)
	go s.lampDrawer()

	return nil
}

func (s *TUIPlatform) Stop() {
	s.setInShutdown()

	close(s.stopChan)
	s.drawWg.Wait()

	if s.tviewapp != nil {
		s.tviewapp.Stop()
	}
}

// lampDrawer redraws the lamp pane whenever the lamp state changes.
func (s *TUIPlatform) lampDrawer() {
	defer s.drawWg.Done()
	for {
		select {
		case <-s.stopChan:
			slog.Info("Ending lamp drawer go-routine...")
			return
		case <-s.lamps.Channel():
			s.tviewapp.QueueUpdateDraw(s.drawLamps)
		}
	}
}

// drawLamps must be called on the main TUI thread via app.QueueUpdateDraw().
func (s *TUIPlatform) drawLamps() {
	status := ""
	if s.status != nil {
		status = s.status()
	}
	s.lampDisplay.SetText(renderLamps(s.GetLamps(), status))
}

// renderLamps draws the fixture from top to bottom, one lamp per line.
func renderLamps(state controller.LampState, status string) string {
	var buf strings.Builder
	for _, lamp := range controller.Lamps {
		color := darkLampColor
		if state.IsOn(lamp) {
			color = lampColors[lamp]
		}
		fmt.Fprintf(&buf, "  [%s]████[-]  %s\n", color, lamp)
	}
	if status != "" {
		fmt.Fprintf(&buf, "\n  [#ffff00]%s[-]", status)
	}
	return buf.String()
}

func introText() string {
	line1 := "Type a command and hit [#ff0000]Enter[-]: [blue]on[-], [blue]off[-], [blue]error[-], [blue]set green 5000[-], [blue]help[-]"
	line2 := "Hit [#ff0000]Ctrl-C[-] to exit, [#ff0000]Ctrl-R[-] to reload, [#ff0000]Up/Down[-] to scroll logs"
	return fmt.Sprintf("%s\n%s", line1, line2)
}

func (s *TUIPlatform) runCommand(line string) {
	line = strings.TrimSpace(line)
	if line == "" || s.execute == nil {
		return
	}
	reply := s.execute(line)
	slog.Info("Command", "input", line, "reply", reply)
}

func (s *TUIPlatform) initSimulationTUI() {
	s.tviewapp = tview.NewApplication()

	// --- Intro Pane ---
	s.intro = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	s.intro.SetText(introText())
	s.intro.SetBorder(true).SetTitle(" Traffic Light Simulation ").SetTitleColor(tcell.ColorLightBlue)
	s.intro.SetBackgroundColor(tcell.NewRGBColor(20, 20, 20))

	// --- Lamp Pane ---
	s.lampDisplay = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	s.lampDisplay.SetBorder(true)
	s.lampDisplay.SetBackgroundColor(tcell.NewRGBColor(30, 30, 30))
	s.lampDisplay.SetText(renderLamps(controller.LampState{}, ""))

	// --- Log Pane ---
	s.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetChangedFunc(func() {
			s.logView.ScrollToEnd()
			s.tviewapp.Draw()
		})
	s.logView.SetBorder(true).SetTitle(" Logs ").SetTitleColor(tcell.ColorLightBlue)
	s.logView.SetBackgroundColor(tcell.NewRGBColor(40, 40, 40))

	// --- Command Field ---
	s.input = tview.NewInputField().SetLabel("> ")
	s.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		line := s.input.GetText()
		s.input.SetText("")
		s.runCommand(line)
	})
	s.input.SetBorder(true).SetTitle(" Command ").SetTitleColor(tcell.ColorLightBlue)

	// --- Layout ---
	lampHeight := len(controller.Lamps) + 2 + 2 // one line per lamp, status line, border

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(s.intro, 4, 0, false).
		AddItem(s.lampDisplay, lampHeight, 0, false).
		AddItem(s.logView, 0, 1, false).
		AddItem(s.input, 3, 0, true)

	// --- Flush logs after first draw ---
	s.tviewapp.SetAfterDrawFunc(func(screen tcell.Screen) {
		s.logFlushOnce.Do(func() {
			logWriter := tview.ANSIWriter(s.logView)
			logging.SetOutput(logWriter)
			s.setReady()
		})
	})

	// --- Input Handling ---
	s.tviewapp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			s.ossignalChan <- os.Interrupt
			return nil
		case tcell.KeyCtrlR:
			s.ossignalChan <- syscall.SIGHUP
			return nil
		case tcell.KeyUp:
			row, col := s.logView.GetScrollOffset()
			s.logView.ScrollTo(row-1, col)
			return nil
		case tcell.KeyDown:
			row, col := s.logView.GetScrollOffset()
			s.logView.ScrollTo(row+1, col)
			return nil
		}
		return event
	})

	// --- Start TUI ---
	go func() {
		if err := s.tviewapp.SetRoot(layout, true).Run(); err != nil {
			slog.Error("Error running TUI", "error", err)
			s.ossignalChan <- os.Interrupt
		}
	}()
}
