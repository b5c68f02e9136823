package platform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"lautenbacher.net/trafficlight/config"
	"lautenbacher.net/trafficlight/controller"
)

func TestRenderLamps(t *testing.T) {
	out := renderLamps(controller.LampState{Red: true, Yellow: true}, "")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 3)

	assert.Contains(t, lines[0], "[#ff0000]")
	assert.Contains(t, lines[0], "RED")
	assert.Contains(t, lines[1], "[#ffbf00]")
	assert.Contains(t, lines[1], "YELLOW")
	assert.Contains(t, lines[2], "["+darkLampColor+"]")
	assert.Contains(t, lines[2], "GREEN")
}

func TestRenderLamps_Status(t *testing.T) {
	out := renderLamps(controller.LampState{}, "Off")
	assert.Equal(t, 3, strings.Count(out, darkLampColor))
	assert.True(t, strings.HasSuffix(out, "Off[-]"))
}

func TestTUIPlatform_RunCommand(t *testing.T) {
	conf := config.Default()
	p := NewTUIPlatform(&conf, nil)

	var got []string
	p.SetCommandHandler(func(line string) string {
		got = append(got, line)
		return "OK"
	})

	p.runCommand("  on ")
	p.runCommand("   ")
	assert.Equal(t, []string{"on"}, got)
}

func TestTUIPlatform_LampStateWithoutScreen(t *testing.T) {
	conf := config.Default()
	p := NewTUIPlatform(&conf, nil)

	p.SetLamp(controller.GreenLamp, true)
	assert.Equal(t, controller.LampState{Green: true}, p.GetLamps())
	assert.Contains(t, introText(), "Ctrl-C")
}
