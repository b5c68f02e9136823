package platform

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lautenbacher.net/trafficlight/config"
	"lautenbacher.net/trafficlight/controller"
)

func TestHeadlessPlatform(t *testing.T) {
	var out bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&out, nil)))
	t.Cleanup(func() { slog.SetDefault(old) })

	conf := config.Default()
	var p Platform = NewHeadlessPlatform(&conf)
	require.NoError(t, p.Start())
	<-p.Ready()

	p.SetLamp(controller.YellowLamp, true)
	assert.Contains(t, out.String(), "lamp=YELLOW on=true")
	assert.True(t, p.GetLamps().Yellow)

	p.Stop()
	assert.Contains(t, out.String(), "lamp=YELLOW on=false")
	assert.Equal(t, controller.LampState{}, p.GetLamps())
}
