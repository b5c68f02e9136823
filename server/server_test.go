package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lautenbacher.net/trafficlight/controller"
)

type nopLamps struct{}

func (nopLamps) SetLamp(controller.Lamp, bool) {}

func newTestServer(t *testing.T) (*httptest.Server, *controller.Controller) {
	t.Helper()
	ctrl, err := controller.New(nopLamps{}, controller.DefaultDwell)
	require.NoError(t, err)
	require.True(t, ctrl.Transition(controller.Off))

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# metrics"))
	})
	ts := httptest.NewServer(NewMux(ctrl, metrics))
	t.Cleanup(ts.Close)
	return ts, ctrl
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStateHandler(t *testing.T) {
	ts, ctrl := newTestServer(t)
	ctrl.Transition(controller.Green)

	resp := get(t, ts.URL+"/api/state")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "Green", got["state"])
	assert.Equal(t, map[string]any{"Green": true, "Yellow": false, "Red": false}, got["lamps"])

	assert.Equal(t, http.StatusMethodNotAllowed, post(t, ts.URL+"/api/state", "{}").StatusCode)
}

func TestTransitionHandler(t *testing.T) {
	ts, ctrl := newTestServer(t)

	tests := []struct {
		body     string
		accepted bool
		state    controller.State
	}{
		{`{"target":"Red"}`, false, controller.Off},
		{`{"target":"green"}`, true, controller.Green},
		{`{"target":"ErrorOn"}`, true, controller.ErrorOn},
		{`{"target":"Off"}`, true, controller.Off},
	}
	for _, tt := range tests {
		resp := post(t, ts.URL+"/api/transition", tt.body)
		require.Equal(t, http.StatusOK, resp.StatusCode, tt.body)

		var got transitionResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, tt.accepted, got.Accepted, tt.body)
		assert.Equal(t, tt.state, got.State, tt.body)
		assert.Equal(t, tt.state, ctrl.State(), tt.body)
	}
}

func TestTransitionHandler_BadRequests(t *testing.T) {
	ts, ctrl := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/transition", `{"target":"Purple"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, ts.URL+"/api/transition", `not json`).StatusCode)
	assert.Equal(t, http.StatusMethodNotAllowed, get(t, ts.URL+"/api/transition").StatusCode)
	assert.Equal(t, controller.Off, ctrl.State())
}

func TestDwellHandler(t *testing.T) {
	ts, ctrl := newTestServer(t)

	resp := get(t, ts.URL+"/api/dwell")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got dwellMillis
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, dwellMillis{Green: 5000, Yellow: 2000, Red: 7000, Blinking: 1000}, got)

	resp = post(t, ts.URL+"/api/dwell", `{"Green": 8000, "blinking": 400}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, dwellMillis{Green: 8000, Yellow: 2000, Red: 7000, Blinking: 400}, got)
	assert.Equal(t, 8*time.Second, ctrl.Dwell().Green)
}

func TestDwellHandler_Rejects(t *testing.T) {
	ts, ctrl := newTestServer(t)

	for _, body := range []string{`{"Green": 0}`, `{"Red": -100}`, `{"Purple": 100}`, `{"Green": 3000, "Yellow": 0}`, `[]`,
		`{"Green": 18446744073710}`, `{"Green": 3000, "Red": 9223372036854775807}`} {
		resp := post(t, ts.URL+"/api/dwell", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
	assert.Equal(t, controller.DefaultDwell, ctrl.Dwell())

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/dwell", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestMetricsRoute(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	ctrl, err := controller.New(nopLamps{}, controller.DefaultDwell)
	require.NoError(t, err)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	s := New(addr, ctrl, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/api/state")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunFailsOnBadAddress(t *testing.T) {
	ctrl, err := controller.New(nopLamps{}, controller.DefaultDwell)
	require.NoError(t, err)

	err = New("256.0.0.1:bad", ctrl, nil).Run(context.Background())
	assert.Error(t, err)
}
