// Package metrics provides Prometheus metrics for the traffic light.
package metrics

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lautenbacher.net/trafficlight/controller"
	"lautenbacher.net/trafficlight/events"
)

const namespace = "trafficlight"

// Collector keeps the traffic light metrics on its own registry.
type Collector struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	state       *prometheus.GaugeVec
	lamps       *prometheus.GaugeVec
	dwell       *prometheus.GaugeVec

	mu     sync.Mutex
	unsubs []func()
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Collector{
		registry: registry,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Transition requests by source state, target state and result",
		}, []string{"from", "to", "result"}),
		state: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "1 for the current state, 0 for all others",
		}, []string{"state"}),
		lamps: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lamp_on",
			Help:      "1 while the lamp is lit",
		}, []string{"lamp"}),
		dwell: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dwell_seconds",
			Help:      "Configured dwell per phase",
		}, []string{"phase"}),
	}
}

// Registry returns the registry all traffic light metrics live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Attach seeds the gauges from st and keeps them current from bus.
func (c *Collector) Attach(bus *events.Bus, st controller.Status) {
	c.setState(st.State)
	c.setLamps(st.Lamps)
	for _, p := range controller.Phases {
		d, _ := st.Dwell.Get(p)
		c.setDwell(p, d.Seconds())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubs = append(c.unsubs,
		bus.Subscribe(c.StateChanged),
		bus.Subscribe(c.TransitionRejected),
		bus.Subscribe(c.DwellChanged),
	)
}

// Detach stops listening to the bus.
func (c *Collector) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
}

func (c *Collector) StateChanged(e events.StateChangedEvent) {
	c.transitions.WithLabelValues(label(e.From), label(e.To), "accepted").Inc()
	c.setState(e.To)
	c.setLamps(e.Lamps)
}

func (c *Collector) TransitionRejected(e events.TransitionRejectedEvent) {
	c.transitions.WithLabelValues(label(e.From), label(e.Target), "rejected").Inc()
}

func (c *Collector) DwellChanged(e events.DwellChangedEvent) {
	c.setDwell(e.Phase, e.Value.Seconds())
}

func (c *Collector) setState(current controller.State) {
	for _, s := range append([]controller.State{controller.Undefined}, controller.States...) {
		v := 0.0
		if s == current {
			v = 1
		}
		c.state.WithLabelValues(label(s)).Set(v)
	}
}

func (c *Collector) setLamps(ls controller.LampState) {
	for _, l := range controller.Lamps {
		v := 0.0
		if ls.IsOn(l) {
			v = 1
		}
		c.lamps.WithLabelValues(strings.ToLower(l.String())).Set(v)
	}
}

func (c *Collector) setDwell(p controller.Phase, seconds float64) {
	c.dwell.WithLabelValues(label(p)).Set(seconds)
}

func label(v interface{ String() string }) string {
	return strings.ToLower(v.String())
}
