// Package mqtt mirrors the traffic light state to an MQTT broker and
// accepts command lines from it.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"lautenbacher.net/trafficlight/config"
	"lautenbacher.net/trafficlight/controller"
	"lautenbacher.net/trafficlight/events"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 250 // milliseconds
	defaultKeepAlive         = 30 * time.Second

	statusOnline  = "online"
	statusOffline = "offline"
)

var ErrConnectionFailed = errors.New("mqtt: connection failed")

// Bridge connects the controller to a broker. Commands are executed
// with execute, which should be command.Interpreter.Reply.
type Bridge struct {
	cfg      config.MQTTConfig
	clientID string
	topics   Topics
	execute  func(string) string

	newClient func(*pahomqtt.ClientOptions) pahomqtt.Client

	mu     sync.Mutex
	client pahomqtt.Client
	unsubs []func()
}

func NewBridge(cfg config.MQTTConfig, execute func(string) string) *Bridge {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "trafficlight-" + uuid.NewString()
	}
	return &Bridge{
		cfg:       cfg,
		clientID:  clientID,
		topics:    Topics{Prefix: cfg.TopicPrefix},
		execute:   execute,
		newClient: pahomqtt.NewClient,
	}
}

func (b *Bridge) buildClientOptions() *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(b.cfg.Broker)
	opts.SetClientID(b.clientID)
	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetWill(b.topics.Status(), statusOffline, b.qos(), true)

	// Subscriptions are lost with a clean session, renew them on every
	// (re)connect.
	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		slog.Info("MQTT connected", "broker", b.cfg.Broker, "client_id", b.clientID)
		c.Publish(b.topics.Status(), b.qos(), true, statusOnline)
		if token := c.Subscribe(b.topics.Command(), b.qos(), b.handleCommand); token.WaitTimeout(defaultPublishTimeout) && token.Error() != nil {
			slog.Error("MQTT subscribe failed", "topic", b.topics.Command(), "error", token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		slog.Warn("MQTT connection lost", "error", err)
	})
	return opts
}

func (b *Bridge) qos() byte {
	return byte(b.cfg.QoS)
}

// Start connects, publishes the current state and follows the bus.
func (b *Bridge) Start(bus *events.Bus, st controller.Status) error {
	client := b.newClient(b.buildClientOptions())
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	b.mu.Lock()
	b.client = client
	b.unsubs = append(b.unsubs, bus.Subscribe(b.publishState))
	b.mu.Unlock()

	b.publishState(events.StateChangedEvent{From: st.State, To: st.State, Lamps: st.Lamps, At: time.Now()})
	return nil
}

// Stop publishes the offline status and disconnects.
func (b *Bridge) Stop() {
	b.mu.Lock()
	client := b.client
	b.client = nil
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil
	b.mu.Unlock()

	if client == nil {
		return
	}
	token := client.Publish(b.topics.Status(), b.qos(), true, statusOffline)
	token.WaitTimeout(defaultPublishTimeout)
	client.Disconnect(defaultDisconnectQuiesce)
	slog.Info("MQTT disconnected")
}

func (b *Bridge) publishState(e events.StateChangedEvent) {
	b.mu.Lock()
	client := b.client
	b.mu.Unlock()
	if client == nil {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		slog.Error("Failed to encode state for MQTT", "error", err)
		return
	}
	// The bus handler must not block on the broker.
	client.Publish(b.topics.State(), b.qos(), true, payload)
}

func (b *Bridge) handleCommand(c pahomqtt.Client, msg pahomqtt.Message) {
	line := string(msg.Payload())
	reply := b.execute(line)
	slog.Info("MQTT command", "input", line, "reply", reply)
	c.Publish(b.topics.Response(), b.qos(), false, reply)
}
