// Package bus implements the pub/sub side of the bridge: an MQTT-backed
// BusClient plus the per-device latest-wins channels the session
// supervisor forwards bus commands through.
package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/tuyabridge/tuyabridged/internal/dpcodec"
)

// ErrBusPublish is returned (and only ever logged, never fatal to a
// session) when a publish could not be confirmed before its timeout.
var ErrBusPublish = errors.New("bus: publish failed")

const publishWaitTimeout = 3 * time.Second

// BusClient is the narrow contract pkg/session's bus forwarder and
// publisher depend on.
type BusClient interface {
	// Publish sends payload to topic, retained, at QoS at-least-once.
	Publish(topic string, payload []byte) error
	// DeviceCommands returns the latest-wins command channel for deviceID,
	// registering it on first use.
	DeviceCommands(deviceID string) *Watch[dpcodec.LampState]
	// Close disconnects from the broker.
	Close()
}

// Config configures the MQTT connection and topic template.
type Config struct {
	ClientID string
	Host     string
	Port     int
	// Topic is the canonical topic template; it may contain one '+'
	// placeholder to be substituted with a device id for devices that
	// don't override Topic in their own DeviceConfig.
	Topic string
}

// Client is the paho-backed BusClient implementation.
type Client struct {
	cli mqtt.Client
	cfg Config

	mu       sync.Mutex
	watchers map[string]*Watch[dpcodec.LampState]
}

// New constructs a Client and connects to the broker. It subscribes only to
// the "/set" variant of cfg.Topic. Per-device topic overrides are not
// subscribed, so commands published under an override's own "/set" topic
// are not received. Messages on the subscribed topic are routed to devices
// by the id in their payload (see routeMessage).
func New(cfg Config) (*Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	c := &Client{cfg: cfg, watchers: make(map[string]*Watch[dpcodec.LampState])}

	c.cli = mqtt.NewClient(opts)
	if token := c.cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("bus: connect: %w", token.Error())
	}

	setTopic := subscribeTopic(cfg.Topic)
	if token := c.cli.Subscribe(setTopic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		c.routeMessage(msg.Payload())
	}); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("bus: subscribe %s: %w", setTopic, token.Error())
	}

	return c, nil
}

// subscribeTopic turns a publish-side template like "home/lights/tuya/+"
// into its "/set" subscription counterpart.
func subscribeTopic(topic string) string {
	return strings.TrimSuffix(topic, "/") + "/set"
}

func (c *Client) routeMessage(payload []byte) {
	var state dpcodec.LampState
	if err := json.Unmarshal(payload, &state); err != nil {
		log.WithError(err).Debug("bus: dropping malformed command payload")
		return
	}
	if state.ID == "" {
		log.Debug("bus: dropping command payload with no device id")
		return
	}

	c.mu.Lock()
	w, ok := c.watchers[state.ID]
	c.mu.Unlock()
	if !ok {
		log.WithField("device", state.ID).Debug("bus: command for unregistered device, dropping")
		return
	}
	w.Set(state)
}

// DeviceCommands returns (creating if necessary) the latest-wins channel a
// device's bus forwarder reads from.
func (c *Client) DeviceCommands(deviceID string) *Watch[dpcodec.LampState] {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.watchers[deviceID]
	if !ok {
		w = NewWatch[dpcodec.LampState]()
		c.watchers[deviceID] = w
	}
	return w
}

// Publish sends payload retained, at QoS at-least-once, waiting up to
// publishWaitTimeout for broker confirmation.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.cli.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(publishWaitTimeout) {
		return fmt.Errorf("%w: %s: timed out waiting for broker ack", ErrBusPublish, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBusPublish, topic, err)
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight work 250ms to
// drain.
func (c *Client) Close() {
	c.cli.Disconnect(250)
}

// EffectiveTopic renders the configured topic template for one device,
// substituting its single '+' placeholder (if present) with id.
func EffectiveTopic(template, id string) string {
	if strings.Contains(template, "+") {
		return strings.Replace(template, "+", id, 1)
	}
	return template
}
