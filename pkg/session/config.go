// Package session implements the per-device command queue, receive loop,
// schedulers, session supervisor and reconnect driver described as this
// bridge's core engineering substance: a reconnecting pipeline that
// coordinates bus commands, device commands, polling, heartbeats and
// structured failure diagnostics over a fragile local protocol.
package session

import "time"

const (
	defaultCommandQueueCapacity = 32
	defaultPublisherCapacity    = 16

	defaultOperationTimeout = 5 * time.Second
	defaultReceiveTimeout   = 30 * time.Second
	defaultConnectTimeout   = 9 * time.Second

	defaultPollInterval      = 15 * time.Second
	defaultPollJitter        = 2 * time.Second
	defaultHeartbeatInterval = 15 * time.Second
	defaultHeartbeatJitter   = 5 * time.Second

	defaultInitialReconnectDelay = 1 * time.Second
	defaultMaxReconnectDelay     = 60 * time.Second
)

// Config holds the tunable timing parameters of a device session. The zero
// value is not meaningful; use defaultConfig (wired through Option) to get
// one with the documented defaults.
type Config struct {
	commandQueueCapacity int
	publisherCapacity    int

	operationTimeout time.Duration
	receiveTimeout   time.Duration
	connectTimeout   time.Duration

	pollInterval      time.Duration
	pollJitter        time.Duration
	heartbeatInterval time.Duration
	heartbeatJitter   time.Duration

	initialReconnectDelay time.Duration
	maxReconnectDelay     time.Duration
}

func defaultConfig() *Config {
	return &Config{
		commandQueueCapacity:  defaultCommandQueueCapacity,
		publisherCapacity:     defaultPublisherCapacity,
		operationTimeout:      defaultOperationTimeout,
		receiveTimeout:        defaultReceiveTimeout,
		connectTimeout:        defaultConnectTimeout,
		pollInterval:          defaultPollInterval,
		pollJitter:            defaultPollJitter,
		heartbeatInterval:     defaultHeartbeatInterval,
		heartbeatJitter:       defaultHeartbeatJitter,
		initialReconnectDelay: defaultInitialReconnectDelay,
		maxReconnectDelay:     defaultMaxReconnectDelay,
	}
}

// Option overrides one field of a session's Config. Tests use these to
// shrink intervals far below their production defaults; cmd/tuyabridged
// does not use them at all, relying on the documented defaults.
type Option func(*Config)

func WithPollInterval(interval, jitter time.Duration) Option {
	return func(c *Config) { c.pollInterval, c.pollJitter = interval, jitter }
}

func WithHeartbeatInterval(interval, jitter time.Duration) Option {
	return func(c *Config) { c.heartbeatInterval, c.heartbeatJitter = interval, jitter }
}

func WithOperationTimeout(d time.Duration) Option {
	return func(c *Config) { c.operationTimeout = d }
}

func WithReceiveTimeout(d time.Duration) Option {
	return func(c *Config) { c.receiveTimeout = d }
}

func WithConnectTimeout(d time.Duration) Option {
	return func(c *Config) { c.connectTimeout = d }
}

func WithReconnectDelays(initial, max time.Duration) Option {
	return func(c *Config) { c.initialReconnectDelay, c.maxReconnectDelay = initial, max }
}

func parseOptions(opts []Option) *Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
