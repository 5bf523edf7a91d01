package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tuyabridge/tuyabridged/internal/bus"
	"github.com/tuyabridge/tuyabridged/internal/devicelink"
	"github.com/tuyabridge/tuyabridged/internal/dpcodec"
	"github.com/tuyabridge/tuyabridged/internal/timeline"
)

// ReconnectDriver owns one device's link and State for the process
// lifetime, reconnecting forever with classification-sensitive backoff
// until ctx is cancelled.
type ReconnectDriver struct {
	cfg         *Config
	device      dpcodec.DeviceConfig
	globalTopic string
	link        devicelink.DeviceLink
	bus         bus.BusClient
	state       *State

	// dump receives a timeline dump on every device-failure-class error;
	// supplied by the caller of NewReconnectDriver (cmd/tuyabridged passes
	// os.Stderr).
	dump io.Writer
}

// NewReconnectDriver constructs a driver for one device. link and busClient
// are supplied by the caller (cmd/tuyabridged) so this package never
// constructs a concrete transport or bus client itself.
func NewReconnectDriver(device dpcodec.DeviceConfig, globalTopic string, link devicelink.DeviceLink, busClient bus.BusClient, dump io.Writer, opts ...Option) *ReconnectDriver {
	return &ReconnectDriver{
		cfg:         parseOptions(opts),
		device:      device.Normalized(),
		globalTopic: globalTopic,
		link:        link,
		bus:         busClient,
		state:       NewState(),
		dump:        dump,
	}
}

// Run loops forever, reconnecting on every session failure with
// exponential backoff, until ctx is cancelled. It always returns nil on
// clean cancellation; individual session failures never escape this loop.
func (d *ReconnectDriver) Run(ctx context.Context) error {
	delay := d.cfg.initialReconnectDelay

	for {
		if ctx.Err() != nil {
			return nil
		}

		err := runOnce(ctx, d.cfg, d.device, d.globalTopic, d.link, d.bus, d.state)

		if ctx.Err() != nil {
			// Shutdown, not a session failure: skip classification,
			// backoff and the mandatory disconnect's logging noise.
			d.link.Disconnect()
			return nil
		}

		if err == nil {
			delay = d.cfg.initialReconnectDelay
		} else {
			d.state.Timeline.Log(timeline.Error{Desc: err.Error()})
			log.WithField("device", d.device.ID).WithError(err).
				WithField("next_retry", delay).Warn("session ended, reconnecting")

			if matchesAny(err, deviceFailureSubstrings) {
				d.state.Timeline.Dump(d.dump, timelineDeviceInfo(d.device), err.Error())
			}
			if errors.Is(err, devicelink.ErrInvalidSessionKey) || matchesAny(err, transientSubstrings) {
				delay = d.cfg.initialReconnectDelay
			}
		}

		d.state.Timeline.Log(timeline.Disconnected{})
		d.link.Disconnect() // best-effort and mandatory regardless of err

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}

		if delay < d.cfg.maxReconnectDelay {
			delay *= 2
			if delay > d.cfg.maxReconnectDelay {
				delay = d.cfg.maxReconnectDelay
			}
		}
	}
}

func matchesAny(err error, substrings []string) bool {
	msg := err.Error()
	for _, s := range substrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func timelineDeviceInfo(cfg dpcodec.DeviceConfig) timeline.DeviceInfo {
	return timeline.DeviceInfo{Name: cfg.Name, ID: cfg.ID, Version: cfg.Version}
}
