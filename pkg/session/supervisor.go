package session

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tuyabridge/tuyabridged/internal/bus"
	"github.com/tuyabridge/tuyabridged/internal/devicelink"
	"github.com/tuyabridge/tuyabridged/internal/dpcodec"
	"github.com/tuyabridge/tuyabridged/internal/timeline"
)

// session is one connect-to-failure attempt for a device. It is
// constructed fresh by the reconnect driver on every iteration; State is
// the only thing that survives across attempts.
type session struct {
	cfg         *Config
	device      dpcodec.DeviceConfig
	globalTopic string
	link        devicelink.DeviceLink
	bus         bus.BusClient
	state       *State

	commands chan command
	publish  chan publishItem
}

// runOnce performs exactly one session attempt: connect, then run every
// cooperative goroutine until the first one fails, then return that
// error. It never closes the link — that is the reconnect driver's job, so
// cleanup stays in one place (§4.8).
func runOnce(ctx context.Context, cfg *Config, device dpcodec.DeviceConfig, globalTopic string, link devicelink.DeviceLink, busClient bus.BusClient, state *State) error {
	s := &session{
		cfg:         cfg,
		device:      device,
		globalTopic: globalTopic,
		link:        link,
		bus:         busClient,
		state:       state,
		commands:    make(chan command, cfg.commandQueueCapacity),
		publish:     make(chan publishItem, cfg.publisherCapacity),
	}

	state.Timeline.Log(timeline.ConnectAttempt{})
	connectCtx, cancel := context.WithTimeout(ctx, cfg.connectTimeout)
	err := link.Connect(connectCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	state.Timeline.Log(timeline.Connected{})
	log.WithField("device", device.ID).Info("connected")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.runReceiveLoop(gctx) })
	g.Go(func() error { return s.runPublisher(gctx) })
	g.Go(func() error { return s.runBusForwarder(gctx) })
	g.Go(func() error { return s.runPollScheduler(gctx) })
	g.Go(func() error { return s.runHeartbeatScheduler(gctx) })
	g.Go(func() error { return s.runCommandQueue(gctx) })

	return g.Wait()
}
