// Command tuyabridged bridges a fleet of Tuya-protocol smart lamps onto an
// MQTT bus: it loads a YAML fleet configuration, maintains one reconnecting
// session per device, and translates between each device's DP map and a
// canonical LampState published (and subscribed to) over MQTT.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tuyabridge/tuyabridged/internal/bus"
	"github.com/tuyabridge/tuyabridged/internal/config"
	"github.com/tuyabridge/tuyabridged/internal/devicelink"
	"github.com/tuyabridge/tuyabridged/internal/logutil"
	"github.com/tuyabridge/tuyabridged/pkg/session"
)

const defaultConfigPath = "config.yaml"

func main() {
	logutil.Init()

	path := defaultConfigPath
	if p := os.Getenv("TUYABRIDGE_CONFIG"); p != "" {
		path = p
	}

	file, err := config.Load(path)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	if len(file.Devices) == 0 {
		log.Warn("no devices configured, nothing to supervise")
	}

	busClient, err := bus.New(bus.Config{
		ClientID: file.MQTT.ID,
		Host:     file.MQTT.Host,
		Port:     file.MQTT.Port,
		Topic:    file.MQTT.Topic,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MQTT broker")
	}
	defer busClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for id, device := range file.Devices {
		deviceCfg := device.ToDeviceConfig(id)
		link := devicelink.New(deviceCfg)
		driver := session.NewReconnectDriver(deviceCfg, file.MQTT.Topic, link, busClient, os.Stderr)

		g.Go(func() error {
			return driver.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		log.WithError(err).Error("session supervisor exited with error")
	}

	log.Info("shutting down")
}
