package session

import (
	"context"
	"math/rand"
	"time"

	"github.com/tuyabridge/tuyabridged/internal/dpcodec"
)

// runPollScheduler enqueues a Poll every pollInterval+jitter, forever.
func (s *session) runPollScheduler(ctx context.Context) error {
	return s.runScheduler(ctx, s.cfg.pollInterval, s.cfg.pollJitter, command{kind: cmdPoll})
}

// runHeartbeatScheduler enqueues a Heartbeat every heartbeatInterval+jitter,
// forever. The skip decision is deferred entirely to the command queue.
func (s *session) runHeartbeatScheduler(ctx context.Context) error {
	return s.runScheduler(ctx, s.cfg.heartbeatInterval, s.cfg.heartbeatJitter, command{kind: cmdHeartbeat})
}

func (s *session) runScheduler(ctx context.Context, interval, jitter time.Duration, cmd command) error {
	for {
		wait := interval
		if jitter > 0 {
			wait += time.Duration(rand.Int63n(int64(jitter) + 1))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		select {
		case s.commands <- cmd:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runBusForwarder watches this device's command channel and, on each
// change, encodes the latest coalesced LampState and enqueues it as a
// SetValues. Rapid bus updates collapse into whichever value was most
// recent when this forwarder next received a Changed signal.
func (s *session) runBusForwarder(ctx context.Context) error {
	source := s.bus.DeviceCommands(s.device.ID)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-source.Changed():
			state, ok := source.Next()
			if !ok {
				continue
			}
			dps := dpcodec.Encode(state, s.device)
			select {
			case s.commands <- command{kind: cmdSetValues, dps: dps}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
