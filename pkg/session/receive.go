package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tuyabridge/tuyabridged/internal/bus"
	"github.com/tuyabridge/tuyabridged/internal/dpcodec"
	"github.com/tuyabridge/tuyabridged/internal/timeline"
)

// publishItem is one canonical state update waiting to go out to the bus.
type publishItem struct {
	topic   string
	payload []byte
}

// runReceiveLoop drains devicelink.Inbound(), decodes each batch and
// forwards successfully-decoded state to the publisher channel. It is the
// sole reader of the link (see §5's exclusive-write discipline).
func (s *session) runReceiveLoop(ctx context.Context) error {
	ignoreNext := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case batch, ok := <-s.link.Inbound():
			if !ok {
				s.state.Timeline.Log(timeline.Error{Desc: "Receive channel closed"})
				return errChannelClosed
			}

			s.state.Timeline.Log(timeline.MessageReceived{Summary: summarizeBatch(batch)})

			if ignoreNext {
				ignoreNext = false
				continue
			}

			state, err := dpcodec.Decode(batch, s.device)
			if err != nil {
				if errors.Is(err, dpcodec.ErrIgnoreNext) {
					ignoreNext = true
					continue
				}
				// The protocol is noisy; drop anything else silently.
				continue
			}

			s.publishState(state)

		case <-time.After(s.cfg.receiveTimeout):
			s.state.Timeline.Log(timeline.ReceiveTimeout{})
			return errStale
		}
	}
}

func (s *session) publishState(state dpcodec.LampState) {
	topic := s.device.BusTopic
	if topic == "" {
		topic = s.globalTopic
	}
	topic = bus.EffectiveTopic(topic, s.device.ID)

	payload, err := json.Marshal(state)
	if err != nil {
		s.state.Timeline.Log(timeline.Error{Desc: fmt.Sprintf("marshal state: %v", err)})
		return
	}

	select {
	case s.publish <- publishItem{topic: topic, payload: payload}:
	default:
		log.WithField("device", s.device.ID).Debug("publisher channel full, dropping state update")
	}
}

// runPublisher drains the publish channel and hands each item to the bus
// client, retained and at-least-once. Publish failures are logged and
// dropped — never fatal to the session (§7).
func (s *session) runPublisher(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item := <-s.publish:
			if err := s.bus.Publish(item.topic, item.payload); err != nil {
				log.WithField("device", s.device.ID).WithError(err).Warn("bus publish failed")
			}
		}
	}
}

func summarizeBatch(batch []dpcodec.Message) string {
	if len(batch) == 0 {
		return "empty"
	}
	return fmt.Sprintf("%d message(s), first=%s", len(batch), batch[0].Command)
}
