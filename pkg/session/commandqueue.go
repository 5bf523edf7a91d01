package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tuyabridge/tuyabridged/internal/devicelink"
	"github.com/tuyabridge/tuyabridged/internal/dpcodec"
	"github.com/tuyabridge/tuyabridged/internal/timeline"
)

type commandKind int

const (
	cmdSetValues commandKind = iota
	cmdPoll
	cmdHeartbeat
)

func (k commandKind) String() string {
	switch k {
	case cmdSetValues:
		return "set_values"
	case cmdPoll:
		return "poll"
	case cmdHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// command is one unit of work the command queue serializes onto the
// device link.
type command struct {
	kind commandKind
	dps  dpcodec.DpMap
}

// runCommandQueue drains s.commands one at a time, forever or until ctx is
// cancelled or a dispatch fails. At most one operation is ever outstanding
// on the link, since this is the link's only caller (see devicelink.Link's
// exclusive-write discipline in §5).
func (s *session) runCommandQueue(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-s.commands:
			if err := s.dispatch(ctx, cmd); err != nil {
				return err
			}
		}
	}
}

// dispatch applies throttling, then executes one command under its own
// operation deadline.
//
// MarkCommandSent is called for SetValues and Poll — real device traffic —
// but not for Heartbeat, whether skipped or sent: a heartbeat's purpose is
// to detect a dead link, not to count as activity that would itself
// suppress the next heartbeat. This keeps the skip-heartbeat policy keyed
// only to the traffic it was designed to defer to (see ShouldSkipHeartbeat
// callers and the skip-heartbeat test).
func (s *session) dispatch(ctx context.Context, cmd command) error {
	if delay := s.state.Clock.ThrottleDelay(); delay > 0 {
		s.state.Timeline.Log(timeline.Throttled{DelayedMS: delay.Milliseconds()})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.operationTimeout)
	defer cancel()

	var err error
	switch cmd.kind {
	case cmdSetValues:
		s.state.Clock.MarkCommandSent()
		payload, _ := json.Marshal(cmd.dps)
		s.state.Timeline.Log(timeline.CommandSent{DpsJSON: string(payload)})
		err = s.link.SetValues(opCtx, cmd.dps)

	case cmdPoll:
		s.state.Clock.MarkCommandSent()
		s.state.Timeline.Log(timeline.PollSent{})
		err = s.link.Get(opCtx, devicelink.Query{
			DevID: s.device.ID, GwID: s.device.ID, UID: s.device.ID, T: "0",
		})

	case cmdHeartbeat:
		if elapsed, skip := s.state.Clock.ShouldSkipHeartbeat(); skip {
			s.state.Timeline.Log(timeline.HeartbeatSkipped{LastActivityMS: elapsed.Milliseconds()})
			return nil
		}
		s.state.Timeline.Log(timeline.HeartbeatSent{})
		err = s.link.Heartbeat(opCtx)
	}

	if err == nil {
		return nil
	}
	if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		s.state.Timeline.Log(timeline.Timeout{Op: cmd.kind.String()})
		return fmt.Errorf("%s: %w", cmd.kind, opCtx.Err())
	}
	s.state.Timeline.Log(timeline.Error{Desc: fmt.Sprintf("%s: %v", cmd.kind, err)})
	return fmt.Errorf("%s: %w", cmd.kind, err)
}
