// Package activity tracks when a session last sent a command to its device,
// and derives the throttle and heartbeat-skip policy from it.
package activity

import (
	"sync/atomic"
	"time"
)

const (
	// CommandThrottle is the minimum spacing enforced between consecutive
	// commands sent to the device.
	CommandThrottle = 1 * time.Second

	// HeartbeatSkipIfActivity suppresses a scheduled heartbeat when a
	// command has been sent more recently than this.
	HeartbeatSkipIfActivity = 10 * time.Second
)

// Clock tracks the monotonic timestamp of the last command sent to a
// device. The zero value is ready to use. Reads and writes use atomic
// scalar ops; monotonicity is guaranteed by the single-writer discipline of
// the command queue, not by the Clock itself.
type Clock struct {
	lastCommandNanos atomic.Int64
}

// New returns a Clock with no recorded command activity, so a freshly
// created session neither throttles its first command nor skips its first
// heartbeat.
func New() *Clock {
	return &Clock{}
}

// MarkCommandSent records now as the time of the most recent command.
func (c *Clock) MarkCommandSent() {
	c.lastCommandNanos.Store(time.Now().UnixNano())
}

// ThrottleDelay returns how long the caller must wait before the next
// command may be sent, given CommandThrottle. Zero means send immediately.
func (c *Clock) ThrottleDelay() time.Duration {
	elapsed := time.Since(c.lastCommandTime())
	if elapsed >= CommandThrottle {
		return 0
	}
	return CommandThrottle - elapsed
}

// ShouldSkipHeartbeat reports whether a heartbeat due right now should be
// skipped because of recent command activity, along with how long ago that
// activity was.
func (c *Clock) ShouldSkipHeartbeat() (elapsed time.Duration, skip bool) {
	elapsed = time.Since(c.lastCommandTime())
	return elapsed, elapsed < HeartbeatSkipIfActivity
}

func (c *Clock) lastCommandTime() time.Time {
	return time.Unix(0, c.lastCommandNanos.Load())
}
