package session

import (
	"github.com/tuyabridge/tuyabridged/internal/activity"
	"github.com/tuyabridge/tuyabridged/internal/timeline"
)

// State is the long-lived, cross-reconnect diagnostic and policy state for
// one device. It is created once per device, before the reconnect driver's
// first attempt, and outlives every individual session; its timeline
// therefore spans failures and is the primary diagnostic artifact.
type State struct {
	Timeline *timeline.Timeline
	Clock    *activity.Clock
}

// NewState returns a fresh State for one device.
func NewState() *State {
	return &State{
		Timeline: timeline.New(),
		Clock:    activity.New(),
	}
}
