package timeline

import "fmt"

// EventLogCapacity is the fixed size of a Timeline's ring buffer.
const EventLogCapacity = 100

// EventKind is one of the structured events a Timeline can record. Each
// concrete type below corresponds to one variant named in the event
// taxonomy; payload-carrying variants embed their payload as fields.
type EventKind interface {
	fmt.Stringer
	kind()
}

type baseKind struct{}

func (baseKind) kind() {}

// Connected records a successful device connect.
type Connected struct{ baseKind }

func (Connected) String() string { return "Connected" }

// Disconnected records a deliberate link teardown.
type Disconnected struct{ baseKind }

func (Disconnected) String() string { return "Disconnected" }

// HeartbeatSent records a heartbeat that was actually transmitted.
type HeartbeatSent struct{ baseKind }

func (HeartbeatSent) String() string { return "HeartbeatSent" }

// PollSent records a state poll (get) that was transmitted.
type PollSent struct{ baseKind }

func (PollSent) String() string { return "PollSent" }

// CommandSent records a set_values call, with the DP map that was sent.
type CommandSent struct {
	baseKind
	DpsJSON string
}

func (e CommandSent) String() string { return fmt.Sprintf("CommandSent(%s)", e.DpsJSON) }

// MessageReceived records one inbound batch, summarized by command kind.
type MessageReceived struct {
	baseKind
	Summary string
}

func (e MessageReceived) String() string { return fmt.Sprintf("MessageReceived(%s)", e.Summary) }

// Error records a failure description.
type Error struct {
	baseKind
	Desc string
}

func (e Error) String() string { return fmt.Sprintf("Error(%s)", e.Desc) }

// Timeout records which operation exceeded its deadline.
type Timeout struct {
	baseKind
	Op string
}

func (e Timeout) String() string { return fmt.Sprintf("Timeout(%s)", e.Op) }

// Throttled records a command delayed by the activity clock.
type Throttled struct {
	baseKind
	DelayedMS int64
}

func (e Throttled) String() string { return fmt.Sprintf("Throttled{delayed_ms=%d}", e.DelayedMS) }

// HeartbeatSkipped records a heartbeat that was suppressed because of
// recent command activity.
type HeartbeatSkipped struct {
	baseKind
	LastActivityMS int64
}

func (e HeartbeatSkipped) String() string {
	return fmt.Sprintf("HeartbeatSkipped{last_activity_ms=%d}", e.LastActivityMS)
}

// ConnectAttempt records the start of a connect handshake.
type ConnectAttempt struct{ baseKind }

func (ConnectAttempt) String() string { return "ConnectAttempt" }

// ReceiveTimeout records that the receive loop's deadline expired with no
// traffic.
type ReceiveTimeout struct{ baseKind }

func (ReceiveTimeout) String() string { return "ReceiveTimeout" }
