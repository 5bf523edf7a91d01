package session

import "errors"

var (
	// errStale is returned by the receive loop when no message batch
	// arrives within the receive timeout.
	errStale = errors.New("connection stale")

	// errChannelClosed is returned by the receive loop when Inbound()
	// closes, which devicelink does when its underlying connection dies.
	// Treated identically to a device-failure-class LinkError by the
	// reconnect driver.
	errChannelClosed = errors.New("receive channel closed")
)

// deviceFailureSubstrings classifies an error as device-failure-class: the
// reconnect driver dumps the timeline for these, since they indicate the
// link itself (not just one operation) is compromised.
var deviceFailureSubstrings = []string{
	"TcpStreamClosed",
	"Bad read from TcpStream",
	"Receive timeout",
	"connection stale",
	"heartbeat failed",
	"heartbeat timeout",
	// Not in the original taxonomy: devicelink.Inbound() closing is this
	// bridge's own signal that the transport died underneath the receive
	// loop, and §7 classifies ChannelClosed as LinkError, same as the rest
	// of this list.
	"receive channel closed",
}

// transientSubstrings classifies an error as transient: a blip worth
// retrying immediately rather than backing off, most notably the ~1/256
// chance of an invalid session key handshake.
var transientSubstrings = []string{
	"Data was incomplete",
	"still contains data after parsing",
	"InvalidSessionKey",
}
